package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/boostusage/internal/store"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("// header\n"), 0o644))
	}
}

func TestFromSourceTree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"boost/asio.hpp",
		"boost/asio/io_context.hpp",
		"boost/asio/detail/impl/socket_ops.ipp",
		"boost/any.hpp",
		"boost/filesystem/path.hpp",
		"boost/README.md",
		"libs/asio/example/echo.cpp",
	)

	entries, err := FromSourceTree(root)
	require.NoError(t, err)

	want := []store.CatalogEntry{
		{Library: "any", HeaderName: "boost/any.hpp", FullHeaderName: "boost/any.hpp"},
		{Library: "asio", HeaderName: "boost/asio.hpp", FullHeaderName: "boost/asio.hpp"},
		{Library: "asio", HeaderName: "boost/asio/detail/impl/socket_ops.ipp", FullHeaderName: "boost/asio/detail/impl/socket_ops.ipp"},
		{Library: "asio", HeaderName: "boost/asio/io_context.hpp", FullHeaderName: "boost/asio/io_context.hpp"},
		{Library: "filesystem", HeaderName: "boost/filesystem/path.hpp", FullHeaderName: "boost/filesystem/path.hpp"},
	}
	assert.Equal(t, want, entries)
}

func TestFromSourceTree_BoostDirDirectly(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "boost/any.hpp")

	entries, err := FromSourceTree(filepath.Join(root, "boost"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "boost/any.hpp", entries[0].HeaderName)
}

func TestFromSourceTree_Errors(t *testing.T) {
	_, err := FromSourceTree("")
	assert.Error(t, err)

	_, err = FromSourceTree(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	_, err = FromSourceTree(t.TempDir())
	assert.Error(t, err, "a directory without boost/ should be rejected")
}

func TestFromCSV(t *testing.T) {
	data := "library,header_name,full_header_name\n" +
		"asio,boost/asio.hpp,boost/asio.hpp\n" +
		"detail,detail/utf8_codecvt_facet.hpp,boost/detail/utf8_codecvt_facet.hpp\n" +
		",boost/orphan.hpp,\n" +
		"any,boost/any.hpp\n"

	entries, err := FromCSV(strings.NewReader(data))
	require.NoError(t, err)

	want := []store.CatalogEntry{
		{Library: "asio", HeaderName: "boost/asio.hpp", FullHeaderName: "boost/asio.hpp"},
		{Library: "detail", HeaderName: "detail/utf8_codecvt_facet.hpp", FullHeaderName: "boost/detail/utf8_codecvt_facet.hpp"},
		{Library: "any", HeaderName: "boost/any.hpp"},
	}
	assert.Equal(t, want, entries)
}

func TestFromCSV_Invalid(t *testing.T) {
	_, err := FromCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = FromCSV(strings.NewReader("name,header\nasio,boost/asio.hpp\n"))
	assert.Error(t, err)
}

func TestCatalogSeeding_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "boost/asio.hpp", "boost/asio/io_context.hpp", "boost/any.hpp")
	entries, err := FromSourceTree(root)
	require.NoError(t, err)

	s, err := store.New(":memory:")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.CreateSchema())

	added, err := s.UpsertCatalog(entries)
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	added, err = s.UpsertCatalog(entries)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	libs, err := s.ListLibraries()
	require.NoError(t, err)
	assert.Len(t, libs, 2)
}
