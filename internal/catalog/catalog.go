// Package catalog builds the Boost header catalog that ingestion resolves
// include directives against.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/blackwell-systems/boostusage/internal/store"
)

// headerExts are the file extensions treated as public headers.
var headerExts = map[string]bool{
	".hpp": true,
	".h":   true,
	".ipp": true,
	".hxx": true,
}

// FromSourceTree walks a Boost checkout and returns one entry per header.
// root may be the checkout itself or its boost/ directory. A top-level
// boost/<lib>.hpp and every header under boost/<lib>/ belong to <lib>.
func FromSourceTree(root string) ([]store.CatalogEntry, error) {
	dir, err := boostDir(root)
	if err != nil {
		return nil, err
	}

	var entries []store.CatalogEntry
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !headerExts[strings.ToLower(filepath.Ext(p))] {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		var lib string
		if i := strings.IndexByte(rel, '/'); i >= 0 {
			lib = rel[:i]
		} else {
			lib = strings.TrimSuffix(rel, path.Ext(rel))
		}

		name := "boost/" + rel
		entries = append(entries, store.CatalogEntry{
			Library:        lib,
			HeaderName:     name,
			FullHeaderName: name,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].HeaderName < entries[j].HeaderName
	})
	return entries, nil
}

func boostDir(root string) (string, error) {
	if root == "" {
		return "", errors.New("boost source path is not set")
	}
	candidate := filepath.Join(root, "boost")
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate, nil
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", fmt.Errorf("boost source path: %w", err)
	}
	if !info.IsDir() || filepath.Base(filepath.Clean(root)) != "boost" {
		return "", fmt.Errorf("%s does not contain a boost/ directory", root)
	}
	return root, nil
}

// FromCSV reads catalog rows with library, header_name and optional
// full_header_name columns. Rows missing a library or header are skipped.
func FromCSV(r io.Reader) ([]store.CatalogEntry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty catalog csv")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog header: %w", err)
	}

	cols := map[string]int{}
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	libCol, ok1 := cols["library"]
	hdrCol, ok2 := cols["header_name"]
	if !ok1 || !ok2 {
		return nil, errors.New("catalog csv must have library and header_name columns")
	}
	fullCol, hasFull := cols["full_header_name"]

	var entries []store.CatalogEntry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog csv: %w", err)
		}

		e := store.CatalogEntry{
			Library:    get(rec, libCol),
			HeaderName: get(rec, hdrCol),
		}
		if hasFull {
			e.FullHeaderName = get(rec, fullCol)
		}
		if e.Library == "" || e.HeaderName == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// FromCSVFile opens path and reads it with FromCSV.
func FromCSVFile(path string) ([]store.CatalogEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return FromCSV(f)
}

func get(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
