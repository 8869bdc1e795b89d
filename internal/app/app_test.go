package app

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/boostusage/internal/config"
)

// captureStdout runs fn with os.Stdout redirected and returns what it wrote.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		done <- buf.String()
	}()

	runErr := fn()

	w.Close()
	os.Stdout = origStdout
	return <-done, runErr
}

// testEnv is a workspace with a Boost tree, a release calendar and one
// input export.
type testEnv struct {
	dir       string
	boostRoot string
	dataDir   string
	outDir    string
}

func setupApp(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:       dir,
		boostRoot: filepath.Join(dir, "boost-src"),
		dataDir:   filepath.Join(dir, "data"),
		outDir:    filepath.Join(dir, "out"),
	}

	for _, f := range []string{
		"boost/asio.hpp",
		"boost/asio/ip/tcp.hpp",
		"boost/any.hpp",
		"boost/filesystem.hpp",
		"boost/filesystem/path.hpp",
	} {
		writeTestFile(t, filepath.Join(env.boostRoot, f), "#pragma once\n")
	}

	calendar := filepath.Join(dir, "boost_release_date.csv")
	writeTestFile(t, calendar, "name,release_date\nboost-1.80.0,8/10/2022\nboost-1.75.0,12/11/2020\nboost-1.66.0,12/18/2017\n")

	writeExport(t, filepath.Join(env.dataDir, "bq-results-1.csv"), [][]string{
		{"acme/net", "src/main.cpp", "#include <boost/asio.hpp>\n#include <boost/asio/ip/tcp.hpp>\n", "1.74.0", "false", "2021-03-01 10:00:00 UTC"},
		{"acme/net", "src/util.cpp", "#include \"boost/any.hpp\"\n", "", "false", "2021-03-01 10:00:00 UTC"},
		{"acme/fs", "app.cpp", "#include <boost/filesystem.hpp>\n#include <boost/unknown.hpp>\n", "", "false", "2019-06-01 00:00:00"},
		{"acme/vendored", "third_party/boost/asio.hpp", "#include <boost/asio.hpp>\n", "", "true", "2020-01-01 00:00:00"},
	})

	origCfg, origDB := cfg, dbPath
	origSource, origCSV := catalogSource, catalogCSV
	origForce, origDataDir, origNoResolve := ingestForce, ingestDataDir, ingestNoResolve
	origReportOut, origDashboardOut := reportOut, dashboardOut
	origRestore := exceptRestore
	origSection, origRepo, origTop := statsSection, statsRepo, statsTop
	t.Cleanup(func() {
		cfg, dbPath = origCfg, origDB
		catalogSource, catalogCSV = origSource, origCSV
		ingestForce, ingestDataDir, ingestNoResolve = origForce, origDataDir, origNoResolve
		reportOut, dashboardOut = origReportOut, origDashboardOut
		exceptRestore = origRestore
		statsSection, statsRepo, statsTop = origSection, origRepo, origTop
	})

	cfg = config.Default()
	cfg.DBPath = filepath.Join(dir, "db", "boost_usage.db")
	cfg.DataDir = env.dataDir
	cfg.ReleaseCalendar = calendar
	cfg.BoostSourcePath = env.boostRoot
	cfg.OutputDir = env.outDir
	dbPath = ""
	catalogSource, catalogCSV = "", ""
	ingestForce, ingestDataDir, ingestNoResolve = false, "", false
	reportOut, dashboardOut = "", ""
	exceptRestore = false
	statsSection, statsRepo, statsTop = "", "", 0
	return env
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func writeExport(t *testing.T, path string, rows [][]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create export: %v", err)
	}
	w := csv.NewWriter(f)
	w.Write([]string{"repo_name", "path", "file_content", "boost_version", "contains_vendored_boost", "last_commit_ts"})
	w.WriteAll(rows)
	if err := f.Close(); err != nil {
		t.Fatalf("failed to close export: %v", err)
	}
}

// seedAndIngest runs catalog and ingest against env.
func seedAndIngest(t *testing.T) {
	t.Helper()
	if _, err := captureStdout(t, func() error { return runCatalog(nil, nil) }); err != nil {
		t.Fatalf("runCatalog() failed: %v", err)
	}
	if _, err := captureStdout(t, func() error { return runIngest(nil, nil) }); err != nil {
		t.Fatalf("runIngest() failed: %v", err)
	}
}

func mustContain(t *testing.T, output string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, output)
		}
	}
}
