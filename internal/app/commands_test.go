package app

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blackwell-systems/boostusage/internal/ingest"
	"github.com/blackwell-systems/boostusage/internal/store"
)

func TestRunCatalog(t *testing.T) {
	setupApp(t)

	output, err := captureStdout(t, func() error { return runCatalog(nil, nil) })
	if err != nil {
		t.Fatalf("runCatalog() failed: %v", err)
	}
	mustContain(t, output, "Added 5 headers", "5 headers in 3 libraries")

	// Seeding again adds nothing.
	output, err = captureStdout(t, func() error { return runCatalog(nil, nil) })
	if err != nil {
		t.Fatalf("second runCatalog() failed: %v", err)
	}
	mustContain(t, output, "Added 0 headers", "5 headers in 3 libraries")
}

func TestRunCatalog_FromCSV(t *testing.T) {
	env := setupApp(t)
	file := filepath.Join(env.dir, "headers.csv")
	writeTestFile(t, file, "library,header_name,full_header_name\nasio,boost/asio.hpp,boost/asio.hpp\nany,boost/any.hpp,\n")
	catalogCSV = file

	output, err := captureStdout(t, func() error { return runCatalog(nil, nil) })
	if err != nil {
		t.Fatalf("runCatalog() failed: %v", err)
	}
	mustContain(t, output, "Added 2 headers", "2 headers in 2 libraries")
}

func TestRunCatalog_NoSource(t *testing.T) {
	setupApp(t)
	cfg.BoostSourcePath = ""

	_, err := captureStdout(t, func() error { return runCatalog(nil, nil) })
	if err == nil || !strings.Contains(err.Error(), "--source") {
		t.Errorf("expected missing source error, got %v", err)
	}
}

func TestRunIngest_EmptyCatalog(t *testing.T) {
	setupApp(t)

	_, err := captureStdout(t, func() error { return runIngest(nil, nil) })
	if !errors.Is(err, ingest.ErrEmptyCatalog) {
		t.Errorf("expected ErrEmptyCatalog, got %v", err)
	}
}

func TestRunIngest(t *testing.T) {
	setupApp(t)
	if _, err := captureStdout(t, func() error { return runCatalog(nil, nil) }); err != nil {
		t.Fatalf("runCatalog() failed: %v", err)
	}

	output, err := captureStdout(t, func() error { return runIngest(nil, nil) })
	if err != nil {
		t.Fatalf("runIngest() failed: %v", err)
	}
	mustContain(t, output,
		"Files:       1",
		"Rows:        4",
		"Excluded:    1 (vendored)",
		"Inserted:    4",
		"1 headers not in the catalog",
		"boost/unknown.hpp",
		"Repositories:    3",
		"System Boost:    2",
	)

	// Same file again is skipped.
	output, err = captureStdout(t, func() error { return runIngest(nil, nil) })
	if err != nil {
		t.Fatalf("second runIngest() failed: %v", err)
	}
	mustContain(t, output, "1 already ingested", "Inserted:    0")

	// --force loads it again.
	ingestForce = true
	output, err = captureStdout(t, func() error { return runIngest(nil, nil) })
	if err != nil {
		t.Fatalf("forced runIngest() failed: %v", err)
	}
	mustContain(t, output, "Inserted:    4")
}

func TestRunIngest_NoInputFiles(t *testing.T) {
	env := setupApp(t)
	empty := filepath.Join(env.dir, "empty")
	if err := os.MkdirAll(empty, 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	ingestDataDir = empty

	output, err := captureStdout(t, func() error { return runIngest(nil, nil) })
	if err != nil {
		t.Fatalf("runIngest() failed: %v", err)
	}
	mustContain(t, output, "No input files found")
}

func TestRunIngest_FailedRunWritesNothing(t *testing.T) {
	env := setupApp(t)
	if _, err := captureStdout(t, func() error { return runCatalog(nil, nil) }); err != nil {
		t.Fatalf("runCatalog() failed: %v", err)
	}

	good := filepath.Join(env.dataDir, "bq-results-1.csv")
	missing := filepath.Join(env.dataDir, "bq-results-2.csv")
	_, err := captureStdout(t, func() error { return runIngest(nil, []string{good, missing}) })
	if err == nil || !strings.Contains(err.Error(), "ingest failed") {
		t.Fatalf("expected ingest failure, got %v", err)
	}

	output, err := captureStdout(t, func() error { return runStatus(nil, nil) })
	if err != nil {
		t.Fatalf("runStatus() failed: %v", err)
	}
	mustContain(t, output, "Repositories:  0", "Usage:         0 records", "Input files:   0")
}

func TestRunIngest_ExplicitFilesAndNoResolve(t *testing.T) {
	env := setupApp(t)
	if _, err := captureStdout(t, func() error { return runCatalog(nil, nil) }); err != nil {
		t.Fatalf("runCatalog() failed: %v", err)
	}
	ingestNoResolve = true

	file := filepath.Join(env.dataDir, "bq-results-1.csv")
	output, err := captureStdout(t, func() error { return runIngest(nil, []string{file, file}) })
	if err != nil {
		t.Fatalf("runIngest() failed: %v", err)
	}
	mustContain(t, output, "Files:       1")
	if strings.Contains(output, "Repositories:") {
		t.Errorf("--no-resolve should skip the resolve summary:\n%s", output)
	}
}

func TestRunResolve_NotInitialized(t *testing.T) {
	setupApp(t)

	_, err := captureStdout(t, func() error { return runResolve(nil, nil) })
	if !errors.Is(err, store.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestRunReport(t *testing.T) {
	env := setupApp(t)
	seedAndIngest(t)

	output, err := captureStdout(t, func() error { return runReport(nil, nil) })
	if err != nil {
		t.Fatalf("runReport() failed: %v", err)
	}
	mustContain(t, output, "Wrote 4 statistics rows", ReportFile)

	f, err := os.Open(filepath.Join(env.outDir, StatisticsFile))
	if err != nil {
		t.Fatalf("statistics CSV missing: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to read statistics CSV: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected header + 4 rows, got %d", len(records))
	}
	if records[0][0] != "library_name" || records[0][5] != "boost_version" {
		t.Errorf("unexpected header row: %v", records[0])
	}

	md, err := os.ReadFile(filepath.Join(env.outDir, ReportFile))
	if err != nil {
		t.Fatalf("report missing: %v", err)
	}
	mustContain(t, string(md),
		"# Boost Usage Analysis Report",
		"- **Total Repositories**: 3",
		"- **Repositories Using System Boost**: 2",
		"- **Total Usage Records**: 4",
		"## Repository Counts by Year and Version",
		"| Year | 1.74.0 |",
	)
}

func TestRunReport_NotInitialized(t *testing.T) {
	setupApp(t)

	_, err := captureStdout(t, func() error { return runReport(nil, nil) })
	if !errors.Is(err, store.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestRunDashboard(t *testing.T) {
	env := setupApp(t)
	seedAndIngest(t)

	output, err := captureStdout(t, func() error { return runDashboard(nil, nil) })
	if err != nil {
		t.Fatalf("runDashboard() failed: %v", err)
	}
	mustContain(t, output, "(3 library pages)")

	dir := filepath.Join(env.outDir, DashboardDir)
	for _, name := range []string{"index.html", "dashboard_data.json", "libraries/asio.html", "libraries/any.html", "libraries/filesystem.html"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to be written: %v", name, err)
		}
	}
}

func TestRunExcept(t *testing.T) {
	setupApp(t)
	seedAndIngest(t)

	output, err := captureStdout(t, func() error { return runExcept(nil, []string{"acme/net"}) })
	if err != nil {
		t.Fatalf("runExcept() failed: %v", err)
	}
	mustContain(t, output, "Excepted 3 usage records of acme/net", "boostusage resolve")

	statsSection = "overview"
	output, err = captureStdout(t, func() error { return runStats(nil, nil) })
	if err != nil {
		t.Fatalf("runStats() failed: %v", err)
	}
	mustContain(t, output, "Repositories:         2", "Usage records:        1")

	exceptRestore = true
	output, err = captureStdout(t, func() error { return runExcept(nil, []string{"acme/net"}) })
	if err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	mustContain(t, output, "Restored 3 usage records of acme/net")

	output, err = captureStdout(t, func() error { return runStats(nil, nil) })
	if err != nil {
		t.Fatalf("runStats() failed: %v", err)
	}
	mustContain(t, output, "Repositories:         3", "Usage records:        4")
}

func TestRunExcept_UnknownRepository(t *testing.T) {
	setupApp(t)
	seedAndIngest(t)

	_, err := captureStdout(t, func() error { return runExcept(nil, []string{"nobody/nothing"}) })
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestRunStats(t *testing.T) {
	setupApp(t)
	seedAndIngest(t)

	output, err := captureStdout(t, func() error { return runStats(nil, nil) })
	if err != nil {
		t.Fatalf("runStats() failed: %v", err)
	}
	mustContain(t, output,
		"Overview",
		"Top libraries by repository count",
		"asio",
		"Top headers by repository count",
		"boost/asio/ip/tcp.hpp",
		"Boost version distribution",
		"1.74.0",
		"Repositories by year of latest commit",
		"2021",
	)
}

func TestRunStats_Repo(t *testing.T) {
	setupApp(t)
	seedAndIngest(t)
	statsRepo = "acme/net"

	output, err := captureStdout(t, func() error { return runStats(nil, nil) })
	if err != nil {
		t.Fatalf("runStats() failed: %v", err)
	}
	mustContain(t, output, "acme/net", "Version:     1.74.0", "Candidate:   1.75.0 (approximate", "3 records")
}

func TestRunStats_InvalidFlags(t *testing.T) {
	setupApp(t)

	statsSection = "bogus"
	if err := runStats(nil, nil); err == nil {
		t.Error("expected invalid section error")
	}

	statsSection = ""
	statsTop = -1
	if err := runStats(nil, nil); err == nil {
		t.Error("expected invalid top error")
	}
}

func TestRunStatus(t *testing.T) {
	setupApp(t)

	output, err := captureStdout(t, func() error { return runStatus(nil, nil) })
	if err != nil {
		t.Fatalf("runStatus() failed: %v", err)
	}
	mustContain(t, output, "not initialized", "boostusage catalog")

	seedAndIngest(t)
	output, err = captureStdout(t, func() error { return runStatus(nil, nil) })
	if err != nil {
		t.Fatalf("runStatus() failed: %v", err)
	}
	mustContain(t, output, "Headers:       5", "Repositories:  3", "Usage:         4 records", "Input files:   1", "Recent input files:", "bq-results-1.csv")
}

func TestRunDoctor(t *testing.T) {
	setupApp(t)

	// Nothing set up: critical.
	output, err := captureStdout(t, func() error { return runDoctor(nil, nil) })
	if err == nil {
		t.Error("expected diagnostics to fail without a database")
	}
	mustContain(t, output, "✗ Database not found")

	// Catalog only: warnings, exit 2.
	if _, err := captureStdout(t, func() error { return runCatalog(nil, nil) }); err != nil {
		t.Fatalf("runCatalog() failed: %v", err)
	}
	exitCode := 0
	origExit := osExit
	osExit = func(code int) { exitCode = code }
	defer func() { osExit = origExit }()

	output, err = captureStdout(t, func() error { return runDoctor(nil, nil) })
	if err != nil {
		t.Errorf("warnings only should not return an error: %v", err)
	}
	if exitCode != 2 {
		t.Errorf("expected exit code 2 for warnings, got %d", exitCode)
	}
	mustContain(t, output, "✓ 5 headers in 3 libraries", "⚠ No input files ingested yet")

	// Fully set up: all checks pass.
	exitCode = 0
	if _, err := captureStdout(t, func() error { return runIngest(nil, nil) }); err != nil {
		t.Fatalf("runIngest() failed: %v", err)
	}
	output, err = captureStdout(t, func() error { return runDoctor(nil, nil) })
	if err != nil {
		t.Errorf("runDoctor() failed: %v", err)
	}
	if exitCode != 0 {
		t.Errorf("unexpected exit code %d", exitCode)
	}
	mustContain(t, output, "✓ Release calendar: 3 releases, latest 1.80.0", "✓ 1 input files ingested", "All checks passed")
}
