package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/blackwell-systems/boostusage/internal/analyzer"
)

const dataSourceURL = "https://console.cloud.google.com/bigquery?ws=!1m5!1m4!4m3!1sbigquery-public-data!2sgithub_repos!3sfiles"

// WriteMarkdown writes the usage report. The year by version pivot only
// lists versions at or above minPivotVersion.
func WriteMarkdown(w io.Writer, stats *analyzer.Statistics, minPivotVersion string) error {
	bw := bufio.NewWriter(w)
	md := &mdWriter{w: bw}

	md.line("# Boost Usage Analysis Report")
	md.line("")
	md.line("Generated: %s", stats.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	md.line("")

	writeDataSource(md)
	writeOverview(md, stats)
	writeLibraries(md, stats)
	writeHeaders(md, stats)
	writeYears(md, stats)
	writeCoverage(md, stats)
	writeVersions(md, stats)
	writePivot(md, stats, minPivotVersion)
	writeAppendix(md)

	if md.err != nil {
		return fmt.Errorf("failed to write report: %w", md.err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// mdWriter keeps the first write error so sections can be written without
// checking every line.
type mdWriter struct {
	w   io.Writer
	err error
}

func (m *mdWriter) line(format string, args ...any) {
	if m.err != nil {
		return
	}
	if len(args) == 0 {
		_, m.err = io.WriteString(m.w, format+"\n")
		return
	}
	_, m.err = fmt.Fprintf(m.w, format+"\n", args...)
}

func comma(n int) string {
	return humanize.Comma(int64(n))
}

func dateOrNA(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func writeDataSource(md *mdWriter) {
	md.line("## Data Source and Date Range")
	md.line("")
	md.line("**Data Source Reference**: The BigQuery public dataset can be accessed at: %s", dataSourceURL)
	md.line("")
	md.line("**Important**: This report is generated from BigQuery data covering the period **2002-2022**. " +
		"The BigQuery dataset (`bigquery-public-data.github_repos`) was last updated on **2022-11-27**, which means:")
	md.line("- All commit timestamps in this report are from commits made on or before 2022-11-27")
	md.line("- Repository activity after 2022-11-27 is not included in this analysis")
	md.line("- The \"latest commit\" dates shown in the statistics reflect the most recent commit in the dataset, " +
		"not necessarily the current state of repositories")
	md.line("")
}

func writeOverview(md *mdWriter, s *analyzer.Statistics) {
	md.line("## Overview")
	md.line("")
	md.line("- **Total Repositories**: %s", comma(s.TotalRepositories))
	md.line("- **Repositories Using System Boost**: %s", comma(s.AffectedRepositories))
	md.line("- **Total Boost Libraries**: %s", comma(s.TotalLibraries))
	md.line("- **Total Boost Headers**: %s", comma(s.TotalHeaders))
	md.line("- **Total Usage Records**: %s", comma(s.TotalUsageRecords))
	md.line("")
	md.line("**Note on Repository Counts**: \"Repositories Using System Boost\" counts distinct repositories " +
		"that depend on external/system Boost. This may be less than \"Total Repositories\" because repositories " +
		"with vendored Boost bundle their own copy of Boost, so their Boost includes are filtered out during processing.")
	md.line("")
}

func writeLibraryTable(md *mdWriter, libs []analyzer.LibraryStat) {
	md.line("| Library | Repository Count | Usage Count | Earliest Commit | Latest Commit |")
	md.line("|---------|------------------|-------------|-----------------|---------------|")
	for _, l := range libs {
		md.line("| %s | %s | %s | %s | %s |", l.Name, comma(l.RepoCount), comma(l.UsageCount),
			dateOrNA(l.EarliestCommit), dateOrNA(l.LatestCommit))
	}
}

func writeLibraries(md *mdWriter, s *analyzer.Statistics) {
	md.line("## Top Boost Libraries by Repository Count")
	md.line("")
	writeLibraryTable(md, s.TopLibraries)

	if len(s.BottomLibraries) > 0 {
		md.line("")
		md.line("## Bottom Boost Libraries by Repository Count")
		md.line("")
		writeLibraryTable(md, s.BottomLibraries)
	}
}

func writeHeaders(md *mdWriter, s *analyzer.Statistics) {
	md.line("")
	md.line("## Top Boost Headers by Repository Count")
	md.line("")
	md.line("| Header | Repository Count | Usage Count |")
	md.line("|--------|------------------|-------------|")
	for _, h := range s.TopHeaders {
		md.line("| %s | %s | %s |", h.Header, comma(h.RepoCount), comma(h.UsageCount))
	}
}

func writeYears(md *mdWriter, s *analyzer.Statistics) {
	if len(s.ReposByYear) == 0 {
		return
	}
	md.line("")
	md.line("## Repository Counts by Year")
	md.line("")
	md.line("This table shows the number of repositories using Boost, grouped by the year of their latest commit.")
	md.line("")
	md.line("| Year | Repository Count |")
	md.line("|------|------------------|")
	for _, y := range s.ReposByYear {
		md.line("| %d | %s |", y.Year, comma(y.Count))
	}
}

func writeCoverage(md *mdWriter, s *analyzer.Statistics) {
	md.line("")
	md.line("## Version Coverage Statistics")
	md.line("")
	md.line("- **Repositories with Detected Boost Version**: %s", comma(s.ReposWithVersion))
	md.line("- **Repositories without Detected Version**: %s", comma(s.ReposWithoutVersion))
	md.line("- **Version Coverage**: %.1f%%", s.VersionCoveragePercent)
	md.line("")
	md.line("**Note**: Version detection relies on explicit version declarations in build files (CMake, Conan, vcpkg) " +
		"or `boost/version.hpp` files. Repositories using system Boost installed via package managers may not have " +
		"explicit version declarations.")
}

func writeVersions(md *mdWriter, s *analyzer.Statistics) {
	if len(s.VersionDistribution) == 0 {
		return
	}
	md.line("")
	md.line("## Boost Version Distribution")
	md.line("")
	md.line("| Version | Repository Count |")
	md.line("|---------|------------------|")
	for _, v := range s.VersionDistribution {
		md.line("| %s | %s |", v.Version, comma(v.Count))
	}
}

func writePivot(md *mdWriter, s *analyzer.Statistics, minVersion string) {
	years, versions, cells := s.Pivot(minVersion)
	if len(versions) == 0 {
		return
	}

	md.line("")
	md.line("## Repository Counts by Year and Version")
	md.line("")
	md.line("This table shows the number of repositories using Boost, grouped by both the Boost version and the year of their latest commit.")
	md.line("")
	md.line("**Note**: This section only includes Boost versions for which version information was successfully detected. "+
		"Versions are shown starting from Boost %s, as earlier versions may not have explicit version declarations in build files. "+
		"The absence of earlier versions in this table does not indicate they were not used.", minVersion)
	md.line("")

	var header, sep strings.Builder
	header.WriteString("| Year |")
	sep.WriteString("|------|")
	for _, v := range versions {
		header.WriteString(" " + v + " |")
		sep.WriteString("--------|")
	}
	md.line(header.String())
	md.line(sep.String())

	for _, y := range years {
		var row strings.Builder
		fmt.Fprintf(&row, "| %d |", y)
		for _, v := range versions {
			if n := cells[v][y]; n > 0 {
				row.WriteString(" " + comma(n) + " |")
			} else {
				row.WriteString(" |")
			}
		}
		md.line(row.String())
	}
}

var appendix = []string{
	"## Data Processing Procedure",
	"",
	"This report is generated from BigQuery exports containing Boost-related files from GitHub repositories. The processing procedure consists of the following steps:",
	"",
	"### 1. BigQuery Data Production",
	"",
	"Data is produced by a query against the `bigquery-public-data.github_repos` dataset. The query:",
	"",
	"- Detects repositories containing Boost includes in C/C++ source files",
	"- Identifies repositories with vendored Boost (containing a `boost/` folder)",
	"- Extracts Boost version information from `boost/version.hpp`, CMake `find_package(Boost ...)`, Conan and vcpkg manifests",
	"- Retrieves latest commit metadata for each repository",
	"- Outputs results to CSV files (`bq-results-*`) exported to the data directory",
	"",
	"The CSV files carry `repo_name`, `path`, `file_content`, `boost_version`, `contains_vendored_boost` and `last_commit_ts`.",
	"",
	"### 2. Data Collection",
	"",
	"- Scan all `bq-results-*` and `github-api-results-*` CSV files in the data directory (including subdirectories)",
	"- Extract `#include <boost/...>` and `#include \"boost/...\"` directives from file contents",
	"- Parse repository metadata from CSV fields",
	"",
	"### 3. Version Detection",
	"",
	"Boost version is determined in priority order:",
	"",
	"1. From the `boost_version` field in the CSV",
	"2. If the field is empty, from file paths containing patterns like:",
	"   - `/boost_1_57_0/` → `1.57.0`",
	"   - `/boost-1.70.0/` → `1.70.0`",
	"   - `/boost1.76.0/` → `1.76.0`",
	"3. Otherwise a candidate version is guessed from the Boost release calendar and the latest commit date",
	"",
	"### 4. Data Filtering",
	"",
	"Usage records are excluded if the file path contains `/boost` AND the repository has `contains_vendored_boost = true`.",
	"",
	"### 5. Database Construction",
	"",
	"- **`boost_library`**: Unique Boost libraries",
	"- **`boost_header`**: Headers mapped to their parent library",
	"- **`repository`**: Repositories with the `affect_from_boost` flag and detected `boost_version`",
	"- **`boost_usage`**: Usage records linking repositories to headers with file paths and commit timestamps",
}

func writeAppendix(md *mdWriter) {
	md.line("")
	for _, l := range appendix {
		md.line(l)
	}
}
