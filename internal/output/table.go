// Package output provides terminal output utilities for boostusage.
//
// This package includes:
//   - Table rendering for libraries, headers, versions, years and repositories
//   - Ingest and resolve run summaries
//   - A progress bar and spinner for long-running passes
//
// Tables use plain box-drawing rules and ANSI color only when stdout is a
// terminal and NO_COLOR is unset.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/boostusage/internal/analyzer"
	"github.com/blackwell-systems/boostusage/internal/ingest"
	"github.com/blackwell-systems/boostusage/internal/store"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if !IsColorEnabled() {
		return text
	}
	return color + text + colorReset
}

func rule(width int) string {
	return strings.Repeat("─", width) + "\n"
}

// RenderLibraryTable renders libraries with repository and usage counts and
// their commit range. Rows are printed in the given order.
func RenderLibraryTable(libs []analyzer.LibraryStat) string {
	if len(libs) == 0 {
		return "No library usage recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-24s %10s %10s  %-10s  %-10s\n",
		"Library", "Repos", "Usage", "Earliest", "Latest"))
	sb.WriteString(rule(72))

	for _, l := range libs {
		sb.WriteString(fmt.Sprintf("%-24s %10s %10s  %-10s  %-10s\n",
			truncate(l.Name, 24),
			formatCount(l.RepoCount),
			formatCount(l.UsageCount),
			formatDate(l.EarliestCommit),
			formatDate(l.LatestCommit)))
	}
	return sb.String()
}

// RenderHeaderTable renders headers with repository and usage counts.
func RenderHeaderTable(headers []analyzer.HeaderStat) string {
	if len(headers) == 0 {
		return "No header usage recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-48s %10s %10s\n", "Header", "Repos", "Usage"))
	sb.WriteString(rule(70))

	for _, h := range headers {
		sb.WriteString(fmt.Sprintf("%-48s %10s %10s\n",
			truncate(h.Header, 48),
			formatCount(h.RepoCount),
			formatCount(h.UsageCount)))
	}
	return sb.String()
}

// RenderVersionTable renders a version distribution with each version's
// share of total.
func RenderVersionTable(versions []analyzer.VersionCount, total int) string {
	if len(versions) == 0 {
		return "No detected versions.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-10s %10s %8s\n", "Version", "Repos", "Share"))
	sb.WriteString(rule(30))

	for _, v := range versions {
		share := 0.0
		if total > 0 {
			share = float64(v.Count) / float64(total) * 100
		}
		sb.WriteString(fmt.Sprintf("%-10s %10s %7.1f%%\n", v.Version, formatCount(v.Count), share))
	}
	return sb.String()
}

// RenderYearTable renders counts per year.
func RenderYearTable(years []analyzer.YearCount) string {
	if len(years) == 0 {
		return "No dated repositories.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-6s %10s\n", "Year", "Repos"))
	sb.WriteString(rule(17))
	for _, y := range years {
		sb.WriteString(fmt.Sprintf("%-6d %10s\n", y.Year, formatCount(y.Count)))
	}
	return sb.String()
}

// approximateNote marks candidate versions, which are estimated from the
// release calendar rather than read from the repository.
const approximateNote = "(approximate, from release calendar)"

// RenderRepository renders one repository and its usage records.
func RenderRepository(repo *store.Repository, usage []store.UsageRecord) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Repository:  %s\n", repo.Name))
	if repo.AffectFromBoost {
		sb.WriteString(fmt.Sprintf("Boost:       %s\n", colorize(colorGreen, "system")))
	} else {
		sb.WriteString(fmt.Sprintf("Boost:       %s\n", colorize(colorYellow, "vendored")))
	}
	sb.WriteString(fmt.Sprintf("Version:     %s\n", orDash(repo.BoostVersion)))
	if repo.CandidateVersion != "" {
		sb.WriteString(fmt.Sprintf("Candidate:   %s %s\n", repo.CandidateVersion, colorize(colorGray, approximateNote)))
	} else {
		sb.WriteString(fmt.Sprintf("Candidate:   %s\n", orDash("")))
	}

	excepted := 0
	for _, u := range usage {
		if u.ExceptedAt != nil {
			excepted++
		}
	}
	sb.WriteString(fmt.Sprintf("Usage:       %s records", formatCount(len(usage))))
	if excepted > 0 {
		sb.WriteString(colorize(colorGray, fmt.Sprintf(" (%s excepted)", formatCount(excepted))))
	}
	sb.WriteString("\n")
	return sb.String()
}

// RenderIngestSummary renders the result of an ingest run.
func RenderIngestSummary(s *ingest.Stats, unmatchedSample int) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Run:         %s\n", s.RunID))
	sb.WriteString(fmt.Sprintf("Files:       %s", formatCount(s.Files)))
	if s.SkippedFiles > 0 {
		sb.WriteString(fmt.Sprintf(" (%s already ingested, skipped)", formatCount(s.SkippedFiles)))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Rows:        %s\n", formatCount(s.Rows)))
	sb.WriteString(fmt.Sprintf("Includes:    %s\n", formatCount(s.Includes)))
	sb.WriteString(fmt.Sprintf("Excluded:    %s (vendored)\n", formatCount(s.Excluded)))
	sb.WriteString(fmt.Sprintf("Inserted:    %s\n", formatCount(s.Inserted)))

	if n := s.UnmatchedCount(); n > 0 {
		sb.WriteString(fmt.Sprintf("Unmatched:   %s headers not in the catalog\n", formatCount(n)))
		for _, h := range s.UnmatchedSample(unmatchedSample) {
			sb.WriteString(fmt.Sprintf("  %s\n", colorize(colorGray, h)))
		}
	}
	return sb.String()
}

// RenderResolveSummary renders the result of a resolve pass.
func RenderResolveSummary(s *ingest.ResolveStats) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Repositories:    %s (%s with usage)\n", formatCount(s.Repositories), formatCount(s.WithRecords)))
	sb.WriteString(fmt.Sprintf("Updated:         %s\n", formatCount(s.Updated)))
	sb.WriteString(fmt.Sprintf("With version:    %s\n", formatCount(s.WithVersion)))
	sb.WriteString(fmt.Sprintf("With candidate:  %s (approximate)\n", formatCount(s.WithCandidate)))
	sb.WriteString(fmt.Sprintf("System Boost:    %s\n", formatCount(s.Affected)))
	return sb.String()
}

// RenderCounts renders database totals for the status command.
func RenderCounts(c *store.Counts) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Libraries:     %s\n", formatCount(c.Libraries)))
	sb.WriteString(fmt.Sprintf("Headers:       %s\n", formatCount(c.Headers)))
	sb.WriteString(fmt.Sprintf("Repositories:  %s\n", formatCount(c.Repositories)))
	sb.WriteString(fmt.Sprintf("Usage:         %s records", formatCount(c.UsageRecords)))
	if c.ExceptedRecords > 0 {
		sb.WriteString(fmt.Sprintf(" (%s excepted)", formatCount(c.ExceptedRecords)))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Input files:   %s\n", formatCount(c.IngestedFiles)))
	if c.LastIngest != nil {
		sb.WriteString(fmt.Sprintf("Last ingest:   %s\n", formatRelativeTime(*c.LastIngest)))
	} else {
		sb.WriteString("Last ingest:   never\n")
	}
	return sb.String()
}

func formatCount(n int) string {
	return humanize.Comma(int64(n))
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.UTC().Format("2006-01-02")
}

// formatRelativeTime converts a timestamp to relative time (e.g., "2 days ago").
func formatRelativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
