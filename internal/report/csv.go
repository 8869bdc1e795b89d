// Package report renders analyzer results as a statistics CSV, a Markdown
// report and a static HTML dashboard.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/blackwell-systems/boostusage/internal/analyzer"
	"github.com/blackwell-systems/boostusage/internal/store"
)

// StatisticsColumns is the header row of the statistics CSV.
var StatisticsColumns = []string{
	"library_name",
	"header_name",
	"repository_count",
	"usage_count",
	"last_commit_time",
	"boost_version",
}

// WriteStatisticsCSV writes one row per header. A missing last commit is
// written as an empty field.
func WriteStatisticsCSV(w io.Writer, rows []analyzer.HeaderRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(StatisticsColumns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range rows {
		last := ""
		if !r.LastCommit.IsZero() {
			last = r.LastCommit.UTC().Format(store.TimeLayout)
		}
		record := []string{
			r.Library,
			r.Header,
			strconv.Itoa(r.RepoCount),
			strconv.Itoa(r.UsageCount),
			last,
			r.BoostVersion,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row for %s: %w", r.Header, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
