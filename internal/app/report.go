package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/boostusage/internal/output"
	"github.com/blackwell-systems/boostusage/internal/report"
)

// Output file names.
const (
	StatisticsFile = "boost_usage_statistics.csv"
	ReportFile     = "Boost_Usage_Report.md"
	DashboardDir   = "dashboard"
)

var reportOut string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the statistics CSV and the Markdown report",
	Long: `Write two files into the output directory:

  boost_usage_statistics.csv  one row per header with repository and usage
                              counts, last commit time and the most common
                              Boost version among repositories using it
  Boost_Usage_Report.md       overview, library and header rankings, version
                              coverage and distribution, and a year by
                              version pivot`,
	Example: `  boostusage report
  boostusage report --out reports/`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportOut, "out", "", "output directory (default: output_dir)")
	RootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	a, st, err := newAnalyzer()
	if err != nil {
		return err
	}
	defer st.Close()

	spinner := output.NewSpinner("Computing statistics")
	spinner.Start()
	rows, err := a.HeaderRows()
	if err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to compute header statistics: %w", err)
	}
	stats, err := a.Statistics()
	if err != nil {
		spinner.Stop()
		return fmt.Errorf("failed to compute statistics: %w", err)
	}
	spinner.StopWithMessage(fmt.Sprintf("✓ %d repositories analyzed", stats.TotalRepositories))

	csvPath, err := outputPath(reportOut, StatisticsFile)
	if err != nil {
		return err
	}
	if err := writeFile(csvPath, func(f *os.File) error { return report.WriteStatisticsCSV(f, rows) }); err != nil {
		return err
	}
	fmt.Printf("✓ Wrote %d statistics rows to %s\n", len(rows), csvPath)

	mdPath, err := outputPath(reportOut, ReportFile)
	if err != nil {
		return err
	}
	if err := writeFile(mdPath, func(f *os.File) error {
		return report.WriteMarkdown(f, stats, cfg.Analysis.MinPivotVersion)
	}); err != nil {
		return err
	}
	fmt.Printf("✓ Report written to %s\n", mdPath)
	return nil
}

// writeFile creates path and hands it to write, closing it afterwards.
func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
