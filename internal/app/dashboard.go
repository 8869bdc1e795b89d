package app

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/boostusage/internal/output"
	"github.com/blackwell-systems/boostusage/internal/report"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Generate the static HTML dashboard",
	Long: `Generate a static HTML dashboard:

  index.html               repositories by year and version, top and bottom
                           libraries, top repositories, library activity
  libraries/<name>.html    per-library usage by year, top repositories and
                           headers
  dashboard_data.json      the data behind the pages

Charts are drawn client-side with Chart.js loaded from a CDN.`,
	Example: `  boostusage dashboard
  boostusage dashboard --out public/`,
	RunE: runDashboard,
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "", "output directory (default: <output_dir>/dashboard)")
	RootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	a, st, err := newAnalyzer()
	if err != nil {
		return err
	}
	defer st.Close()

	dir := dashboardOut
	if dir == "" {
		dir = filepath.Join(cfg.OutputDir, DashboardDir)
	}

	spinner := output.NewSpinner("Collecting dashboard data")
	spinner.Start()
	data, err := a.Dashboard()
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("failed to collect dashboard data: %w", err)
	}

	d, err := report.NewDashboard()
	if err != nil {
		return err
	}
	pages, err := d.Write(dir, data)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Dashboard written to %s (%d library pages)\n", filepath.Join(dir, "index.html"), pages)
	return nil
}
