package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/boostusage/internal/analyzer"
	"github.com/blackwell-systems/boostusage/internal/output"
)

var (
	statsSection string
	statsRepo    string
	statsTop     int
)

var statsSections = []string{"overview", "libraries", "headers", "versions", "years"}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics in the terminal",
	Long: `Print the aggregated usage statistics that back the Markdown report.

Sections:
  overview   repository, library, header and usage totals
  libraries  top and bottom libraries by repository count
  headers    top headers by repository count
  versions   detected Boost version distribution
  years      repositories by year of latest commit

Excepted repositories are left out of every figure.
Use --repo to show one repository and its usage records.`,
	Example: `  # Everything
  boostusage stats

  # Only the version distribution
  boostusage stats --section versions

  # Top 10 libraries
  boostusage stats --section libraries --top 10

  # One repository
  boostusage stats --repo boostorg/beast`,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsSection, "section", "", "one of: "+strings.Join(statsSections, ", "))
	statsCmd.Flags().StringVar(&statsRepo, "repo", "", "show a single repository")
	statsCmd.Flags().IntVar(&statsTop, "top", 0, "limit the libraries and headers shown")

	// Register with root command
	RootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	if statsSection != "" && !validSection(statsSection) {
		return fmt.Errorf("invalid section %q (must be one of: %s)", statsSection, strings.Join(statsSections, ", "))
	}
	if statsTop < 0 {
		return fmt.Errorf("invalid top: %d (must be positive)", statsTop)
	}

	if statsRepo != "" {
		return showRepository(statsRepo)
	}

	a, st, err := newAnalyzer()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := a.Statistics()
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}
	printStatistics(stats, statsSection, statsTop)
	return nil
}

func validSection(s string) bool {
	for _, v := range statsSections {
		if v == s {
			return true
		}
	}
	return false
}

func printStatistics(s *analyzer.Statistics, section string, top int) {
	show := func(name string) bool { return section == "" || section == name }

	if show("overview") {
		fmt.Println("Overview")
		fmt.Printf("  Repositories:         %d (%d using system Boost)\n", s.TotalRepositories, s.AffectedRepositories)
		fmt.Printf("  Libraries / headers:  %d / %d\n", s.TotalLibraries, s.TotalHeaders)
		fmt.Printf("  Usage records:        %d\n", s.TotalUsageRecords)
		fmt.Printf("  Version coverage:     %.1f%% (%d with, %d without)\n",
			s.VersionCoveragePercent, s.ReposWithVersion, s.ReposWithoutVersion)
		fmt.Println()
	}

	if show("libraries") {
		fmt.Println("Top libraries by repository count")
		fmt.Print(output.RenderLibraryTable(trim(s.TopLibraries, top)))
		fmt.Println()
		fmt.Println("Bottom libraries by repository count")
		fmt.Print(output.RenderLibraryTable(trim(s.BottomLibraries, top)))
		fmt.Println()
	}

	if show("headers") {
		fmt.Println("Top headers by repository count")
		fmt.Print(output.RenderHeaderTable(trim(s.TopHeaders, top)))
		fmt.Println()
	}

	if show("versions") {
		fmt.Println("Boost version distribution")
		fmt.Print(output.RenderVersionTable(s.VersionDistribution, s.ReposWithVersion))
		fmt.Println()
	}

	if show("years") {
		fmt.Println("Repositories by year of latest commit")
		fmt.Print(output.RenderYearTable(s.ReposByYear))
	}
}

func trim[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func showRepository(name string) error {
	st, err := openExistingStore()
	if err != nil {
		return err
	}
	defer st.Close()

	repo, err := st.GetRepository(name)
	if err != nil {
		return err
	}
	usage, err := st.ListUsage(repo.ID)
	if err != nil {
		return err
	}
	fmt.Print(output.RenderRepository(repo, usage))
	return nil
}
