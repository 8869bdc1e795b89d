package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/boostusage/internal/ingest"
	"github.com/blackwell-systems/boostusage/internal/output"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Recompute repository versions and flags from usage records",
	Long: `Recompute every repository's affect_from_boost flag, boost_version and
candidate_version from its non-excepted usage records.

boost_version is the most common version seen in records committed in or
after min_commit_year, falling back to a version found in a file path. A
stored version is never overwritten. candidate_version is the Boost release
current at the repository's latest commit, taken from the release calendar.

Run this after 'boostusage except' to refresh repository fields.`,
	Example: `  boostusage resolve`,
	RunE:    runResolve,
}

func init() {
	RootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	st, err := openExistingStore()
	if err != nil {
		return err
	}
	defer st.Close()

	cal, err := loadCalendar()
	if err != nil {
		return err
	}

	in := ingest.New(st)
	in.Calendar = cal
	in.MinCommitYear = cfg.Analysis.MinCommitYear
	return resolveRepositories(in)
}

func resolveRepositories(in *ingest.Ingester) error {
	spinner := output.NewSpinner("Resolving repositories")
	spinner.Start()
	rs, err := in.Resolve()
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("resolve failed: %w", err)
	}

	fmt.Println()
	fmt.Print(output.RenderResolveSummary(rs))
	return nil
}
