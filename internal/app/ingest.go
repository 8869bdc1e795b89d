package app

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/boostusage/internal/ingest"
	"github.com/blackwell-systems/boostusage/internal/output"
	"github.com/blackwell-systems/boostusage/internal/scanner"
)

var (
	ingestForce     bool
	ingestDataDir   string
	ingestNoResolve bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Load Boost include usage from CSV exports",
	Long: `Load repository rows from CSV exports into the usage store.

Without arguments, every bq-results-* and github-api-results-* file under
the data directory is read. Each row's file content is scanned for
#include <boost/...> directives; includes found in vendored Boost copies are
dropped and headers missing from the catalog are reported.

Files already ingested (same SHA-256) are skipped unless --force is given.
After loading, repository versions are resolved as by 'boostusage resolve'.`,
	Example: `  # Ingest everything under the data directory
  boostusage ingest

  # Ingest specific exports
  boostusage ingest data/file_time/bq-results-1.csv

  # Re-ingest files that were loaded before
  boostusage ingest --force`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "re-ingest files already recorded")
	ingestCmd.Flags().StringVar(&ingestDataDir, "data-dir", "", "directory searched for input files (default: data_dir)")
	ingestCmd.Flags().BoolVar(&ingestNoResolve, "no-resolve", false, "skip the repository resolve pass")
	RootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	files, err := inputFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No input files found.")
		return nil
	}

	st, err := openStore()
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
	in.Force = ingestForce

	progress := output.NewProgress(len(files), "Ingesting")
	in.OnFile = func(path string, index, total int) {
		progress.Step(index, filepath.Base(path))
	}

	stats, err := in.LoadFiles(files)
	if err != nil {
		progress.Abort()
		if errors.Is(err, ingest.ErrEmptyCatalog) {
			return err
		}
		return fmt.Errorf("ingest failed: %w", err)
	}
	progress.Finish()

	fmt.Println()
	fmt.Print(output.RenderIngestSummary(stats, 10))

	if ingestNoResolve {
		return nil
	}
	return resolveRepositories(in)
}

func inputFiles(args []string) ([]string, error) {
	if len(args) > 0 {
		seen := make(map[string]bool)
		var files []string
		for _, a := range args {
			if !seen[a] {
				seen[a] = true
				files = append(files, a)
			}
		}
		return files, nil
	}

	dir := ingestDataDir
	if dir == "" {
		dir = cfg.DataDir
	}
	return scanner.FindInputFiles(dir)
}
