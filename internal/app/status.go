package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/boostusage/internal/output"
	"github.com/blackwell-systems/boostusage/internal/store"
)

// recentFiles caps the input file listing.
const recentFiles = 5

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what has been loaded into the database",
	Long: `Display the database location and contents.

Shows:
  • Database location and size
  • Catalog size (libraries and headers)
  • Repositories and usage records, including excepted ones
  • Input files ingested and when the last ingest ran`,
	Example: `  # Check status
  boostusage status`,
	RunE: runStatus,
}

func init() {
	// Register with root command
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	path, err := getDBPath()
	if err != nil {
		return fmt.Errorf("failed to get database path: %w", err)
	}

	st, err := openExistingStore()
	if errors.Is(err, store.ErrNotInitialized) {
		fmt.Printf("Database:      %s (not initialized)\n", path)
		fmt.Println()
		fmt.Println("boostusage is not set up. Run 'boostusage catalog --source <boost checkout>' to get started.")
		return nil
	}
	if err != nil {
		return err
	}
	defer st.Close()

	counts, err := st.GetCounts()
	if err != nil {
		return fmt.Errorf("failed to read counts: %w", err)
	}

	size := ""
	if fi, err := os.Stat(path); err == nil {
		size = " (" + humanize.Bytes(uint64(fi.Size())) + ")"
	}
	fmt.Printf("Database:      %s%s\n", path, size)
	fmt.Printf("Data dir:      %s\n", cfg.DataDir)
	fmt.Println()
	fmt.Print(output.RenderCounts(counts))

	files, err := st.ListIngestedFiles()
	if err != nil {
		return fmt.Errorf("failed to list input files: %w", err)
	}
	if len(files) > 0 {
		fmt.Println()
		fmt.Println("Recent input files:")
		for i, f := range files {
			if i == recentFiles {
				fmt.Printf("  ... and %d more\n", len(files)-recentFiles)
				break
			}
			fmt.Printf("  %-36s %10s rows  %s\n", f.FileName, humanize.Comma(int64(f.RowCount)), humanize.Time(f.IngestedAt))
		}
	}

	switch {
	case counts.Headers == 0:
		fmt.Println()
		fmt.Println("Next: seed the header catalog with 'boostusage catalog'.")
	case counts.IngestedFiles == 0:
		fmt.Println()
		fmt.Println("Next: load exports with 'boostusage ingest'.")
	}
	return nil
}
