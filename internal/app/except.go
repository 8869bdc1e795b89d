package app

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var exceptRestore bool

var exceptCmd = &cobra.Command{
	Use:   "except <repo>...",
	Short: "Exclude repositories from the statistics",
	Long: `Mark every usage record of the named repositories as excepted. Excepted
records stay in the database but are left out of statistics, reports and
the dashboard. Use --restore to bring them back.

Repository fields (versions, affect flag) are not recomputed until the
next 'boostusage resolve'.`,
	Example: `  # Exclude a fork of Boost itself
  boostusage except someone/boost-mirror

  # Undo
  boostusage except --restore someone/boost-mirror`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExcept,
}

func init() {
	exceptCmd.Flags().BoolVar(&exceptRestore, "restore", false, "clear the exception instead of setting it")
	RootCmd.AddCommand(exceptCmd)
}

func runExcept(cmd *cobra.Command, args []string) error {
	st, err := openExistingStore()
	if err != nil {
		return err
	}
	defer st.Close()

	now := time.Now().UTC()
	for _, name := range args {
		if _, err := st.GetRepository(name); err != nil {
			return err
		}

		var n int64
		if exceptRestore {
			n, err = st.RestoreRepository(name)
		} else {
			n, err = st.ExceptRepository(name, now)
		}
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", name, err)
		}

		if exceptRestore {
			fmt.Printf("✓ Restored %d usage records of %s\n", n, name)
		} else {
			fmt.Printf("✓ Excepted %d usage records of %s\n", n, name)
		}
	}

	fmt.Println()
	fmt.Println("Run 'boostusage resolve' to refresh repository versions.")
	return nil
}
