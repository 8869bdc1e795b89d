package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/boostusage/internal/scanner"
)

// osExit is replaced in tests.
var osExit = os.Exit

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose common setup issues",
	Long: `Runs diagnostic checks on your boostusage setup.

Checks:
  • Database exists and holds the schema
  • Header catalog is seeded
  • Release calendar can be read
  • Input files are present in the data directory
  • Input files have been ingested

Exits 1 on critical issues and 2 when only warnings were found.`,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	fmt.Println("Running boostusage diagnostics...")
	fmt.Println()

	criticalIssues := 0
	warningIssues := 0

	// Check 1: Database
	path, err := getDBPath()
	if err != nil {
		fmt.Println("✗ Database path error:", err)
		criticalIssues++
	} else if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Println("✗ Database not found at:", path)
		fmt.Println("  Action: Run 'boostusage catalog' to create it")
		criticalIssues++
	} else {
		fmt.Println("✓ Database found:", path)
	}

	// Check 2-3: Schema and catalog
	ingested := 0
	if criticalIssues == 0 {
		st, err := openExistingStore()
		if err != nil {
			fmt.Println("✗ Cannot use database:", err)
			criticalIssues++
		} else {
			defer st.Close()
			fmt.Println("✓ Database schema present")

			counts, err := st.GetCounts()
			switch {
			case err != nil:
				fmt.Println("✗ Cannot read counts:", err)
				criticalIssues++
			case counts.Headers == 0:
				fmt.Println("✗ Header catalog is empty")
				fmt.Println("  Action: Run 'boostusage catalog --source <boost checkout>'")
				criticalIssues++
			default:
				fmt.Printf("✓ %d headers in %d libraries\n", counts.Headers, counts.Libraries)
				ingested = counts.IngestedFiles
			}
		}
	}

	// Check 4: Release calendar (warning only)
	cal, err := loadCalendar()
	switch {
	case err != nil:
		fmt.Println("⚠ Cannot read release calendar:", err)
		warningIssues++
	case cal.Len() == 0:
		fmt.Println("⚠ Release calendar is empty or missing:", cfg.ReleaseCalendar)
		fmt.Println("  Candidate versions and release years will be unknown")
		warningIssues++
	default:
		latest, _ := cal.Latest()
		fmt.Printf("✓ Release calendar: %d releases, latest %s\n", cal.Len(), latest.Version)
		if cal.Skipped() > 0 {
			fmt.Printf("⚠ %d calendar rows could not be parsed\n", cal.Skipped())
			warningIssues++
		}
	}

	// Check 5: Input files (warning only)
	files, err := scanner.FindInputFiles(cfg.DataDir)
	switch {
	case err != nil:
		fmt.Println("⚠ Data directory:", err)
		warningIssues++
	case len(files) == 0:
		fmt.Println("⚠ No bq-results-* or github-api-results-* files in", cfg.DataDir)
		warningIssues++
	default:
		fmt.Printf("✓ %d input files in %s\n", len(files), cfg.DataDir)
	}

	// Check 6: Something ingested (warning only)
	if criticalIssues == 0 {
		if ingested == 0 {
			fmt.Println("⚠ No input files ingested yet")
			fmt.Println("  Action: Run 'boostusage ingest'")
			warningIssues++
		} else {
			fmt.Printf("✓ %d input files ingested\n", ingested)
		}
	}

	fmt.Println()
	if criticalIssues == 0 && warningIssues == 0 {
		fmt.Println("✓ All checks passed!")
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  • Write reports: boostusage report")
		fmt.Println("  • Build the dashboard: boostusage dashboard")
		return nil
	}

	if criticalIssues > 0 {
		fmt.Printf("Found %d critical issue(s) and %d warning(s).\n", criticalIssues, warningIssues)
		return fmt.Errorf("diagnostics failed")
	}

	// Warnings only: exit 2 directly so main does not print an error.
	fmt.Printf("Found %d warning(s). Setup is usable but incomplete.\n", warningIssues)
	osExit(2)
	return nil
}
