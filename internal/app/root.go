package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/boostusage/internal/config"
	"github.com/blackwell-systems/boostusage/internal/logger"
)

var (
	dbPath     string
	configPath string
	logLevel   string
	logFormat  string

	// cfg is loaded once per invocation by RootCmd's PersistentPreRunE.
	cfg = config.Default()

	// RootCmd is the root command for boostusage
	RootCmd = &cobra.Command{
		Use:   "boostusage",
		Short: "Measure how open-source repositories use Boost C++ libraries",
		Long: `boostusage ingests CSV exports of C/C++ source files from public
repositories, resolves every #include <boost/...> against a catalog of Boost
headers, infers the Boost version each repository builds against, and
aggregates the result into a statistics CSV, a Markdown report and an HTML
dashboard.

Workflow:
  1. boostusage catalog --source /path/to/boost   # seed libraries and headers
  2. boostusage ingest                          # load bq-results-* exports
  3. boostusage report                          # statistics CSV + Markdown
  4. boostusage dashboard                       # static HTML dashboard

Configuration is read from ~/.config/boostusage/config.yaml (or --config),
then overridden by BOOST_SOURCE_PATH, BOOSTUSAGE_DB, BOOSTUSAGE_DATA_DIR,
BOOSTUSAGE_RELEASE_CSV and BOOSTUSAGE_OUTPUT_DIR, then by flags.

Examples:
  # Check what has been loaded so far
  boostusage status

  # Re-ingest everything, ignoring recorded file hashes
  boostusage ingest --force

  # Leave a repository out of every statistic
  boostusage except acme/fork-of-boost`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := getDBPath()
			fmt.Println("boostusage: Boost library usage analysis")
			fmt.Println()
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Println("Run 'boostusage catalog --source <boost checkout>' to get started.")
			} else {
				fmt.Println("Tip: Run 'boostusage status' to see what has been loaded.")
			}
			fmt.Println("     Run 'boostusage --help' for all commands.")
			return nil
		},
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.boostusage/boost_usage.db)")
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/boostusage/config.yaml)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console or json")

	// Enable cobra's built-in suggestion feature for unknown subcommands
	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}

// loadConfig reads the config file and environment, applies global flags
// and initialises the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Writer: os.Stderr})
	return nil
}

// getDBPath returns the database path, using the flag value or the
// configured default, and creates its parent directory.
func getDBPath() (string, error) {
	path := dbPath
	if path == "" {
		path = cfg.DBPath
	}
	if path == ":memory:" {
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return path, nil
}
