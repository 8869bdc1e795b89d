package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/boostusage/internal/catalog"
	"github.com/blackwell-systems/boostusage/internal/output"
	"github.com/blackwell-systems/boostusage/internal/store"
)

var (
	catalogSource string
	catalogCSV    string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Seed the Boost library and header catalog",
	Long: `Seed the boost_library and boost_header tables.

Headers are read either from a Boost source checkout (every .hpp, .h, .ipp
and .hxx file under boost/) or from a CSV with library, header_name and
full_header_name columns. Seeding is idempotent: headers already in the
catalog are left alone.

Ingest refuses to run until the catalog holds at least one header.`,
	Example: `  # From a Boost checkout
  boostusage catalog --source ~/src/boost

  # From BOOST_SOURCE_PATH or boost_source_path in config.yaml
  boostusage catalog

  # From an exported header list
  boostusage catalog --csv boost_headers.csv`,
	RunE: runCatalog,
}

func init() {
	catalogCmd.Flags().StringVar(&catalogSource, "source", "", "Boost source checkout (default: boost_source_path)")
	catalogCmd.Flags().StringVar(&catalogCSV, "csv", "", "catalog CSV with library,header_name,full_header_name")
	catalogCmd.MarkFlagsMutuallyExclusive("source", "csv")
	RootCmd.AddCommand(catalogCmd)
}

func runCatalog(cmd *cobra.Command, args []string) error {
	entries, from, err := readCatalog()
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	spinner := output.NewSpinner(fmt.Sprintf("Seeding %d headers from %s", len(entries), from))
	spinner.Start()
	added, err := st.UpsertCatalog(entries)
	spinner.Stop()
	if err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	total, err := st.CountHeaders()
	if err != nil {
		return err
	}
	libs, err := st.ListLibraries()
	if err != nil {
		return err
	}

	fmt.Printf("✓ Added %d headers (%d headers in %d libraries)\n", added, total, len(libs))
	return nil
}

func readCatalog() ([]store.CatalogEntry, string, error) {
	if catalogCSV != "" {
		entries, err := catalog.FromCSVFile(catalogCSV)
		if err != nil {
			return nil, "", err
		}
		return entries, catalogCSV, nil
	}

	source := catalogSource
	if source == "" {
		source = cfg.BoostSourcePath
	}
	if source == "" {
		return nil, "", errors.New("no catalog source: pass --source or --csv, or set BOOST_SOURCE_PATH")
	}
	entries, err := catalog.FromSourceTree(source)
	if err != nil {
		return nil, "", err
	}
	return entries, source, nil
}
