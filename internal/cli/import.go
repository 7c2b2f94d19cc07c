package cli

import (
	"fmt"

	"cuprecap/internal/config"
	"cuprecap/internal/importer"
	"cuprecap/internal/storage/sqlite"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importOrdersCmd)
	importCmd.AddCommand(importRankingsCmd)
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load order exports and ranking feeds into the local database",
}

var importOrdersCmd = &cobra.Command{
	Use:   "orders FILE",
	Short: "Import customers and their orders from a YAML or JSON export",
	Long: `Import customers and their orders. Orders already stored (same id) are
skipped, so the same export can be imported repeatedly.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportOrders,
}

var importRankingsCmd = &cobra.Command{
	Use:   "rankings FILE",
	Short: "Import population ranks and titles from a YAML or JSON feed",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportRankings,
}

func runImportOrders(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	histories, err := importer.LoadHistory(args[0], cfg.Location)
	if err != nil {
		return err
	}
	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := importer.ImportHistory(db, histories)
	fmt.Fprintln(cmd.OutOrStdout(), importer.FormatImportSummary(result))
	return err
}

func runImportRankings(cmd *cobra.Command, args []string) error {
	cfg := config.LoadConfig()
	entries, err := importer.LoadRankings(args[0])
	if err != nil {
		return err
	}
	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := importer.ImportRankings(db, entries)
	fmt.Fprintf(cmd.OutOrStdout(), "Imported rankings for %d customers.\n", n)
	return err
}
