package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/logging"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/service"
)

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import references from a JSON export",
	Long: `Import reads a JSON array of references, as written by "export --format json"
or GET /api/references, and saves each one to the configured storage.

References whose id already exists are replaced; identical references are
left untouched. Invalid references are skipped and reported.

Examples:
  # Import into the default file storage
  ./refsys import references.json

  # Import into PostgreSQL
  STORAGE_DRIVER=postgres DATABASE_URL=postgres://... ./refsys import references.json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	log := logging.New("import")

	// Set up context with cancellation on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	refs, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	importer := service.NewImporter(refs)

	log.Infof("Starting import from %s", args[0])
	stats, err := importer.ImportFile(ctx, args[0])
	if err != nil {
		if ctx.Err() != nil {
			log.Warn("Import cancelled")
			if stats != nil {
				importer.PrintSummary(stats)
			}
		}
		return fmt.Errorf("import failed: %w", err)
	}
	importer.PrintSummary(stats)

	if stats.Failed > 0 {
		return fmt.Errorf("%d references failed to import", stats.Failed)
	}
	return nil
}
