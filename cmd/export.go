package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/service"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every reference as JSON or a spreadsheet",
	Long: `Export writes the stored collection as a JSON array that "import" accepts,
or as an .xlsx workbook.

Examples:
  ./refsys export > references.json
  ./refsys export --format xlsx --out references.xlsx`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format (json or xlsx)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	var write func(io.Writer, []model.Reference) error
	switch exportFormat {
	case "json":
		write = service.ExportJSON
	case "xlsx":
		write = service.ExportXLSX
	default:
		return fmt.Errorf("unknown export format %q", exportFormat)
	}

	ctx := context.Background()
	refs, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	all, err := refs.LoadAll(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return write(out, all)
}
