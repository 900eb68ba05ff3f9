package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/standards"
)

var auditCmd = &cobra.Command{
	Use:   "audit <reference-id>",
	Short: "Run an AI standards audit of one reference image",
	Long: `Audit sends the image of a stored reference to the audit model and prints
the advisory result as JSON. The result is not saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	auditor, err := newAuditClient(ctx, cfg)
	if err != nil {
		return err
	}
	if auditor == nil {
		return fmt.Errorf("GEMINI_API_KEY is not set")
	}

	checklist, err := standards.Load(cfg.StandardsFile)
	if err != nil {
		return err
	}

	refs, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ref, err := refs.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if ref == nil {
		return fmt.Errorf("reference %s not found", args[0])
	}

	result, err := auditor.AuditImage(ctx, ref.Image, string(ref.Section), checklist.AuditDescription())
	if err != nil {
		return fmt.Errorf("audit of %s failed: %w", ref.ID, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
