package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/logging"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace every reference with the sample set",
	Long: `Reset overwrites the stored collection with the sample references,
discarding every change. Stored data that can no longer be read is
overwritten as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return fmt.Errorf("reset discards all references; pass --yes to confirm")
		}

		ctx := context.Background()
		refs, closeStore, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		if err := refs.Reset(ctx); err != nil {
			return err
		}
		logging.New("reset").Infof("Reset to %d sample references", len(refs.Seed()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Confirm the reset")
}
