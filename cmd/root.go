package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/config"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/logging"
)

// cfg is read before any init registers flags that default to its values
var cfg = config.LoadConfig()

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "refsys",
	Short: "Panel wiring reference library",
	Long: `A catalog of documented panel wiring examples with an optional
AI-assisted standards audit of each reference image.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			cfg.LogFormat = logFormat
		}
		logging.Init(cfg.LogLevel, cfg.LogFormat)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", cfg.LogFormat, "Log format (text or json)")
	rootCmd.PersistentFlags().StringVar(&cfg.StorageDriver, "storage", cfg.StorageDriver, "Storage driver (file, postgres, redis or memory)")
	rootCmd.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory for the file storage driver")
}
