// factbind is a small CLI over the typed fact binding layer: it loads
// Mangle programs, asserts facts from a YAML file, evaluates rules and
// inspects the resulting working memory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"factbind/internal/config"
	"factbind/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	programs   []string
	factsPath  string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "factbind",
	Short: "Typed fact binding over a Mangle engine",
	Long: `factbind loads Mangle programs into an engine environment, asserts
typed facts against declared templates, evaluates rules to fixpoint and
inspects working memory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Logging.JSON)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to factbind.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringSliceVarP(&programs, "program", "p", nil, "Mangle source file (repeatable)")
	rootCmd.PersistentFlags().StringVarP(&factsPath, "facts", "f", "", "YAML facts file to assert")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(templatesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
