// eegscan analyzes EEG recordings: band powers, a placeholder seizure-risk
// score and a short interpretation.
//
// Usage:
//
//	eegscan analyze <file.edf>... [-o table|json|yaml]
//	eegscan bands <file.edf>
//	eegscan synth <out.edf> [--preset alpha|beta] [--seconds 30]
//	eegscan status [job-id]
//	eegscan model activate <version> | show
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-eeg/internal/config"
	"github.com/cwbudde/algo-eeg/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	cfg        config.Config
)

var rootCmd = &cobra.Command{
	Use:   "eegscan",
	Short: "Spectral EEG analysis with a heuristic clinical summary",
	Long: "eegscan filters EEG recordings, estimates delta, theta, alpha and beta\n" +
		"band power with Welch's method and scores them with a placeholder policy.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(bandsCmd)
	rootCmd.AddCommand(synthCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(modelCmd)
	rootCmd.Version = version
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.Init(level, cfg.Log.Format, cmd.ErrOrStderr())
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
