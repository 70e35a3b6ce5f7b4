package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-eeg/eeg/sink"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Manage the active scoring model",
}

var modelActivateCmd = &cobra.Command{
	Use:   "activate <version>",
	Short: "Make a model version active for new analyses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRegistry(cmd, func(r *sink.ModelRegistry) error {
			m, err := r.Activate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active model: %s (since %s)\n", m.Version, m.ActivatedAt.Format("2006-01-02 15:04:05"))
			return nil
		})
	},
}

var modelShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRegistry(cmd, func(r *sink.ModelRegistry) error {
			m, ok := r.Current()
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "no active model; results carry %s\n", cfg.Scorer().Version())
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "active model: %s (since %s)\n", m.Version, m.ActivatedAt.Format("2006-01-02 15:04:05"))
			return nil
		})
	},
}

func init() {
	modelCmd.AddCommand(modelActivateCmd)
	modelCmd.AddCommand(modelShowCmd)
}

func withRegistry(cmd *cobra.Command, fn func(*sink.ModelRegistry) error) error {
	b, err := openBackend(cmd.Context())
	if err != nil {
		return err
	}
	defer b.close()
	if b.sqlite == nil {
		return fmt.Errorf("the model registry is stored in the sqlite sink, not %s", cfg.Sink.Kind)
	}
	return fn(b.models)
}
