package cmd

import (
	"github.com/spf13/cobra"

	"github.com/imaxct/unbundle/internal/config"
)

// initConfigCmd writes a default configuration file so users have a
// template to edit instead of guessing at keys.
var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a default configuration file.",
	Args:  cobra.MaximumNArgs(1),
	// The root PersistentPreRunE would fail on a missing explicit config,
	// which is exactly the situation this command exists to fix.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "unbundle.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		return config.SaveConfig(path)
	},
}
