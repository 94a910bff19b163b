// Package cmd implements the command line interface for the application.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/imaxct/unbundle/internal/config"
	"github.com/imaxct/unbundle/internal/unpacker"
)

var (
	cfgFile string         // Variable to hold the config file path from the flag
	cfg     *config.Config // Global variable to hold the loaded configuration

	// Flag variables mapped to config fields for override
	silentMode      bool   // -> cfg.Silent
	showSummary     bool   // -> cfg.Summary
	outputDir       string // -> cfg.OutputDir
	extract         bool   // -> cfg.Passes.Extract.Enabled
	foldConditions  bool   // -> cfg.Passes.FoldConditions.Enabled
	reorderSwitches bool   // -> cfg.Passes.ReorderSwitches.Enabled
)

// rootCmd represents the base command. The input file is the single
// positional argument; there is no separate run subcommand.
var rootCmd = &cobra.Command{
	Use:   "unbundle <input-file>",
	Short: "Unpack a bundled JavaScript file into per-module artifacts.",
	Long: `unbundle slices module registration calls out of a packed bundle,
resolves constant branch conditions, and recovers the case order of
switch dispatch loops scrambled through array swaps. Outputs are written
beside the input file unless an output directory is given.`,
	Args: cobra.ExactArgs(1),
	// PersistentPreRunE runs before any subcommand's RunE.
	// Use this to load configuration early.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil { // Only load config once
			loadedCfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("error loading configuration: %w", err)
			}
			cfg = loadedCfg
			applyFlagOverrides(cfg, cmd)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		inputPath := args[0]

		ctx := &unpacker.Context{Config: cfg}
		res, err := unpacker.ProcessFile(inputPath, ctx)
		if err != nil {
			return err
		}

		dir := cfg.OutputDir
		if dir == "" {
			dir = filepath.Dir(inputPath)
		}
		if err := unpacker.WriteOutputs(res, dir); err != nil {
			return err
		}

		if !cfg.Silent {
			config.PrintInfo("Info: wrote %d artifacts and %s to %s\n",
				len(res.Artifacts), res.MainName, dir)
			config.PrintInfo("Info: %d conditions folded, %d dispatch loops reordered, %d conditions folded after reordering\n",
				res.FoldedConditions, res.ReorderedLoops, res.RefoldedConditions)
			if res.SkippedCalls > 0 {
				config.PrintInfo("Info: %d registration calls skipped\n", res.SkippedCalls)
			}
		}
		if cfg.Summary {
			printSummary(res)
		}
		return nil
	},
}

// printSummary renders the per-artifact table.
func printSummary(res *unpacker.Result) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Module", "File", "Symbol"})
	table.SetBorder(false)
	for _, a := range res.Artifacts {
		table.Append([]string{a.Module, a.FileName, a.Symbol})
	}
	table.Render()
}

// applyFlagOverrides applies command-line flag values to the config struct.
// Only overrides if the flag was explicitly set by the user via cmd.Flags().Changed().
func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("silent") {
		cfg.Silent = silentMode
	}
	if cmd.Flags().Changed("summary") {
		cfg.Summary = showSummary
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if cmd.Flags().Changed("extract") {
		cfg.Passes.Extract.Enabled = extract
	}
	if cmd.Flags().Changed("fold-conditions") {
		cfg.Passes.FoldConditions.Enabled = foldConditions
	}
	if cmd.Flags().Changed("reorder-switches") {
		cfg.Passes.ReorderSwitches.Enabled = reorderSwitches
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		// Cobra usually prints the error. We just need to exit non-zero.
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./unbundle.yaml)")

	rootCmd.PersistentFlags().BoolVarP(&silentMode, "silent", "s", false, "Suppress informational output (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&showSummary, "summary", false, "Print a per-artifact summary table (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for outputs (default is beside the input file)")
	rootCmd.PersistentFlags().BoolVar(&extract, "extract", true, "Enable/disable module extraction (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&foldConditions, "fold-conditions", true, "Enable/disable constant condition folding (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&reorderSwitches, "reorder-switches", true, "Enable/disable switch dispatch reordering (overrides config)")

	rootCmd.AddCommand(initConfigCmd)
}
