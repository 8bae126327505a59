// Package cmd provides the CLI commands for cflp.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cflp/internal/buildinfo"
	"cflp/internal/config"
	"cflp/internal/logging"
)

var (
	cfgFile string
	verbose bool
	cfg     = config.Default()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cflp",
	Short: "Plan capacitated facility locations",
	Long: `cflp opens facilities at candidate sites so every demand point is
served within tier capacity, at low fixed plus distance-weighted cost.

Examples:
  cflp demand points.json
  cflp solve points.json
  cflp solve --format json --output heuristic.json points.json
  cflp compare heuristic.json gurobi.json cplex.json`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (solver tiers and defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(demandCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	logCfg := cfg.Log
	logCfg.Format = "console"
	if verbose {
		logCfg.Level = "debug"
	}
	if err := logging.Initialize(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "cflp version", buildinfo.String())
	},
}
