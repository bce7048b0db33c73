// Package main is a command line client printing departures for a set of stops.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	stopsFlag    []string
	patternsFlag []string
)

var rootCmd = &cobra.Command{
	Use:          "departures",
	Short:        "Shows upcoming departures for transit stops",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVarP(&stopsFlag, "stops", "s", nil, "Comma-separated stop IDs (defaults to the first configured card)")
	rootCmd.PersistentFlags().StringSliceVarP(&patternsFlag, "patterns", "p", nil, "Comma-separated pattern IDs matching --stops, _ for none")
	rootCmd.AddCommand(onceCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
