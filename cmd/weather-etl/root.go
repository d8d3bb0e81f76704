package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "weather-etl",
	Short: "Harmonize amateur and professional weather station observations",
	Long: "weather-etl reads raw per-day station exports, harmonizes them into\n" +
		"canonical weather records, validates them, loads the survivors into\n" +
		"MongoDB, and reports per-run data quality.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(genmockCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
