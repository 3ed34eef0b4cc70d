package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "graphstore",
	Short: "Graphstore is a dependency-aware task graph store",
	Long: `Graphstore stores tasks and their dependency edges and keeps each
task's blocked status in sync with the graph. Blocking edges, timer
gates and parent-child hierarchies all feed into the computed status.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (optional)")
	rootCmd.PersistentFlags().String("actor", "cli", "Actor recorded in the audit log")
}
