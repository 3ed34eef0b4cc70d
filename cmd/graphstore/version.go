package main

import (
	"fmt"

	"github.com/spf13/cobra"

	graphstore "github.com/stoneforge-ai/stoneforge-sub017"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of graphstore",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("graphstore version %s\n", graphstore.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
