package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	graphstore "github.com/stoneforge-ai/stoneforge-sub017"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage dependency edges",
}

var depAddCmd = &cobra.Command{
	Use:   "add <blocker-id> <blocked-id>",
	Short: "Add a dependency edge",
	Long: `Adds a directed dependency edge. The blocked element depends on the
blocker. Blocking edge types (blocks, awaits, parent-child) may flip the
dependent task to blocked immediately.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		engine, _, err := newEngine(cmd, false)
		if err != nil {
			fail(err)
		}
		actor, _ := cmd.Flags().GetString("actor")
		typeRaw, _ := cmd.Flags().GetString("type")
		metaRaw, _ := cmd.Flags().GetString("metadata")

		var metadata map[string]any
		if metaRaw != "" {
			if err := json.Unmarshal([]byte(metaRaw), &metadata); err != nil {
				fail(fmt.Errorf("invalid metadata: %w", err))
			}
		}

		dep, err := engine.AddDependency(context.Background(), graphstore.AddDependencyInput{
			BlockerID: args[0],
			BlockedID: args[1],
			Type:      domain.DependencyType(typeRaw),
			Metadata:  metadata,
			Actor:     actor,
		})
		if err != nil {
			fail(err)
		}
		printJSON(dep)
	},
}

var depRemoveCmd = &cobra.Command{
	Use:   "remove <blocker-id> <blocked-id>",
	Short: "Remove a dependency edge",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		engine, _, err := newEngine(cmd, false)
		if err != nil {
			fail(err)
		}
		actor, _ := cmd.Flags().GetString("actor")
		typeRaw, _ := cmd.Flags().GetString("type")

		depType, err := domain.ParseDependencyType(typeRaw)
		if err != nil {
			fail(err)
		}
		if err := engine.RemoveDependency(context.Background(), args[1], args[0], depType, actor); err != nil {
			fail(err)
		}
		fmt.Println("removed")
	},
}

var depListCmd = &cobra.Command{
	Use:   "list <id>",
	Short: "List incoming dependency edges for an element",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		engine, _, err := newEngine(cmd, false)
		if err != nil {
			fail(err)
		}
		deps, err := engine.Dependencies(context.Background(), args[0])
		if err != nil {
			fail(err)
		}
		printJSON(deps)
	},
}

func init() {
	rootCmd.AddCommand(depCmd)
	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRemoveCmd)
	depCmd.AddCommand(depListCmd)

	depAddCmd.Flags().StringP("type", "t", "blocks", "Edge type: blocks, awaits, parent-child or references")
	depAddCmd.Flags().String("metadata", "", "JSON object with edge metadata, e.g. a timer gate spec")
	depRemoveCmd.Flags().StringP("type", "t", "blocks", "Edge type")
}
