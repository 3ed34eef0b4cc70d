package main

import (
	"context"

	"github.com/spf13/cobra"
)

var readyCmd = &cobra.Command{
	Use:   "ready",
	Short: "List tasks that are actionable right now",
	Long:  `Lists tasks whose effective status is open or in progress.`,
	Run: func(cmd *cobra.Command, args []string) {
		engine, _, err := newEngine(cmd, false)
		if err != nil {
			fail(err)
		}
		tasks, err := engine.Ready(context.Background())
		if err != nil {
			fail(err)
		}
		printJSON(tasks)
	},
}

var blockedCmd = &cobra.Command{
	Use:   "blocked",
	Short: "List tasks whose effective status is blocked",
	Run: func(cmd *cobra.Command, args []string) {
		engine, _, err := newEngine(cmd, false)
		if err != nil {
			fail(err)
		}
		tasks, err := engine.Blocked(context.Background())
		if err != nil {
			fail(err)
		}
		printJSON(tasks)
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events <id>",
	Short: "Show the audit trail for an element, oldest first",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		engine, _, err := newEngine(cmd, false)
		if err != nil {
			fail(err)
		}
		events, err := engine.Events(context.Background(), args[0])
		if err != nil {
			fail(err)
		}
		printJSON(events)
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <id>",
	Short: "Re-derive the blocked status of an element and its dependents",
	Long: `Forces a reconciliation pass. Timer gates are evaluated lazily, so a
deadline that elapsed with no other mutation needs an explicit pass to
release the task.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		engine, _, err := newEngine(cmd, false)
		if err != nil {
			fail(err)
		}
		if err := engine.Reconcile(context.Background(), args[0]); err != nil {
			fail(err)
		}
		showElement(engine, args[0])
	},
}

func init() {
	rootCmd.AddCommand(readyCmd)
	rootCmd.AddCommand(blockedCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(reconcileCmd)
}
