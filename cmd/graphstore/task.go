package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stoneforge-ai/stoneforge-sub017/pkg/domain"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create and manage tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new task",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		engine, _, err := newEngine(cmd, false)
		if err != nil {
			fail(err)
		}
		actor, _ := cmd.Flags().GetString("actor")
		statusRaw, _ := cmd.Flags().GetString("status")

		status, err := domain.ParseStatus(statusRaw)
		if err != nil {
			fail(err)
		}

		task := domain.NewTask(args[0], status)
		task.CreatedBy = actor
		if err := engine.CreateElement(context.Background(), task); err != nil {
			fail(err)
		}
		printJSON(task)
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Set a task's explicit status",
	Long: `Sets the task's explicit status. The blocked status is computed from
the dependency graph and cannot be set here.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		engine, _, err := newEngine(cmd, false)
		if err != nil {
			fail(err)
		}
		actor, _ := cmd.Flags().GetString("actor")

		status, err := domain.ParseStatus(args[1])
		if err != nil {
			fail(err)
		}
		if err := engine.UpdateStatus(context.Background(), args[0], status, actor); err != nil {
			fail(err)
		}
		showElement(engine, args[0])
	},
}

var taskCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a task and release anything it was blocking",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		engine, _, err := newEngine(cmd, false)
		if err != nil {
			fail(err)
		}
		actor, _ := cmd.Flags().GetString("actor")

		if err := engine.CloseTask(context.Background(), args[0], actor); err != nil {
			fail(err)
		}
		showElement(engine, args[0])
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an element",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		engine, _, err := newEngine(cmd, false)
		if err != nil {
			fail(err)
		}
		showElement(engine, args[0])
	},
}

func showElement(engine interface {
	GetElement(ctx context.Context, id string) (*domain.Element, error)
}, id string) {
	el, err := engine.GetElement(context.Background(), id)
	if err != nil {
		fail(err)
	}
	printJSON(el)
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fail(err)
	}
	fmt.Println(string(out))
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(taskCloseCmd)
	taskCmd.AddCommand(taskShowCmd)

	taskCreateCmd.Flags().String("status", "open", "Initial status")
}
