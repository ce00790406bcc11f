package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/netagent/netagent/core/scheduler"
	"github.com/netagent/netagent/pkg/client"
	"github.com/spf13/cobra"
)

var (
	serverURL    string
	taskName     string
	scheduleType string
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage the scheduled tasks of a running server",
}

func init() {
	tasksCmd.PersistentFlags().StringVar(&serverURL, "server", "", "netagent API URL (default: NETAGENT_SERVER_URL or http://localhost:8000)")

	createTaskCmd.Flags().StringVar(&taskName, "name", "", "Task name")
	createTaskCmd.Flags().StringVar(&scheduleType, "type", string(scheduler.ScheduleTypeCron), "Schedule type: cron, interval (ms) or once (RFC3339)")

	tasksCmd.AddCommand(listTasksCmd, createTaskCmd, deleteTaskCmd, pauseTaskCmd, resumeTaskCmd, runTaskCmd, taskRunsCmd)
}

func apiClient() *client.Client {
	url := serverURL
	if url == "" {
		url = getEnv("NETAGENT_SERVER_URL", "http://localhost:8000")
	}
	key := ""
	if keys := apiKeys(); len(keys) > 0 {
		key = keys[0]
	}
	return client.NewClient(url, key, 30*time.Second)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var listTasksCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := apiClient().ListTasks(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, tasks)
	},
}

var createTaskCmd = &cobra.Command{
	Use:   "create <schedule> <prompt>",
	Short: "Schedule a prompt",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := apiClient().CreateTask(cmd.Context(), client.TaskRequest{
			Name:          taskName,
			Prompt:        args[1],
			ScheduleType:  scheduler.ScheduleType(scheduleType),
			ScheduleValue: args[0],
		})
		if err != nil {
			return err
		}
		return printJSON(cmd, task)
	},
}

var taskRunsCmd = &cobra.Command{
	Use:   "runs <id>",
	Short: "Show the last runs of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := apiClient().TaskRuns(cmd.Context(), args[0], 20)
		if err != nil {
			return err
		}
		return printJSON(cmd, runs)
	},
}

func taskAction(use, short string, do func(c *client.Client, cmd *cobra.Command, id string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := do(apiClient(), cmd, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

var deleteTaskCmd = taskAction("delete", "Delete a task", func(c *client.Client, cmd *cobra.Command, id string) error {
	return c.DeleteTask(cmd.Context(), id)
})

var pauseTaskCmd = taskAction("pause", "Pause a task", func(c *client.Client, cmd *cobra.Command, id string) error {
	return c.PauseTask(cmd.Context(), id)
})

var resumeTaskCmd = taskAction("resume", "Resume a paused task", func(c *client.Client, cmd *cobra.Command, id string) error {
	return c.ResumeTask(cmd.Context(), id)
})

var runTaskCmd = taskAction("run", "Run a task now", func(c *client.Client, cmd *cobra.Command, id string) error {
	return c.TriggerTask(cmd.Context(), id)
})
