package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskEnqueueCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(taskCancelCmd)
	taskCmd.AddCommand(taskWatchCmd)

	taskEnqueueCmd.Flags().String("project", "", "project id")
	taskEnqueueCmd.Flags().Int("priority", 0, "task priority (higher runs first)")
	taskEnqueueCmd.Flags().StringArray("param", nil, "parameter as name=value, repeatable")

	taskListCmd.Flags().String("status", "", "filter by status (pending, running, completed, failed, cancelled)")
}

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Enqueue and inspect optimization tasks",
}

var taskEnqueueCmd = &cobra.Command{
	Use:   "enqueue TOOL_NAME",
	Short: "Record a task on the queue without running it synchronously",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskEnqueue,
}

func runTaskEnqueue(cmd *cobra.Command, args []string) error {
	toolName := args[0]
	projectID, _ := cmd.Flags().GetString("project")
	priority, _ := cmd.Flags().GetInt("priority")
	paramFlags, _ := cmd.Flags().GetStringArray("param")

	params, err := parseKVStrings(paramFlags)
	if err != nil {
		return fmt.Errorf("--param: %w", err)
	}

	req := map[string]any{
		"tool_name":  toolName,
		"project_id": projectID,
		"priority":   priority,
		"params":     params,
	}
	var result map[string]any
	if err := apiPost("/tasks", req, &result); err != nil {
		return err
	}
	return printJSON(cmd, result)
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered by status",
	RunE:  runTaskList,
}

func runTaskList(cmd *cobra.Command, args []string) error {
	status, _ := cmd.Flags().GetString("status")
	path := "/tasks"
	if status != "" {
		path += "?status=" + status
	}
	var result []map[string]any
	if err := apiGet(path, &result); err != nil {
		return err
	}
	return printJSON(cmd, result)
}

var taskStatusCmd = &cobra.Command{
	Use:   "status TASK_ID",
	Short: "Fetch a task's current status snapshot",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskStatus,
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	var result map[string]any
	if err := apiGet("/tasks/"+args[0], &result); err != nil {
		return err
	}
	return printJSON(cmd, result)
}

var taskCancelCmd = &cobra.Command{
	Use:   "cancel TASK_ID",
	Short: "Cancel a pending task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskCancel,
}

func runTaskCancel(cmd *cobra.Command, args []string) error {
	var result map[string]any
	if err := apiPost("/tasks/"+args[0]+"/cancel", map[string]any{}, &result); err != nil {
		return err
	}
	return printJSON(cmd, result)
}

var taskWatchCmd = &cobra.Command{
	Use:   "watch TASK_ID",
	Short: "Stream a task's progress events until the connection closes",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskWatch,
}

func runTaskWatch(cmd *cobra.Command, args []string) error {
	resp, err := httpClient.Get(apiBaseURL + "/tasks/" + args[0] + "/progress")
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if payload, ok := strings.CutPrefix(line, "data: "); ok {
			fmt.Fprintln(cmd.OutOrStdout(), payload)
		}
	}
	return scanner.Err()
}
