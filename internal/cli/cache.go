package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheInvalidateCmd)

	cacheInvalidateCmd.Flags().String("tool", "", "restrict invalidation to this tool (all tools if empty)")
	cacheInvalidateCmd.Flags().String("project", "", "restrict invalidation to this project (requires --tool)")
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and invalidate the result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache size and lifetime hit/miss/eviction counters",
	RunE:  runCacheStats,
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	var result map[string]any
	if err := apiGet("/cache/stats", &result); err != nil {
		return err
	}
	return printJSON(cmd, result)
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Invalidate cached results (all, by tool, or by tool+project)",
	RunE:  runCacheInvalidate,
}

func runCacheInvalidate(cmd *cobra.Command, args []string) error {
	toolName, _ := cmd.Flags().GetString("tool")
	projectID, _ := cmd.Flags().GetString("project")

	req := map[string]any{"tool_name": toolName, "project_id": projectID}
	var result map[string]any
	if err := apiPost("/cache/invalidate", req, &result); err != nil {
		return err
	}
	return printJSON(cmd, result)
}
