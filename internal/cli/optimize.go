package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(optimizeCmd)
	optimizeCmd.Flags().String("project", "", "project id")
	optimizeCmd.Flags().String("strategy", "bayesian", "optimization strategy (bayesian, advanced_bayesian, transfer_learning, ensemble, semi_automatic, manual)")
	optimizeCmd.Flags().Int("budget", 10, "optimization budget (iteration count)")
	optimizeCmd.Flags().String("mode", "professional", "interaction mode (professional, innovative, semi_automatic, manual)")
	optimizeCmd.Flags().Bool("confidential", false, "opt the run out of the result cache and similarity database")
	optimizeCmd.Flags().StringArray("param", nil, "initial parameter as name=value, repeatable")
	optimizeCmd.Flags().StringArray("target", nil, "target metric as name=value, repeatable")

	rootCmd.AddCommand(recommendCmd)
	recommendCmd.Flags().StringArray("ctx", nil, "project context as key=value, repeatable")
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize TOOL_NAME",
	Short: "Run a parameter optimization against a CAD tool",
	Args:  cobra.ExactArgs(1),
	RunE:  runOptimize,
}

func runOptimize(cmd *cobra.Command, args []string) error {
	toolName := args[0]
	projectID, _ := cmd.Flags().GetString("project")
	strategy, _ := cmd.Flags().GetString("strategy")
	budget, _ := cmd.Flags().GetInt("budget")
	mode, _ := cmd.Flags().GetString("mode")
	confidential, _ := cmd.Flags().GetBool("confidential")
	paramFlags, _ := cmd.Flags().GetStringArray("param")
	targetFlags, _ := cmd.Flags().GetStringArray("target")

	params, err := parseKVStrings(paramFlags)
	if err != nil {
		return fmt.Errorf("--param: %w", err)
	}
	targets, err := parseKVFloats(targetFlags)
	if err != nil {
		return fmt.Errorf("--target: %w", err)
	}

	req := map[string]any{
		"tool_name":        toolName,
		"project_id":       projectID,
		"initial_params":   params,
		"target_metrics":   targets,
		"strategy":         strategy,
		"budget":           budget,
		"interaction_mode": mode,
		"confidentiality":  confidential,
	}

	var result map[string]any
	if err := apiPost("/optimize", req, &result); err != nil {
		return err
	}
	return printJSON(cmd, result)
}

var recommendCmd = &cobra.Command{
	Use:   "recommend TOOL_NAME",
	Short: "Fetch recommended parameters for a tool from the similarity database",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecommend,
}

func runRecommend(cmd *cobra.Command, args []string) error {
	toolName := args[0]
	ctxFlags, _ := cmd.Flags().GetStringArray("ctx")
	kv, err := parseKVStrings(ctxFlags)
	if err != nil {
		return fmt.Errorf("--ctx: %w", err)
	}

	query := "/recommendations?tool_name=" + toolName
	for k, v := range kv {
		query += "&ctx." + k + "=" + fmt.Sprint(v)
	}

	var result map[string]any
	if err := apiGet(query, &result); err != nil {
		return err
	}
	return printJSON(cmd, result)
}

// parseKVStrings parses "name=value" pairs into a map[string]any, inferring
// bool and numeric types so a round trip through the API produces the
// expected parameter Kind.
func parseKVStrings(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed pair %q, want name=value", pair)
		}
		out[name] = inferScalar(raw)
	}
	return out, nil
}

func parseKVFloats(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("malformed pair %q, want name=value", pair)
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = f
	}
	return out, nil
}

func inferScalar(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
