package domain

// SimilarProject is a record in the similarity/project database:
// (project_id, tool_name, optimal_config, context, performance_metrics,
// similarity_score).
type SimilarProject struct {
	ProjectID          string
	ToolName           string
	OptimalConfig      ParamMap
	Context            map[string]string
	PerformanceMetrics map[string]float64
	SimilarityScore    float64
}
