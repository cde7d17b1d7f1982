package paramspace

import "github.com/holomesh/cadopt/internal/domain"

// DefaultRegistry returns a registry seeded with a small set of reference
// EDA tool definitions, enough to drive the reference evaluator and the
// end-to-end tests. Real deployments register their own tool definitions
// from the `tools.*` configuration instead.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(ToolDefinition{
		Name: "yosys",
		Descriptors: []domain.Descriptor{
			{Name: "optimization_level", Kind: domain.IntegerKind, Min: 0, Max: 3},
			{Name: "abc_optimization", Kind: domain.BooleanKind, Min: 0, Max: 1},
			{Name: "flatten_before_synthesis", Kind: domain.BooleanKind, Min: 0, Max: 1},
			{Name: "dfflibmap", Kind: domain.BooleanKind, Min: 0, Max: 1},
		},
		DefaultParameters: domain.ParamMap{
			"optimization_level":       domain.IntValue(2),
			"abc_optimization":         domain.BoolValue(true),
			"flatten_before_synthesis": domain.BoolValue(false),
			"dfflibmap":                domain.BoolValue(true),
		},
		SupportedModes: []domain.InteractionMode{
			domain.ModeProfessional, domain.ModeInnovative, domain.ModeManual,
		},
	})

	r.Register(ToolDefinition{
		Name: "nextpnr",
		Descriptors: []domain.Descriptor{
			{Name: "seed", Kind: domain.IntegerKind, Min: 1, Max: 1000},
			{Name: "timing_driven", Kind: domain.BooleanKind, Min: 0, Max: 1},
			{Name: "global_placement", Kind: domain.BooleanKind, Min: 0, Max: 1},
			{Name: "detailed_routing", Kind: domain.BooleanKind, Min: 0, Max: 1},
		},
		DefaultParameters: domain.ParamMap{
			"seed":             domain.IntValue(1),
			"timing_driven":    domain.BoolValue(true),
			"global_placement": domain.BoolValue(true),
			"detailed_routing": domain.BoolValue(true),
		},
		SupportedModes: []domain.InteractionMode{
			domain.ModeProfessional, domain.ModeSemiAutomatic,
		},
	})

	r.Register(ToolDefinition{
		Name: "verilator",
		Descriptors: []domain.Descriptor{
			{Name: "timing_analysis", Kind: domain.BooleanKind, Min: 0, Max: 1},
			{Name: "coverage_analysis", Kind: domain.BooleanKind, Min: 0, Max: 1},
			{Name: "optimization_level", Kind: domain.IntegerKind, Min: 0, Max: 3},
			{Name: "sim_mode", Kind: domain.CategoricalKind, Options: []string{"behavioral", "rtl", "gate"}},
		},
		DefaultParameters: domain.ParamMap{
			"timing_analysis":    domain.BoolValue(false),
			"coverage_analysis":  domain.BoolValue(true),
			"optimization_level": domain.IntValue(1),
			"sim_mode":           domain.StringValue("rtl"),
		},
		SupportedModes: []domain.InteractionMode{
			domain.ModeProfessional, domain.ModeManual, domain.ModeSemiAutomatic,
		},
	})

	return r
}
