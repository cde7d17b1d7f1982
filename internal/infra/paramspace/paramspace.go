// Package paramspace encodes parameter names, bounds, and types, and
// converts between the dense normalized vector surrogates train on and the
// original-typed parameter maps callers see.
//
// A uniform [0,1]^d vector lets all kernels share one distance metric and
// all acquisition candidates share one sampler.
package paramspace

import (
	"math"
	"math/rand"
	"sync"

	"github.com/holomesh/cadopt/internal/domain"
)

// ToolDefinition is the registry entry for one CAD tool: its parameter
// descriptors, default parameter values, and the interaction modes it
// supports.
type ToolDefinition struct {
	Name              string
	Descriptors       []domain.Descriptor
	DefaultParameters domain.ParamMap
	SupportedModes    []domain.InteractionMode
}

// Registry is an in-memory tool → parameter-space lookup, the
// configuration-injected counterpart of the `tools.{tool}.*` config
// section.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ToolDefinition
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]ToolDefinition)}
}

// Register adds or replaces a tool's definition.
func (r *Registry) Register(def ToolDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[def.Name] = def
}

// Lookup returns a tool's definition and whether it is registered.
func (r *Registry) Lookup(toolName string) (ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[toolName]
	return def, ok
}

// DescriptorsFor returns the descriptor list for a tool, or
// domain.ErrUnknownTool if it is not registered.
func (r *Registry) DescriptorsFor(toolName string) ([]domain.Descriptor, error) {
	def, ok := r.Lookup(toolName)
	if !ok {
		return nil, domain.ErrUnknownTool
	}
	return def.Descriptors, nil
}

// SupportedModes returns the interaction modes a tool declares support for.
func (r *Registry) SupportedModes(toolName string) []domain.InteractionMode {
	def, ok := r.Lookup(toolName)
	if !ok {
		return nil
	}
	return def.SupportedModes
}

// Default bound inference for parameters a tool config doesn't
// explicitly range.

var knownIntegerDefaults = map[string][2]float64{
	"optimization_level": {0, 3},
	"seed":               {1, 1000},
}

var knownBooleanNames = map[string]bool{
	"abc_optimization":         true,
	"flatten_before_synthesis": true,
	"dfflibmap":                true,
	"timing_analysis":          true,
	"coverage_analysis":        true,
	"timing_driven":            true,
	"global_placement":         true,
	"detailed_placement":       true,
	"global_routing":           true,
	"detailed_routing":         true,
	"clock_tree_synthesis":     true,
}

// InferDescriptor builds a descriptor for a parameter that has no explicit
// range configured: known tool flags get their conventional bounds,
// everything else falls back to a generic numeric range.
func InferDescriptor(name string, v domain.Value) domain.Descriptor {
	switch v.Kind {
	case domain.KindBool:
		return domain.Descriptor{Name: name, Kind: domain.BooleanKind, Min: 0, Max: 1}
	case domain.KindString:
		// Single-option categorical: only the observed value is valid.
		return domain.Descriptor{Name: name, Kind: domain.CategoricalKind, Options: []string{v.Str}}
	default:
		if bounds, ok := knownIntegerDefaults[name]; ok {
			return domain.Descriptor{Name: name, Kind: IntegerKindFor(v), Min: bounds[0], Max: bounds[1]}
		}
		if knownBooleanNames[name] {
			return domain.Descriptor{Name: name, Kind: domain.BooleanKind, Min: 0, Max: 1}
		}
		if v.Kind == domain.KindInt {
			return domain.Descriptor{Name: name, Kind: domain.IntegerKind, Min: -10, Max: 10}
		}
		return domain.Descriptor{Name: name, Kind: domain.ContinuousKind, Min: -10, Max: 10}
	}
}

// IntegerKindFor picks IntegerKind for int-valued defaults, ContinuousKind
// for float-valued ones (optimization_level/seed are conventionally ints,
// but the helper stays generic over the observed Value's kind).
func IntegerKindFor(v domain.Value) domain.ParameterKind {
	if v.Kind == domain.KindInt {
		return domain.IntegerKind
	}
	return domain.ContinuousKind
}

// ─── Normalize / Denormalize ────────────────────────────────────────────────

// Normalize produces the dense [0,1]^d vector a surrogate trains on, in
// the fixed order of descriptors. Parameters without a descriptor do not
// enter the vector (identity passthrough is handled at Denormalize time
// via the template map).
func Normalize(params domain.ParamMap, descriptors []domain.Descriptor) []float64 {
	vec := make([]float64, len(descriptors))
	for i, d := range descriptors {
		v, ok := params[d.Name]
		if !ok {
			vec[i] = 0.5 // descriptor referenced but value missing: midpoint
			continue
		}
		vec[i] = normalizeOne(v, d)
	}
	return vec
}

func normalizeOne(v domain.Value, d domain.Descriptor) float64 {
	switch d.Kind {
	case domain.BooleanKind:
		if v.Kind == domain.KindBool {
			if v.Bool {
				return 1.0
			}
			return 0.0
		}
		if f, ok := v.Float(); ok && f != 0 {
			return 1.0
		}
		return 0.0
	case domain.CategoricalKind:
		idx := indexOfOption(d.Options, v.Str)
		if len(d.Options) <= 1 {
			return 0
		}
		return clamp01(float64(idx) / float64(len(d.Options)-1))
	default: // ContinuousKind, IntegerKind
		f, ok := v.Float()
		if !ok {
			return 0.5
		}
		if d.Max == d.Min {
			return 0.5
		}
		return clamp01((f - d.Min) / (d.Max - d.Min))
	}
}

func indexOfOption(options []string, val string) int {
	for i, o := range options {
		if o == val {
			return i
		}
	}
	return 0
}

// Denormalize maps a normalized vector back to a typed parameter map,
// starting from template (which carries unknown/passthrough parameters
// unchanged). Out-of-range values clamp to [0,1] before conversion;
// integers round after denormalization; categoricals round to the nearest
// valid index.
func Denormalize(vector []float64, descriptors []domain.Descriptor, template domain.ParamMap) domain.ParamMap {
	out := template.Clone()
	for i, d := range descriptors {
		if i >= len(vector) {
			break
		}
		x := clamp01(vector[i])
		out[d.Name] = denormalizeOne(x, d)
	}
	return out
}

func denormalizeOne(x float64, d domain.Descriptor) domain.Value {
	switch d.Kind {
	case domain.BooleanKind:
		return domain.BoolValue(x >= 0.5)
	case domain.CategoricalKind:
		if len(d.Options) == 0 {
			return domain.StringValue("")
		}
		idx := int(math.Round(x * float64(len(d.Options)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(d.Options) {
			idx = len(d.Options) - 1
		}
		return domain.StringValue(d.Options[idx])
	case domain.IntegerKind:
		val := d.Min + x*(d.Max-d.Min)
		val = math.Round(val)
		val = clampf(val, d.Min, d.Max)
		return domain.IntValue(int64(val))
	default: // ContinuousKind
		val := d.Min + x*(d.Max-d.Min)
		val = clampf(val, d.Min, d.Max)
		return domain.FloatValue(val)
	}
}

// RandomSample draws a uniform random parameter configuration within the
// descriptors' bounds.
func RandomSample(descriptors []domain.Descriptor, rng *rand.Rand) domain.ParamMap {
	out := make(domain.ParamMap, len(descriptors))
	for _, d := range descriptors {
		out[d.Name] = denormalizeOne(rng.Float64(), d)
	}
	return out
}

func clamp01(x float64) float64 { return clampf(x, 0, 1) }

func clampf(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
