package surrogate

import "math"

// AdaptiveConfig tunes the Advanced Bayesian strategy's kernel escalation
// policy: every EvalInterval evaluations, once at least MinSamples
// are in hand, recompute convergence and stability and possibly switch
// kernels.
type AdaptiveConfig struct {
	EvalInterval      int
	MinSamples        int
	ConvergenceWindow int
	StabilityWindow   int
	ConvergenceFloor  float64
	StabilityFloor    float64
}

// DefaultAdaptiveConfig returns the standard policy: every 5 evaluations with
// ≥6 samples, escalate below 0.7 convergence, reset below 0.8 stability.
func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		EvalInterval:      5,
		MinSamples:        6,
		ConvergenceWindow: 5,
		StabilityWindow:   5,
		ConvergenceFloor:  0.7,
		StabilityFloor:    0.8,
	}
}

// Adaptive wraps a GP and walks its kernel through the escalation order as
// recent improvement stalls, resetting to RBF when observations destabilize.
type Adaptive struct {
	gp        *GP
	cfg       AdaptiveConfig
	evalCount int
}

// NewAdaptive constructs an adaptive kernel controller over gp.
func NewAdaptive(gp *GP, cfg AdaptiveConfig) *Adaptive {
	return &Adaptive{gp: gp, cfg: cfg}
}

// Observe is called once per evaluated sample. It increments the internal
// counter and, on an EvalInterval boundary with enough samples, re-scores
// convergence and stability and switches kernels accordingly.
func (a *Adaptive) Observe() {
	a.evalCount++
	n := a.gp.NumSamples()
	if n < a.cfg.MinSamples || a.evalCount%a.cfg.EvalInterval != 0 {
		return
	}

	recent := a.gp.RecentY(a.cfg.ConvergenceWindow)
	convergence := convergenceScore(recent)
	stability := stabilityScore(a.gp.RecentY(a.cfg.StabilityWindow))

	switch {
	case stability < a.cfg.StabilityFloor:
		a.gp.SetKernel(DefaultKernel(KernelRBF))
	case convergence < a.cfg.ConvergenceFloor:
		a.gp.SetKernel(DefaultKernel(a.gp.Kernel().Kind.Next()))
	}
}

// convergenceScore estimates how much recent observations are still
// improving: the fraction of consecutive steps where an entry is at least
// its predecessor, so 1.0 for a monotone non-decreasing window and 0 for a
// strictly decreasing one.
func convergenceScore(y []float64) float64 {
	if len(y) < 2 {
		return 1.0
	}
	improvements := 0
	for i := 1; i < len(y); i++ {
		if y[i] >= y[i-1] {
			improvements++
		}
	}
	return float64(improvements) / float64(len(y)-1)
}

// stabilityScore is 1/(1+std(y)).
func stabilityScore(y []float64) float64 {
	if len(y) == 0 {
		return 1.0
	}
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))

	var variance float64
	for _, v := range y {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(y))
	std := math.Sqrt(variance)
	return 1.0 / (1.0 + std)
}
