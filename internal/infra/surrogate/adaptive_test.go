package surrogate

import "testing"

func TestStabilityScoreConstantSeriesIsOne(t *testing.T) {
	s := stabilityScore([]float64{1, 1, 1, 1})
	if s != 1.0 {
		t.Errorf("stabilityScore(constant) = %v, want 1.0", s)
	}
}

func TestStabilityScoreDropsWithVariance(t *testing.T) {
	calm := stabilityScore([]float64{1, 1.01, 0.99, 1})
	wild := stabilityScore([]float64{0, 10, -10, 20})
	if wild >= calm {
		t.Errorf("expected wild stability (%v) < calm stability (%v)", wild, calm)
	}
}

func TestConvergenceScoreMonotoneIsOne(t *testing.T) {
	c := convergenceScore([]float64{1, 2, 3, 4})
	if c != 1.0 {
		t.Errorf("convergenceScore(monotone) = %v, want 1.0", c)
	}
}

func TestConvergenceScoreStalledIsLow(t *testing.T) {
	c := convergenceScore([]float64{5, 4, 3, 2, 1})
	if c != 0.0 {
		t.Errorf("convergenceScore(strictly decreasing) = %v, want 0.0", c)
	}
}

func TestAdaptiveResetsOnInstability(t *testing.T) {
	gp := New(DefaultConfig())
	gp.SetKernel(DefaultKernel(KernelCombined))
	a := NewAdaptive(gp, DefaultAdaptiveConfig())

	X := [][]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0.5, 0.5}, {0.2, 0.8}}
	y := []float64{0, 100, -100, 50, -50, 75}
	if err := gp.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	for i := 0; i < 5; i++ {
		a.Observe()
	}
	if gp.Kernel().Kind != KernelRBF {
		t.Errorf("expected reset to RBF on unstable samples, got %v", gp.Kernel().Kind)
	}
}
