// Package acquisition implements Expected Improvement scoring and the
// candidate search strategies consult to pick the next point to evaluate.
package acquisition

import (
	"math"
	"math/rand"

	"github.com/holomesh/cadopt/internal/infra/surrogate"
)

// Xi is the exploration/exploitation trade-off constant in EI's improvement
// margin.
const Xi = 0.01

// Predictor is the minimal surrogate surface EI needs: a posterior mean and
// standard deviation at a point. *surrogate.GP satisfies this.
type Predictor interface {
	Predict(x []float64) (mean, std float64)
}

// ExpectedImprovement scores a candidate against the best observed value so
// far: EI(x) = (μ(x) − y* − ξ)·Φ(Z) + σ(x)·φ(Z), Z = (μ−y*−ξ)/σ.
// Returns 0 when σ(x) == 0 (no uncertainty, nothing to gain).
func ExpectedImprovement(p Predictor, x []float64, best float64) float64 {
	mean, std := p.Predict(x)
	if std <= 0 {
		return 0
	}
	margin := mean - best - Xi
	z := margin / std
	return margin*normalCDF(z) + std*normalPDF(z)
}

// normalCDF approximates the standard normal CDF as ½(1 + tanh(x/√2)),
// close enough for ranking candidates.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Tanh(x/math.Sqrt2))
}

// normalPDF is the exact standard normal density.
func normalPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// Config tunes the candidate search.
type Config struct {
	// Candidates is N, the number of uniform random candidates drawn per
	// search (default: 50).
	Candidates int

	// PerturbSigma is the Gaussian noise scale used to perturb the current
	// best when every candidate's EI is non-positive.
	PerturbSigma float64

	Rand *rand.Rand
}

// DefaultConfig returns the standard search settings.
func DefaultConfig() Config {
	return Config{
		Candidates:   50,
		PerturbSigma: 0.1,
		Rand:         rand.New(rand.NewSource(1)),
	}
}

// Search draws Candidates uniform points in [0,1]^dim, scores each by EI
// against best, and returns the argmax. If the best candidate's EI is
// non-positive, it instead perturbs currentBest by Gaussian noise (σ per
// cfg.PerturbSigma) clamped to [0,1] and returns that.
func Search(p Predictor, dim int, best float64, currentBest []float64, cfg Config) []float64 {
	var bestCandidate []float64
	bestEI := math.Inf(-1)

	for i := 0; i < cfg.Candidates; i++ {
		candidate := make([]float64, dim)
		for d := 0; d < dim; d++ {
			candidate[d] = cfg.Rand.Float64()
		}
		ei := ExpectedImprovement(p, candidate, best)
		if ei > bestEI {
			bestEI = ei
			bestCandidate = candidate
		}
	}

	if bestEI > 0 {
		return bestCandidate
	}

	perturbed := make([]float64, dim)
	for d := 0; d < dim; d++ {
		v := currentBest[d] + cfg.Rand.NormFloat64()*cfg.PerturbSigma
		perturbed[d] = clamp01(v)
	}
	return perturbed
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

var _ Predictor = (*surrogate.GP)(nil)
