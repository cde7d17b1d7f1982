package surrogate

import (
	"math"
	"sync"
)

// Config configures a Gaussian process regressor.
type Config struct {
	// Kernel is the initial covariance function.
	Kernel Kernel

	// Noise is the diagonal regularizer σ² added to the kernel matrix
	// before inversion (K_σ = K + σ²I).
	Noise float64

	// VarianceFloor is the minimum predictive variance returned, guarding
	// against negative or near-zero values from numerical round-off.
	VarianceFloor float64
}

// DefaultConfig returns production defaults: an RBF kernel, light
// observation noise, and a 1e-10 variance floor.
func DefaultConfig() Config {
	return Config{
		Kernel:        DefaultKernel(KernelRBF),
		Noise:         1e-6,
		VarianceFloor: 1e-10,
	}
}

// GP is a Gaussian process regressor over a dense [0,1]^d input space. It
// owns its training matrix and the kernel matrix's inverse; callers must
// not share one GP across concurrent strategy runs; each run owns its
// surrogate exclusively.
type GP struct {
	mu     sync.Mutex
	cfg    Config
	X      [][]float64
	y      []float64
	KInv   [][]float64
	fitted bool
}

// New constructs a GP with the given config.
func New(cfg Config) *GP {
	return &GP{cfg: cfg}
}

// SetKernel swaps the covariance function used on the next Fit, used by
// adaptive kernel switching.
func (g *GP) SetKernel(k Kernel) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg.Kernel = k
}

// Kernel returns the GP's current kernel.
func (g *GP) Kernel() Kernel {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.Kernel
}

// Fit recomputes K_σ^{-1} over the full training set. X and y are copied;
// the GP owns its own storage afterward.
func (g *GP) Fit(X [][]float64, y []float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := len(X)
	g.X = make([][]float64, n)
	for i := range X {
		g.X[i] = append([]float64(nil), X[i]...)
	}
	g.y = append([]float64(nil), y...)

	K := make([][]float64, n)
	for i := 0; i < n; i++ {
		K[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			K[i][j] = g.cfg.Kernel.Cov(g.X[i], g.X[j])
		}
		K[i][i] += g.cfg.Noise
	}

	inv, err := invert(K)
	if err != nil {
		g.fitted = false
		return err
	}
	g.KInv = inv
	g.fitted = true
	return nil
}

// Fitted reports whether Fit has succeeded at least once.
func (g *GP) Fitted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fitted
}

// Predict returns the posterior mean and standard deviation at xStar. An
// unfitted GP predicts zero mean with unit variance, a neutral prior that
// lets acquisition search still explore before any samples exist.
func (g *GP) Predict(xStar []float64) (mean, std float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.fitted || len(g.X) == 0 {
		return 0, 1
	}

	n := len(g.X)
	kStar := make([]float64, n)
	for i := 0; i < n; i++ {
		kStar[i] = g.cfg.Kernel.Cov(xStar, g.X[i])
	}

	// μ = k*ᵀ K_σ^{-1} y
	kInvY := matVec(g.KInv, g.y)
	mean = dot(kStar, kInvY)

	// σ² = k(x*,x*) − k*ᵀ K_σ^{-1} k*
	kss := g.cfg.Kernel.Cov(xStar, xStar)
	kInvKStar := matVec(g.KInv, kStar)
	variance := kss - dot(kStar, kInvKStar)
	if variance < g.cfg.VarianceFloor {
		variance = g.cfg.VarianceFloor
	}
	return mean, math.Sqrt(variance)
}

// NumSamples reports how many training points the GP currently holds.
func (g *GP) NumSamples() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.X)
}

// RecentY returns a copy of the last n observed targets, oldest first,
// used by adaptive kernel switching's stability/convergence estimate.
func (g *GP) RecentY(n int) []float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n > len(g.y) {
		n = len(g.y)
	}
	return append([]float64(nil), g.y[len(g.y)-n:]...)
}
