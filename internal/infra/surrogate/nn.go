package surrogate

import (
	"math"
	"math/rand"
	"sync"
)

// NNConfig configures the one-hidden-layer ReLU co-surrogate. It
// never replaces the GP; its prediction only biases acquisition scoring.
type NNConfig struct {
	HiddenUnits  int
	LearningRate float64
	Epochs       int

	// RetrainBaseline and RetrainInterval together implement "retrained
	// periodically (e.g., every 10 new samples beyond the first 20)":
	// retrain fires once NumSamples() >= RetrainBaseline and then every
	// RetrainInterval samples after that.
	RetrainBaseline int
	RetrainInterval int

	// Rand seeds weight initialization; DefaultNNConfig supplies a
	// fixed-seed source, so default runs are deterministic.
	Rand *rand.Rand
}

// DefaultNNConfig returns the standard co-surrogate settings.
func DefaultNNConfig() NNConfig {
	return NNConfig{
		HiddenUnits:     8,
		LearningRate:    0.05,
		Epochs:          200,
		RetrainBaseline: 20,
		RetrainInterval: 10,
		Rand:            rand.New(rand.NewSource(1)),
	}
}

// NN is a feed-forward regressor: input (dense [0,1]^d vector) → hidden
// ReLU layer → scalar output, trained by vanilla gradient descent on MSE
// over the full accumulated buffer.
type NN struct {
	mu  sync.Mutex
	cfg NNConfig

	w1 [][]float64 // hidden x input
	b1 []float64
	w2 []float64 // output x hidden
	b2 float64

	trained        bool
	lastTrainCount int
}

// NewNN constructs an untrained network; weights are lazily initialized on
// the first Fit call once the input dimension is known.
func NewNN(cfg NNConfig) *NN {
	return &NN{cfg: cfg}
}

func (n *NN) initWeights(dim int) {
	h := n.cfg.HiddenUnits
	n.w1 = make([][]float64, h)
	for i := range n.w1 {
		n.w1[i] = make([]float64, dim)
		for j := range n.w1[i] {
			n.w1[i][j] = (n.cfg.Rand.Float64()*2 - 1) * 0.5
		}
	}
	n.b1 = make([]float64, h)
	n.w2 = make([]float64, h)
	for i := range n.w2 {
		n.w2[i] = (n.cfg.Rand.Float64()*2 - 1) * 0.5
	}
}

// ShouldRetrain reports whether the sample count crosses a retrain boundary
// per the RetrainBaseline/RetrainInterval schedule.
func (n *NN) ShouldRetrain(sampleCount int) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if sampleCount < n.cfg.RetrainBaseline {
		return false
	}
	if !n.trained {
		return true
	}
	return sampleCount-n.lastTrainCount >= n.cfg.RetrainInterval
}

// Fit trains on the full buffer for cfg.Epochs passes of batch gradient
// descent.
func (n *NN) Fit(X [][]float64, y []float64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(X) == 0 {
		return
	}
	dim := len(X[0])
	if n.w1 == nil {
		n.initWeights(dim)
	}

	h := n.cfg.HiddenUnits
	for epoch := 0; epoch < n.cfg.Epochs; epoch++ {
		gw1 := make([][]float64, h)
		for i := range gw1 {
			gw1[i] = make([]float64, dim)
		}
		gb1 := make([]float64, h)
		gw2 := make([]float64, h)
		var gb2 float64

		for s := range X {
			hidden := make([]float64, h)
			for i := 0; i < h; i++ {
				z := n.b1[i]
				for j := 0; j < dim; j++ {
					z += n.w1[i][j] * X[s][j]
				}
				hidden[i] = relu(z)
			}
			pred := n.b2
			for i := 0; i < h; i++ {
				pred += n.w2[i] * hidden[i]
			}
			err := pred - y[s]

			for i := 0; i < h; i++ {
				gw2[i] += err * hidden[i]
				if hidden[i] > 0 {
					d := err * n.w2[i]
					gb1[i] += d
					for j := 0; j < dim; j++ {
						gw1[i][j] += d * X[s][j]
					}
				}
			}
			gb2 += err
		}

		scale := n.cfg.LearningRate / float64(len(X))
		for i := 0; i < h; i++ {
			for j := 0; j < dim; j++ {
				n.w1[i][j] -= scale * gw1[i][j]
			}
			n.b1[i] -= scale * gb1[i]
			n.w2[i] -= scale * gw2[i]
		}
		n.b2 -= scale * gb2
	}

	n.trained = true
	n.lastTrainCount = len(X)
}

// predictedUncertainty is the NN's fixed dummy uncertainty; the network
// predicts scalar fitness only and has no variance estimate of its own.
const predictedUncertainty = 0.1

// Predict returns the NN's scalar fitness prediction and its fixed dummy
// uncertainty. An untrained network predicts zero.
func (n *NN) Predict(x []float64) (value, uncertainty float64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.trained {
		return 0, predictedUncertainty
	}
	h := n.cfg.HiddenUnits
	pred := n.b2
	for i := 0; i < h; i++ {
		z := n.b1[i]
		for j := range n.w1[i] {
			z += n.w1[i][j] * x[j]
		}
		pred += n.w2[i] * relu(z)
	}
	return pred, predictedUncertainty
}

// Trained reports whether Fit has run at least once.
func (n *NN) Trained() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.trained
}

func relu(x float64) float64 {
	return math.Max(0, x)
}
