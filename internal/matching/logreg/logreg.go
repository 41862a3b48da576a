// internal/matching/logreg/logreg.go

// Package logreg implements the single model family supported by the
// platform: linear logistic regression fit by batch gradient descent, with
// k-fold cross-validation for metric estimation.
package logreg

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"scholarship-workers/internal/models"
)

var (
	ErrTooFewSamples = errors.New("TOO_FEW_SAMPLES")
)

// Config holds the gradient-descent hyperparameters. The exact values were
// never pinned down by the product side, so they are configuration with
// documented defaults rather than constants.
type Config struct {
	LearningRate         float64 `mapstructure:"learning_rate"`
	MaxIterations        int     `mapstructure:"max_iterations"`
	ConvergenceThreshold float64 `mapstructure:"convergence_threshold"`
	L2                   float64 `mapstructure:"l2"`
	Folds                int     `mapstructure:"folds"`
	Seed                 int64   `mapstructure:"seed"`
}

// DefaultConfig returns the defaults used when config leaves a field unset.
func DefaultConfig() Config {
	return Config{
		LearningRate:         0.1,
		MaxIterations:        1000,
		ConvergenceThreshold: 1e-6,
		L2:                   0.01,
		Folds:                5,
		Seed:                 42,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.LearningRate <= 0 {
		c.LearningRate = def.LearningRate
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.ConvergenceThreshold <= 0 {
		c.ConvergenceThreshold = def.ConvergenceThreshold
	}
	if c.L2 < 0 {
		c.L2 = def.L2
	}
	if c.Folds < 2 {
		c.Folds = def.Folds
	}
	return c
}

// FitResult is a trained model before it is assigned an identity and scope
// by the registry.
type FitResult struct {
	Weights           map[string]float64
	Bias              float64
	Metrics           models.ModelMetrics
	FeatureImportance map[string]float64
	SampleCount       int
	Iterations        int
}

// Sigmoid maps a raw linear score into (0,1).
func Sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// Predict scores a feature vector with a trained model. Features absent from
// the model's weight map contribute nothing; features the model knows but
// the vector lacks read as zero. Both rules keep old models usable as the
// feature set evolves.
func Predict(features map[string]float64, m *models.Model) float64 {
	z := m.Bias
	for name, w := range m.Weights {
		z += w * features[name]
	}
	return Sigmoid(z)
}

// Contributions returns each feature's weighted contribution to the raw
// score, for caller-facing explanations.
func Contributions(features map[string]float64, m *models.Model) map[string]float64 {
	out := make(map[string]float64, len(m.Weights))
	for name, w := range m.Weights {
		out[name] = w * features[name]
	}
	return out
}

// Fit trains a model with k-fold cross-validation: the samples are shuffled
// deterministically, split into cfg.Folds folds, each fold held out once for
// metric accumulation, and the final model is fit on the full sample set
// with the same hyperparameters.
func Fit(samples []*models.TrainingSample, cfg Config) (*FitResult, error) {
	cfg = cfg.withDefaults()
	if len(samples) < cfg.Folds {
		return nil, fmt.Errorf("%w: %d samples, need at least %d", ErrTooFewSamples, len(samples), cfg.Folds)
	}

	names := featureNames(samples)

	// Deterministic per-run shuffle.
	order := rand.New(rand.NewSource(cfg.Seed)).Perm(len(samples))
	shuffled := make([]*models.TrainingSample, len(samples))
	for i, idx := range order {
		shuffled[i] = samples[idx]
	}

	var cm confusionMatrix
	foldSize := len(shuffled) / cfg.Folds
	for fold := 0; fold < cfg.Folds; fold++ {
		lo := fold * foldSize
		hi := lo + foldSize
		if fold == cfg.Folds-1 {
			hi = len(shuffled)
		}
		holdout := shuffled[lo:hi]
		train := make([]*models.TrainingSample, 0, len(shuffled)-len(holdout))
		train = append(train, shuffled[:lo]...)
		train = append(train, shuffled[hi:]...)

		w, b, _ := gradientDescent(train, names, cfg)
		for _, s := range holdout {
			p := scoreVector(s.Features, names, w, b)
			cm.record(p >= 0.5, s.Approved())
		}
	}

	weights, bias, iterations := gradientDescent(shuffled, names, cfg)

	weightMap := make(map[string]float64, len(names))
	for i, name := range names {
		weightMap[name] = weights[i]
	}

	return &FitResult{
		Weights:           weightMap,
		Bias:              bias,
		Metrics:           cm.metrics(),
		FeatureImportance: importance(weightMap),
		SampleCount:       len(samples),
		Iterations:        iterations,
	}, nil
}

// gradientDescent runs batch gradient descent with L2 regularization until
// the loss delta drops below the convergence threshold or the iteration cap
// is reached.
func gradientDescent(samples []*models.TrainingSample, names []string, cfg Config) ([]float64, float64, int) {
	n := len(samples)
	weights := make([]float64, len(names))
	bias := 0.0

	vectors := make([][]float64, n)
	labels := make([]float64, n)
	for i, s := range samples {
		vec := make([]float64, len(names))
		for j, name := range names {
			vec[j] = s.Features[name]
		}
		vectors[i] = vec
		if s.Approved() {
			labels[i] = 1
		}
	}

	gradW := make([]float64, len(names))
	prevLoss := math.Inf(1)
	iterations := 0

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		iterations = iter + 1
		for j := range gradW {
			gradW[j] = 0
		}
		gradB := 0.0
		loss := 0.0

		for i := 0; i < n; i++ {
			z := bias
			for j, x := range vectors[i] {
				z += weights[j] * x
			}
			p := Sigmoid(z)
			err := p - labels[i]
			for j, x := range vectors[i] {
				gradW[j] += err * x
			}
			gradB += err
			loss += logLoss(p, labels[i])
		}

		// Objective: mean log loss + (L2/2)·||w||², matching the gradient
		// below. The penalty is taken on the weights the loss was computed
		// with, before this iteration's update.
		scale := 1.0 / float64(n)
		penalty := 0.0
		for j, w := range weights {
			penalty += 0.5 * cfg.L2 * w * w
			grad := gradW[j]*scale + cfg.L2*w
			weights[j] -= cfg.LearningRate * grad
		}
		bias -= cfg.LearningRate * gradB * scale

		loss = loss*scale + penalty
		if math.Abs(prevLoss-loss) < cfg.ConvergenceThreshold {
			break
		}
		prevLoss = loss
	}

	return weights, bias, iterations
}

func logLoss(p, y float64) float64 {
	const eps = 1e-15
	p = math.Min(math.Max(p, eps), 1-eps)
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

func scoreVector(features map[string]float64, names []string, weights []float64, bias float64) float64 {
	z := bias
	for j, name := range names {
		z += weights[j] * features[name]
	}
	return Sigmoid(z)
}

// featureNames collects the union of feature names across all samples,
// sorted so training is order-independent.
func featureNames(samples []*models.TrainingSample) []string {
	seen := make(map[string]struct{})
	for _, s := range samples {
		for name := range s.Features {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// importance normalizes absolute weight magnitudes to sum to 1.
func importance(weights map[string]float64) map[string]float64 {
	total := 0.0
	for _, w := range weights {
		total += math.Abs(w)
	}
	out := make(map[string]float64, len(weights))
	for name, w := range weights {
		if total > 0 {
			out[name] = math.Abs(w) / total
		} else {
			out[name] = 0
		}
	}
	return out
}
