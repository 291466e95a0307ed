// Package bayes provides generative pixel classifiers used to score how
// likely each pixel colour is to belong to the foreground or background.
//
// A classifier is trained from one collection of colour samples per class
// and returns, for every queried sample, the arg-max class together with the
// posterior probability of each class. Posteriors are normalised so that the
// values for one sample always sum to one.
package bayes

import (
	"math"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrInsufficientData is returned by Train when a class has no samples.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrNotTrained is returned by Classify before a successful Train.
	ErrNotTrained = errors.New("classifier is not trained")

	// ErrDimensionMismatch is returned when samples disagree on their length.
	ErrDimensionMismatch = errors.New("sample dimension mismatch")
)

// Classifier is a generative classifier over fixed-length feature vectors.
type Classifier interface {
	// Train fits one density per class. classes[k] holds the samples of class k.
	// A successful call replaces any previously fitted model.
	Train(classes [][][]float64) error

	// Classify returns the arg-max class of every sample and the posterior
	// probabilities indexed as probs[class][sample].
	Classify(samples [][]float64) (labels []int, probs [][]float64, err error)
}

// Prior selects the class prior used by Bayes' rule.
type Prior string

const (
	// UniformPrior weights every class equally.
	UniformPrior Prior = "uniform"

	// ProportionalPrior weights classes by their share of the training samples.
	ProportionalPrior Prior = "proportional"
)

// DefaultRegularization is added to every variance so that constant colour
// regions do not produce degenerate densities.
const DefaultRegularization = 1e-3

// Options controls training and classification.
type Options struct {
	// Prior is the class prior; empty means UniformPrior
	Prior Prior

	// Regularization is added to each variance or covariance diagonal term
	Regularization float64

	// Workers bounds the number of goroutines evaluating densities
	Workers int
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Prior:          UniformPrior,
		Regularization: DefaultRegularization,
		Workers:        runtime.NumCPU(),
	}
}

func (o Options) withDefaults() Options {
	if o.Prior == "" {
		o.Prior = UniformPrior
	}
	if o.Regularization <= 0 {
		o.Regularization = DefaultRegularization
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

// checkTraining validates the per-class sample collections and returns
// the common feature dimension.
func checkTraining(classes [][][]float64) (int, error) {
	if len(classes) < 2 {
		return 0, errors.Wrapf(ErrInsufficientData, "need at least 2 classes, got %d", len(classes))
	}
	dim := -1
	for k, samples := range classes {
		if len(samples) == 0 {
			return 0, errors.Wrapf(ErrInsufficientData, "class %d has no samples", k)
		}
		for i, s := range samples {
			if dim < 0 {
				dim = len(s)
			}
			if len(s) != dim || dim == 0 {
				return 0, errors.Wrapf(ErrDimensionMismatch,
					"class %d sample %d has %d values, want %d", k, i, len(s), dim)
			}
		}
	}
	return dim, nil
}

// logPriors computes the log prior of each class.
func logPriors(prior Prior, classes [][][]float64) []float64 {
	out := make([]float64, len(classes))
	switch prior {
	case ProportionalPrior:
		total := 0
		for _, c := range classes {
			total += len(c)
		}
		for k, c := range classes {
			out[k] = math.Log(float64(len(c)) / float64(total))
		}
	default:
		for k := range out {
			out[k] = -math.Log(float64(len(classes)))
		}
	}
	return out
}

// logDensity evaluates the log-likelihood of x under class k.
type logDensity func(k int, x []float64) float64

// posteriors applies Bayes' rule to every sample in parallel. Work is split
// into contiguous chunks so that the result does not depend on scheduling.
func posteriors(samples [][]float64, dim int, priors []float64, workers int, density logDensity) ([]int, [][]float64, error) {
	for i, s := range samples {
		if len(s) != dim {
			return nil, nil, errors.Wrapf(ErrDimensionMismatch, "sample %d has %d values, want %d", i, len(s), dim)
		}
	}

	numClasses := len(priors)
	labels := make([]int, len(samples))
	probs := make([][]float64, numClasses)
	for k := range probs {
		probs[k] = make([]float64, len(samples))
	}
	if len(samples) == 0 {
		return labels, probs, nil
	}

	if workers > len(samples) {
		workers = len(samples)
	}
	chunk := (len(samples) + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < len(samples); start += chunk {
		end := start + chunk
		if end > len(samples) {
			end = len(samples)
		}
		g.Go(func() error {
			logp := make([]float64, numClasses)
			for i := start; i < end; i++ {
				for k := range logp {
					logp[k] = density(k, samples[i]) + priors[k]
				}
				labels[i] = floats.MaxIdx(logp)
				norm := floats.LogSumExp(logp)
				for k := range logp {
					p := math.Exp(logp[k] - norm)
					if math.IsNaN(p) {
						p = 1 / float64(numClasses)
					}
					probs[k][i] = p
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return labels, probs, nil
}
