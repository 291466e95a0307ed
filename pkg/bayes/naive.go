package bayes

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// NaiveBayes models every class as a product of independent univariate
// normal distributions, one per feature.
type NaiveBayes struct {
	opts Options

	// model is replaced wholesale by Train
	model *naiveModel
}

type naiveModel struct {
	dim       int
	densities [][]distuv.Normal // [class][feature]
	logPriors []float64
}

// NewNaiveBayes creates an untrained naive Bayes classifier.
func NewNaiveBayes(opts Options) *NaiveBayes {
	return &NaiveBayes{opts: opts.withDefaults()}
}

// Train fits a mean and variance per class and feature.
func (nb *NaiveBayes) Train(classes [][][]float64) error {
	dim, err := checkTraining(classes)
	if err != nil {
		return err
	}

	m := &naiveModel{
		dim:       dim,
		densities: make([][]distuv.Normal, len(classes)),
		logPriors: logPriors(nb.opts.Prior, classes),
	}
	column := make([]float64, 0)
	for k, samples := range classes {
		m.densities[k] = make([]distuv.Normal, dim)
		for d := 0; d < dim; d++ {
			column = column[:0]
			for _, s := range samples {
				column = append(column, s[d])
			}
			mean, variance := meanVariance(column)
			m.densities[k][d] = distuv.Normal{
				Mu:    mean,
				Sigma: math.Sqrt(variance + nb.opts.Regularization),
			}
		}
	}
	nb.model = m
	return nil
}

// Classify evaluates every sample under each class density.
func (nb *NaiveBayes) Classify(samples [][]float64) ([]int, [][]float64, error) {
	m := nb.model
	if m == nil {
		return nil, nil, ErrNotTrained
	}
	return posteriors(samples, m.dim, m.logPriors, nb.opts.Workers, func(k int, x []float64) float64 {
		var lp float64
		for d, n := range m.densities[k] {
			lp += n.LogProb(x[d])
		}
		return lp
	})
}

// Means returns the fitted per-class means, or nil before training.
func (nb *NaiveBayes) Means() [][]float64 {
	if nb.model == nil {
		return nil
	}
	out := make([][]float64, len(nb.model.densities))
	for k, ds := range nb.model.densities {
		out[k] = make([]float64, len(ds))
		for d, n := range ds {
			out[k][d] = n.Mu
		}
	}
	return out
}

// meanVariance returns the sample mean and unbiased variance. A single
// sample has zero variance.
func meanVariance(x []float64) (float64, float64) {
	if len(x) == 1 {
		return x[0], 0
	}
	mean, variance := stat.MeanVariance(x, nil)
	if variance < 0 || math.IsNaN(variance) {
		variance = 0
	}
	return mean, variance
}
