package bayes

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"
)

// maxRegularizationRetries bounds how often Train grows the diagonal term
// while looking for a positive definite covariance.
const maxRegularizationRetries = 8

// Gaussian models every class as a multivariate normal distribution with a
// full covariance matrix, capturing correlation between colour channels.
type Gaussian struct {
	opts  Options
	model *gaussianModel
}

type gaussianModel struct {
	dim       int
	normals   []*distmv.Normal
	logPriors []float64
}

// NewGaussian creates an untrained full-covariance classifier.
func NewGaussian(opts Options) *Gaussian {
	return &Gaussian{opts: opts.withDefaults()}
}

// Train estimates a mean vector and covariance matrix per class.
func (g *Gaussian) Train(classes [][][]float64) error {
	dim, err := checkTraining(classes)
	if err != nil {
		return err
	}

	m := &gaussianModel{
		dim:       dim,
		normals:   make([]*distmv.Normal, len(classes)),
		logPriors: logPriors(g.opts.Prior, classes),
	}
	for k, samples := range classes {
		normal, err := g.fit(samples, dim)
		if err != nil {
			return errors.Wrapf(err, "class %d", k)
		}
		m.normals[k] = normal
	}
	g.model = m
	return nil
}

func (g *Gaussian) fit(samples [][]float64, dim int) (*distmv.Normal, error) {
	x := mat.NewDense(len(samples), dim, nil)
	for i, s := range samples {
		x.SetRow(i, s)
	}

	mean := make([]float64, dim)
	for d := range mean {
		mean[d] = stat.Mean(mat.Col(nil, d, x), nil)
	}

	cov := mat.NewSymDense(dim, nil)
	if len(samples) > 1 {
		stat.CovarianceMatrix(cov, x, nil)
	}

	reg := g.opts.Regularization
	for attempt := 0; attempt <= maxRegularizationRetries; attempt++ {
		sigma := mat.NewSymDense(dim, nil)
		sigma.CopySym(cov)
		for d := 0; d < dim; d++ {
			sigma.SetSym(d, d, sigma.At(d, d)+reg)
		}
		if normal, ok := distmv.NewNormal(mean, sigma, nil); ok {
			return normal, nil
		}
		reg *= 10
	}
	return nil, errors.Errorf("covariance is not positive definite after regularization %g", reg)
}

// Classify evaluates every sample under each class density.
func (g *Gaussian) Classify(samples [][]float64) ([]int, [][]float64, error) {
	m := g.model
	if m == nil {
		return nil, nil, ErrNotTrained
	}
	return posteriors(samples, m.dim, m.logPriors, g.opts.Workers, func(k int, x []float64) float64 {
		return m.normals[k].LogProb(x)
	})
}

// Means returns the fitted per-class mean vectors, or nil before training.
func (g *Gaussian) Means() [][]float64 {
	if g.model == nil {
		return nil
	}
	out := make([][]float64, len(g.model.normals))
	for k, n := range g.model.normals {
		out[k] = n.Mean(nil)
	}
	return out
}
