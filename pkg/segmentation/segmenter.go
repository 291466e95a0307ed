// Package segmentation implements interactive binary image segmentation
// with graph cuts.
//
// The segmentation process consists of several steps:
// 1. Collecting foreground and background colour samples from the seed mask
// 2. Training a pixel classifier on those samples
// 3. Classifying every pixel to obtain foreground/background posteriors
// 4. Building the pixel flow network from posteriors and colour affinity
// 5. Solving max-flow/min-cut between the foreground and background terminals
// 6. Assembling the cut into a label map
package segmentation

import (
	"context"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"graphcut/internal/models"
	"graphcut/pkg/bayes"
	"graphcut/pkg/flowgraph"
	"graphcut/pkg/labelmap"
	"graphcut/pkg/maxflow"
)

// Classifier variants understood by Params.Classifier.
const (
	NaiveBayes = "naive"
	Gaussian   = "gaussian"
)

// Params holds the segmentation parameters.
type Params struct {
	// Kappa scales neighbour edges; larger values give smoother cuts.
	Kappa float64

	// Sigma controls how quickly neighbour affinity decays with colour
	// difference between unit-length colour vectors.
	Sigma float64

	// Classifier selects the pixel model: NaiveBayes or Gaussian.
	Classifier string

	// Prior is the class prior used by the classifier.
	Prior bayes.Prior

	// Regularization is added to every class variance.
	Regularization float64

	// HardSeeds pins seed pixels to their terminal.
	HardSeeds bool

	// Workers bounds the goroutines used for per-pixel classification.
	Workers int

	// Timeout bounds the max-flow computation. Zero means no limit.
	Timeout time.Duration
}

// DefaultParams returns kappa=2, sigma=100 with a naive Bayes classifier.
func DefaultParams() *Params {
	return &Params{
		Kappa:          flowgraph.DefaultKappa,
		Sigma:          flowgraph.DefaultSigma,
		Classifier:     NaiveBayes,
		Prior:          bayes.UniformPrior,
		Regularization: bayes.DefaultRegularization,
		Workers:        runtime.NumCPU(),
	}
}

// Result is the outcome of one segmentation call.
type Result struct {
	// Labels is the segmentation, models.Foreground or models.Background per pixel
	Labels *models.LabelMap

	// FlowValue is the maximum flow, equal to the minimum cut capacity
	FlowValue float64

	// ForegroundPixels counts pixels on the source side of the cut
	ForegroundPixels int

	// Nodes, Edges and NeighborPairs describe the flow network
	Nodes         int
	Edges         int
	NeighborPairs int

	// Elapsed is the wall time of the whole call
	Elapsed time.Duration
}

// Segmenter runs the graph-cut pipeline. It holds only configuration, so a
// single Segmenter may serve concurrent calls.
type Segmenter struct {
	params *Params
	logger *zap.SugaredLogger
	solver maxflow.Solver
}

// Option customises a Segmenter.
type Option func(*Segmenter)

// WithLogger sets the logger used for progress messages.
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Segmenter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSolver replaces the default Edmonds-Karp solver.
func WithSolver(solver maxflow.Solver) Option {
	return func(s *Segmenter) {
		if solver != nil {
			s.solver = solver
		}
	}
}

// NewSegmenter creates a segmenter. A nil params uses DefaultParams.
func NewSegmenter(params *Params, opts ...Option) *Segmenter {
	if params == nil {
		params = DefaultParams()
	}
	s := &Segmenter{
		params: params,
		logger: zap.NewNop().Sugar(),
		solver: maxflow.NewEdmondsKarp(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewClassifier returns an untrained classifier configured from params.
func (s *Segmenter) NewClassifier() (bayes.Classifier, error) {
	opts := bayes.Options{
		Prior:          s.params.Prior,
		Regularization: s.params.Regularization,
		Workers:        s.params.Workers,
	}
	switch s.params.Classifier {
	case NaiveBayes, "":
		return bayes.NewNaiveBayes(opts), nil
	case Gaussian:
		return bayes.NewGaussian(opts), nil
	default:
		return nil, errors.Errorf("unknown classifier %q", s.params.Classifier)
	}
}

// Segment trains a fresh classifier on the seeds in mask and segments im.
func (s *Segmenter) Segment(ctx context.Context, im *models.Image, mask *models.LabelMask) (*Result, error) {
	start := time.Now()
	if err := im.Validate(); err != nil {
		return nil, err
	}
	if err := mask.Validate(im); err != nil {
		return nil, err
	}

	// Step 1: Collect training samples
	samples := ExtractSamples(im, mask)
	s.logger.Debugw("collected seed samples",
		"foreground", len(samples[0]), "background", len(samples[1]))

	// Step 2: Train the pixel classifier
	classifier, err := s.NewClassifier()
	if err != nil {
		return nil, err
	}
	if err := classifier.Train(samples); err != nil {
		return nil, errors.Wrap(err, "failed to train classifier")
	}

	return s.segment(ctx, im, mask, classifier, start)
}

// SegmentWithClassifier segments im with an already trained classifier.
// Class 0 is foreground and class 1 background. mask may be nil unless
// hard seeds are enabled.
func (s *Segmenter) SegmentWithClassifier(ctx context.Context, im *models.Image, mask *models.LabelMask, classifier bayes.Classifier) (*Result, error) {
	start := time.Now()
	if err := im.Validate(); err != nil {
		return nil, err
	}
	if mask != nil {
		if err := mask.Validate(im); err != nil {
			return nil, err
		}
	}
	return s.segment(ctx, im, mask, classifier, start)
}

func (s *Segmenter) segment(ctx context.Context, im *models.Image, mask *models.LabelMask, classifier bayes.Classifier, start time.Time) (*Result, error) {
	// Step 3: Classify every pixel
	_, probs, err := classifier.Classify(im.Samples())
	if err != nil {
		return nil, errors.Wrap(err, "failed to classify pixels")
	}
	if len(probs) < 2 {
		return nil, errors.Errorf("classifier returned %d classes, want 2", len(probs))
	}

	// Step 4: Build the flow network
	builder := flowgraph.NewBuilder(flowgraph.Params{
		Kappa:     s.params.Kappa,
		Sigma:     s.params.Sigma,
		HardSeeds: s.params.HardSeeds,
	})
	g, err := builder.Build(im, mask, probs[0], probs[1])
	if err != nil {
		return nil, err
	}
	s.logger.Debugw("built flow graph",
		"nodes", g.PixelCount()+2, "edges", g.EdgeCount(), "pairs", g.NeighborPairs())

	// Step 5: Solve max-flow/min-cut
	if s.params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.params.Timeout)
		defer cancel()
	}
	solveStart := time.Now()
	cut, err := s.solver.MaxFlow(ctx, g, g.Source, g.Sink)
	if err != nil {
		return nil, errors.Wrap(err, "failed to cut graph")
	}
	s.logger.Debugw("solved max flow", "flow", cut.Value, "elapsed", time.Since(solveStart))

	// Step 6: Assemble the label map
	labels, err := labelmap.Assemble(cut, im.Width, im.Height)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Labels:           labels,
		FlowValue:        cut.Value,
		ForegroundPixels: labels.Count(models.Foreground),
		Nodes:            g.PixelCount() + 2,
		Edges:            g.EdgeCount(),
		NeighborPairs:    g.NeighborPairs(),
		Elapsed:          time.Since(start),
	}
	s.logger.Infow("segmentation finished",
		"width", im.Width, "height", im.Height,
		"foreground", res.ForegroundPixels, "flow", res.FlowValue, "elapsed", res.Elapsed)
	return res, nil
}

// ExtractSamples returns the colour vectors of the foreground seeds and the
// background seeds, in that order.
func ExtractSamples(im *models.Image, mask *models.LabelMask) [][][]float64 {
	var fg, bg [][]float64
	for i, v := range mask.Labels {
		switch v {
		case models.Foreground:
			fg = append(fg, append([]float64(nil), im.Sample(i)...))
		case models.Background:
			bg = append(bg, append([]float64(nil), im.Sample(i)...))
		}
	}
	return [][][]float64{fg, bg}
}
