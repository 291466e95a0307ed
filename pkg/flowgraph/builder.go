package flowgraph

import (
	"math"

	"github.com/pkg/errors"

	"graphcut/internal/models"
)

// Default neighbour affinity parameters.
const (
	DefaultKappa = 2.0
	DefaultSigma = 100.0
)

// Params controls edge weighting.
type Params struct {
	// Kappa scales every neighbour edge and so the smoothness of the cut
	Kappa float64

	// Sigma sets how fast neighbour affinity decays with colour difference
	Sigma float64

	// HardSeeds pins seed pixels to their terminal with an uncuttable weight
	HardSeeds bool
}

// DefaultParams returns kappa=2, sigma=100 and soft seeds.
func DefaultParams() Params {
	return Params{Kappa: DefaultKappa, Sigma: DefaultSigma}
}

// Builder constructs flow graphs from images and class posteriors.
type Builder struct {
	params Params
}

// NewBuilder creates a builder; non-positive kappa or sigma fall back to defaults.
func NewBuilder(params Params) *Builder {
	if params.Kappa <= 0 {
		params.Kappa = DefaultKappa
	}
	if params.Sigma <= 0 {
		params.Sigma = DefaultSigma
	}
	return &Builder{params: params}
}

// Params returns the effective parameters.
func (b *Builder) Params() Params {
	return b.params
}

// Build creates the flow network for im. fg and bg hold the foreground and
// background posterior of every pixel. mask is only consulted when hard
// seeds are enabled and may otherwise be nil.
//
// Neighbour pairs are visited once, from the left or upper pixel, and get
// an edge in both directions with the same weight.
func (b *Builder) Build(im *models.Image, mask *models.LabelMask, fg, bg []float64) (*Graph, error) {
	if err := im.Validate(); err != nil {
		return nil, err
	}
	n := im.Len()
	if len(fg) != n || len(bg) != n {
		return nil, errors.Wrapf(models.ErrInvalidImageShape,
			"got %d foreground and %d background probabilities for %d pixels", len(fg), len(bg), n)
	}
	if mask != nil {
		if err := mask.Validate(im); err != nil {
			return nil, err
		}
	}
	if b.params.HardSeeds && mask == nil {
		return nil, errors.Wrap(models.ErrInvalidImageShape, "hard seeds need a label mask")
	}

	features := normalize(im)
	g := newGraph(im.Width, im.Height)
	seedWeight := 1 + 4*b.params.Kappa

	for i := 0; i < n; i++ {
		id := int64(i)

		toSource, toSink := TerminalWeights(fg[i], bg[i])
		if b.params.HardSeeds {
			switch mask.Labels[i] {
			case models.Foreground:
				toSource, toSink = seedWeight, 0
			case models.Background:
				toSource, toSink = 0, seedWeight
			}
		}
		g.setEdge(g.Source, id, toSource)
		g.setEdge(id, g.Sink, toSink)

		if (i+1)%im.Width != 0 {
			b.addPair(g, features, i, i+1)
		}
		if i/im.Width != im.Height-1 {
			b.addPair(g, features, i, i+im.Width)
		}
	}
	return g, nil
}

func (b *Builder) addPair(g *Graph, features *models.Image, i, j int) {
	w := b.NeighborWeight(features.Sample(i), features.Sample(j))
	g.setEdge(int64(i), int64(j), w)
	g.setEdge(int64(j), int64(i), w)
	g.pairs++
}

// NeighborWeight returns kappa * exp(-|p-q|^2 / sigma).
func (b *Builder) NeighborWeight(p, q []float64) float64 {
	var d2 float64
	for k := range p {
		d := p[k] - q[k]
		d2 += d * d
	}
	return b.params.Kappa * math.Exp(-d2/b.params.Sigma)
}

// TerminalWeights returns the source and sink edge weights of a pixel with
// the given posteriors. When both are zero, or the sum is not a usable
// number, each weight is 0.5.
func TerminalWeights(pfg, pbg float64) (float64, float64) {
	sum := pfg + pbg
	if !(sum > 0) || math.IsInf(sum, 0) {
		return 0.5, 0.5
	}
	return pfg / sum, pbg / sum
}

// normalize returns a copy of im with every colour vector scaled to unit
// length. Zero vectors stay zero.
func normalize(im *models.Image) *models.Image {
	out := models.NewImage(im.Width, im.Height, im.Channels)
	for i := 0; i < im.Len(); i++ {
		src := im.Sample(i)
		var norm float64
		for _, v := range src {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			continue
		}
		dst := out.Sample(i)
		for k, v := range src {
			dst[k] = v / norm
		}
	}
	return out
}
