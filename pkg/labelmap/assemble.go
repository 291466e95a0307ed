// Package labelmap turns a minimum cut back into a per-pixel label grid.
package labelmap

import (
	"github.com/pkg/errors"

	"graphcut/internal/models"
)

// ErrInvalidPartition is returned when a partition does not cover the
// pixel grid plus its two terminals.
var ErrInvalidPartition = errors.New("invalid partition")

// Partition reports which side of a cut each node fell on.
type Partition interface {
	InSourceSet(id int64) bool
	NodeCount() int
}

// Assemble maps pixel node i to row i/width, column i%width. Source side
// pixels get models.Foreground, all others models.Background.
func Assemble(p Partition, width, height int) (*models.LabelMap, error) {
	if p == nil {
		return nil, errors.Wrap(ErrInvalidPartition, "partition is nil")
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(ErrInvalidPartition, "grid %dx%d must be positive", width, height)
	}
	n := width * height
	if p.NodeCount() != n+2 {
		return nil, errors.Wrapf(ErrInvalidPartition, "partition has %d nodes, want %d for a %dx%d grid",
			p.NodeCount(), n+2, width, height)
	}

	lm := &models.LabelMap{
		Labels: make([]int, n),
		Width:  width,
		Height: height,
	}
	for i := range lm.Labels {
		if p.InSourceSet(int64(i)) {
			lm.Labels[i] = models.Foreground
		} else {
			lm.Labels[i] = models.Background
		}
	}
	return lm, nil
}
