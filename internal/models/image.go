package models

import (
	"github.com/pkg/errors"
)

// Label values used by seed masks and label maps.
const (
	// Background marks a background seed in a LabelMask and the sink side in a LabelMap.
	Background = -1

	// Unknown marks an unlabeled pixel in a LabelMask. It never appears in a LabelMap.
	Unknown = 0

	// Foreground marks a foreground seed in a LabelMask and the source side in a LabelMap.
	Foreground = 1
)

var (
	// ErrInvalidImageShape is returned when image, mask or probability dimensions disagree.
	ErrInvalidImageShape = errors.New("invalid image shape")

	// ErrInvalidLabel is returned when a mask holds a value outside {-1, 0, 1}.
	ErrInvalidLabel = errors.New("invalid label value")
)

// Image is a height x width x channels array of pixel values stored in
// row-major order with the channel axis last.
type Image struct {
	// Pix holds Width*Height*Channels values
	Pix []float64

	// Width is the number of columns
	Width int

	// Height is the number of rows
	Height int

	// Channels is the length of every pixel's colour vector
	Channels int
}

// NewImage allocates a zeroed image.
func NewImage(width, height, channels int) *Image {
	n := 0
	if width > 0 && height > 0 && channels > 0 {
		n = width * height * channels
	}
	return &Image{
		Pix:      make([]float64, n),
		Width:    width,
		Height:   height,
		Channels: channels,
	}
}

// Validate reports whether the image dimensions are consistent.
func (im *Image) Validate() error {
	if im == nil {
		return errors.Wrap(ErrInvalidImageShape, "image is nil")
	}
	if im.Width <= 0 || im.Height <= 0 || im.Channels <= 0 {
		return errors.Wrapf(ErrInvalidImageShape, "image dimensions %dx%dx%d must be positive",
			im.Width, im.Height, im.Channels)
	}
	if len(im.Pix) != im.Width*im.Height*im.Channels {
		return errors.Wrapf(ErrInvalidImageShape, "image holds %d values, want %d",
			len(im.Pix), im.Width*im.Height*im.Channels)
	}
	return nil
}

// Len returns the number of pixels.
func (im *Image) Len() int {
	return im.Width * im.Height
}

// Sample returns the colour vector of pixel i (row-major index).
// The returned slice aliases the image data.
func (im *Image) Sample(i int) []float64 {
	off := i * im.Channels
	return im.Pix[off : off+im.Channels : off+im.Channels]
}

// At returns the colour vector at column x, row y.
func (im *Image) At(x, y int) []float64 {
	return im.Sample(y*im.Width + x)
}

// Set copies c into the pixel at column x, row y.
func (im *Image) Set(x, y int, c []float64) {
	copy(im.At(x, y), c)
}

// Samples returns one colour vector per pixel, each a copy of the image data.
func (im *Image) Samples() [][]float64 {
	out := make([][]float64, im.Len())
	for i := range out {
		out[i] = append([]float64(nil), im.Sample(i)...)
	}
	return out
}

// LabelMask holds user supplied seeds: Foreground, Background or Unknown per pixel.
type LabelMask struct {
	Labels []int
	Width  int
	Height int
}

// NewLabelMask allocates a mask with every pixel Unknown.
func NewLabelMask(width, height int) *LabelMask {
	n := 0
	if width > 0 && height > 0 {
		n = width * height
	}
	return &LabelMask{Labels: make([]int, n), Width: width, Height: height}
}

// MaskFromRows builds a mask from a row-major grid. Every row must have the
// same length.
func MaskFromRows(rows [][]int) (*LabelMask, error) {
	if len(rows) == 0 {
		return &LabelMask{}, nil
	}
	m := NewLabelMask(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != m.Width {
			return nil, errors.Wrapf(ErrInvalidImageShape, "row %d has %d labels, want %d", y, len(row), m.Width)
		}
		copy(m.Labels[y*m.Width:], row)
	}
	return m, nil
}

// At returns the seed at column x, row y.
func (m *LabelMask) At(x, y int) int {
	return m.Labels[y*m.Width+x]
}

// Set stores a seed at column x, row y.
func (m *LabelMask) Set(x, y, v int) {
	m.Labels[y*m.Width+x] = v
}

// Validate checks the mask against the image it annotates.
func (m *LabelMask) Validate(im *Image) error {
	if m == nil {
		return errors.Wrap(ErrInvalidImageShape, "label mask is nil")
	}
	if m.Width != im.Width || m.Height != im.Height {
		return errors.Wrapf(ErrInvalidImageShape, "label mask is %dx%d but image is %dx%d",
			m.Width, m.Height, im.Width, im.Height)
	}
	if len(m.Labels) != m.Width*m.Height {
		return errors.Wrapf(ErrInvalidImageShape, "label mask holds %d values, want %d",
			len(m.Labels), m.Width*m.Height)
	}
	for i, v := range m.Labels {
		if v != Foreground && v != Background && v != Unknown {
			return errors.Wrapf(ErrInvalidLabel, "pixel %d has label %d", i, v)
		}
	}
	return nil
}

// Count returns how many pixels carry the given label.
func (m *LabelMask) Count(label int) int {
	n := 0
	for _, v := range m.Labels {
		if v == label {
			n++
		}
	}
	return n
}

// LabelMap is the binary segmentation result: Foreground or Background per pixel.
type LabelMap struct {
	Labels []int
	Width  int
	Height int
}

// At returns the label at column x, row y.
func (lm *LabelMap) At(x, y int) int {
	return lm.Labels[y*lm.Width+x]
}

// Rows returns the labels as a row-major grid.
func (lm *LabelMap) Rows() [][]int {
	rows := make([][]int, lm.Height)
	for y := range rows {
		rows[y] = append([]int(nil), lm.Labels[y*lm.Width:(y+1)*lm.Width]...)
	}
	return rows
}

// Count returns how many pixels carry the given label.
func (lm *LabelMap) Count(label int) int {
	n := 0
	for _, v := range lm.Labels {
		if v == label {
			n++
		}
	}
	return n
}
