package visualization

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"graphcut/internal/models"
)

// Overlay colours: foreground is tinted red and background blue.
var (
	ForegroundTint = color.NRGBA{R: 255, A: 255}
	BackgroundTint = color.NRGBA{B: 255, A: 255}
)

// TintAlpha is the opacity of the overlay tint.
const TintAlpha = 0.25

// Viewer renders a segmentation on top of the image it was computed from
type Viewer struct {
	// img is the original image
	img image.Image

	// labels is the segmentation result
	labels *models.LabelMap

	// seeds is the optional seed mask drawn on top of the tint
	seeds *models.LabelMask
}

// NewViewer creates a viewer. seeds may be nil.
func NewViewer(img image.Image, labels *models.LabelMap, seeds *models.LabelMask) (*Viewer, error) {
	b := img.Bounds()
	if labels == nil || labels.Width != b.Dx() || labels.Height != b.Dy() {
		return nil, errors.Wrap(models.ErrInvalidImageShape, "label map does not match image")
	}
	if seeds != nil && (seeds.Width != b.Dx() || seeds.Height != b.Dy()) {
		return nil, errors.Wrap(models.ErrInvalidImageShape, "seed mask does not match image")
	}
	return &Viewer{img: img, labels: labels, seeds: seeds}, nil
}

// LabelImage renders the labels alone: foreground white, background black
func (v *Viewer) LabelImage() *image.Gray {
	return LabelImage(v.labels)
}

// LabelImage renders a label map: foreground white, background black
func LabelImage(lm *models.LabelMap) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, lm.Width, lm.Height))
	for y := 0; y < lm.Height; y++ {
		for x := 0; x < lm.Width; x++ {
			if lm.At(x, y) == models.Foreground {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// Overlay blends the foreground and background tints into the image and
// paints seed pixels in the solid tint colour
func (v *Viewer) Overlay() *image.NRGBA {
	b := v.img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			base := color.NRGBAModel.Convert(v.img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)

			if v.seeds != nil {
				switch v.seeds.At(x, y) {
				case models.Foreground:
					out.SetNRGBA(x, y, ForegroundTint)
					continue
				case models.Background:
					out.SetNRGBA(x, y, BackgroundTint)
					continue
				}
			}

			tint := BackgroundTint
			if v.labels.At(x, y) == models.Foreground {
				tint = ForegroundTint
			}
			out.SetNRGBA(x, y, blend(base, tint, TintAlpha))
		}
	}
	return out
}

func blend(base, tint color.NRGBA, alpha float64) color.NRGBA {
	mix := func(a, b uint8) uint8 {
		return uint8(float64(a)*(1-alpha) + float64(b)*alpha + 0.5)
	}
	return color.NRGBA{
		R: mix(base.R, tint.R),
		G: mix(base.G, tint.G),
		B: mix(base.B, tint.B),
		A: 255,
	}
}

// SavePNG writes img as a PNG file, creating parent directories as needed
func SavePNG(filename string, img image.Image) (err error) {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()

	return png.Encode(file, img)
}
