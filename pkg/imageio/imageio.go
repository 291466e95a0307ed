// Package imageio loads images and seed scribbles from disk and converts
// them into the arrays used by the segmentation pipeline.
package imageio

import (
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"math"
	"os"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"graphcut/internal/models"
)

// ColorSpace selects the per-pixel feature vector.
type ColorSpace string

const (
	// RGB uses 8-bit red, green and blue values in [0, 255].
	RGB ColorSpace = "rgb"

	// Lab uses CIE L*a*b* scaled by 100, so L* lies in [0, 100].
	Lab ColorSpace = "lab"
)

// Load decodes an image file in any registered format.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}
	return img, nil
}

// ToModel converts img into a 3-channel feature image.
func ToModel(img image.Image, space ColorSpace) (*models.Image, error) {
	if space != RGB && space != Lab {
		return nil, errors.Errorf("unknown color space %q", space)
	}
	bounds := img.Bounds()
	im := models.NewImage(bounds.Dx(), bounds.Dy(), 3)
	if err := im.Validate(); err != nil {
		return nil, err
	}

	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			px := im.At(x, y)
			c := img.At(bounds.Min.X+x, bounds.Min.Y+y)
			switch space {
			case Lab:
				cf, _ := colorful.MakeColor(opaque(c))
				l, a, b := cf.Lab()
				px[0], px[1], px[2] = l*100, a*100, b*100
			default:
				r, g, b, _ := c.RGBA()
				px[0], px[1], px[2] = float64(r>>8), float64(g>>8), float64(b>>8)
			}
		}
	}
	return im, nil
}

// opaque drops the alpha channel so that transparent pixels keep their colour.
func opaque(c color.Color) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 0xff
	return n
}

// Scribble hue bands. Red strokes mark foreground, blue strokes background.
const (
	minScribbleSaturation = 0.5
	minScribbleValue      = 0.3
	hueTolerance          = 30.0
	blueHue               = 240.0
)

// MaskFromScribble decodes a seed mask from a scribble image: saturated red
// pixels become models.Foreground, saturated blue pixels models.Background,
// and everything else, including transparent pixels, models.Unknown.
func MaskFromScribble(img image.Image) *models.LabelMask {
	bounds := img.Bounds()
	mask := models.NewLabelMask(bounds.Dx(), bounds.Dy())
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			c, ok := colorful.MakeColor(img.At(bounds.Min.X+x, bounds.Min.Y+y))
			if !ok {
				continue
			}
			h, s, v := c.Hsv()
			if s < minScribbleSaturation || v < minScribbleValue {
				continue
			}
			switch {
			case hueDistance(h, 0) <= hueTolerance:
				mask.Set(x, y, models.Foreground)
			case hueDistance(h, blueHue) <= hueTolerance:
				mask.Set(x, y, models.Background)
			}
		}
	}
	return mask
}

func hueDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	return math.Min(d, 360-d)
}

// Downscale resizes img by scale, keeping at least one pixel per axis.
// Scribbles should use imaging.NearestNeighbor so that seed colours are
// not blended.
func Downscale(img image.Image, scale float64, filter imaging.ResampleFilter) image.Image {
	if scale >= 1 || scale <= 0 {
		return img
	}
	bounds := img.Bounds()
	w := int(math.Max(1, math.Round(float64(bounds.Dx())*scale)))
	h := int(math.Max(1, math.Round(float64(bounds.Dy())*scale)))
	return imaging.Resize(img, w, h, filter)
}
