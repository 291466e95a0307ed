// Package visualization renders segmentation results as images: a plain
// black and white label map, and an overlay that tints the original image
// by label the way interactive segmentation tools present their output.
package visualization
