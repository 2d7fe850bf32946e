package frame

import (
	"bytes"
	"fmt"
	"image/png"
)

// Variance returns the luminance variance of a PNG still. A value near
// zero means the frame is a flat field, which is useless as a continuity
// seed; anything with visible structure scores well above it.
func Variance(encoded []byte) (float64, error) {
	img, err := png.Decode(bytes.NewReader(encoded))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	bounds := img.Bounds()
	n := float64(bounds.Dx() * bounds.Dy())
	if n == 0 {
		return 0, fmt.Errorf("%w: image has no pixels", ErrExtraction)
	}

	var sum, sumSq float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 256
			sum += lum
			sumSq += lum * lum
		}
	}

	mean := sum / n
	return sumSq/n - mean*mean, nil
}
