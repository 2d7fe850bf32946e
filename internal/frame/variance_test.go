package frame

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"
)

func encodeGray(t *testing.T, pixel func(x, y int) uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Pix[y*img.Stride+x] = pixel(x, y)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestVariance_FlatVersusTextured(t *testing.T) {
	flat := encodeGray(t, func(x, y int) uint8 { return 128 })
	textured := encodeGray(t, func(x, y int) uint8 {
		if (x+y)%2 == 0 {
			return 16
		}
		return 240
	})

	// Route both through the extractor the way a real seed frame arrives.
	e := NewExtractor(&fakeFFmpeg{frame: flat})
	still, err := e.LastFrame(context.Background(), []byte("video"))
	if err != nil {
		t.Fatalf("LastFrame() error = %v", err)
	}
	flatVar, err := Variance(still)
	if err != nil {
		t.Fatalf("Variance(flat) error = %v", err)
	}
	if flatVar > 1 {
		t.Errorf("Variance(flat) = %f, want near zero", flatVar)
	}

	e = NewExtractor(&fakeFFmpeg{frame: textured})
	still, err = e.LastFrame(context.Background(), []byte("video"))
	if err != nil {
		t.Fatalf("LastFrame() error = %v", err)
	}
	texturedVar, err := Variance(still)
	if err != nil {
		t.Fatalf("Variance(textured) error = %v", err)
	}
	if texturedVar <= 100*flatVar || texturedVar < 1000 {
		t.Errorf("Variance(textured) = %f, want well above flat (%f)", texturedVar, flatVar)
	}
}

func TestVariance_RejectsNonImage(t *testing.T) {
	_, err := Variance([]byte("not a png"))
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("Variance() error = %v, want ErrExtraction", err)
	}
}
