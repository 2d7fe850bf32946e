// Package frame captures seed stills from generated media. The last frame
// of a video is grabbed slightly before the container's reported end,
// since the final decoded frame is often blank or torn.
package frame

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tussienorway/tussievideo/pkg/models"
)

// ErrExtraction marks a failed frame grab. Callers that hold a cached
// thumbnail can fall back to it instead of aborting.
var ErrExtraction = errors.New("frame extraction failed")

const extractTimeout = 15 * time.Second

// FFmpeg grabs the last frame of a video file into a still image file.
type FFmpeg interface {
	LastFrame(ctx context.Context, videoPath, outPath string) error
}

type Extractor struct {
	ffmpeg  FFmpeg
	timeout time.Duration
}

func NewExtractor(ffmpeg FFmpeg) *Extractor {
	return &Extractor{ffmpeg: ffmpeg, timeout: extractTimeout}
}

// LastFrame decodes the final visible frame of the video payload and
// returns it as PNG bytes. The whole grab is bounded; a stall never
// blocks the caller for more than the extraction timeout.
func (e *Extractor) LastFrame(ctx context.Context, videoPayload []byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "tussievideo-frame-")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer os.RemoveAll(dir)

	videoPath := filepath.Join(dir, "clip.mp4")
	outPath := filepath.Join(dir, "frame.png")

	if err := os.WriteFile(videoPath, videoPayload, 0644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.ffmpeg.LastFrame(ctx, videoPath, outPath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	still, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: no frame produced: %v", ErrExtraction, err)
	}
	if len(still) == 0 {
		return nil, fmt.Errorf("%w: empty frame produced", ErrExtraction)
	}
	return still, nil
}

// SeedFrame derives the continuity seed for chaining off a clip: the
// payload itself for stills, the extracted last frame for video. The
// returned MIME type matches the seed bytes.
func (e *Extractor) SeedFrame(ctx context.Context, clip *models.Clip) ([]byte, string, error) {
	switch clip.MediaType {
	case models.MediaImage:
		return clip.Payload, clip.MediaType.MIME(), nil
	case models.MediaVideo:
		still, err := e.LastFrame(ctx, clip.Payload)
		if err != nil {
			return nil, "", err
		}
		return still, "image/png", nil
	default:
		return nil, "", fmt.Errorf("%w: unknown media type %q", ErrExtraction, clip.MediaType)
	}
}

// Thumbnail produces the cached still for a freshly generated payload.
// Stills are their own thumbnail; videos use their last frame.
func (e *Extractor) Thumbnail(ctx context.Context, media models.MediaType, payload []byte) ([]byte, error) {
	if media == models.MediaImage {
		return payload, nil
	}
	return e.LastFrame(ctx, payload)
}
