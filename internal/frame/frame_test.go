package frame

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/tussienorway/tussievideo/pkg/models"
)

// fakeFFmpeg writes canned frame bytes instead of decoding video.
type fakeFFmpeg struct {
	frame   []byte
	err     error
	block   time.Duration
	gotPath string
}

func (f *fakeFFmpeg) LastFrame(ctx context.Context, videoPath, outPath string) error {
	f.gotPath = videoPath
	if f.block > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.block):
		}
	}
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(outPath, f.frame, 0644)
}

func TestExtractor_LastFrame(t *testing.T) {
	fake := &fakeFFmpeg{frame: []byte("png bytes")}
	e := NewExtractor(fake)

	still, err := e.LastFrame(context.Background(), []byte("video bytes"))
	if err != nil {
		t.Fatalf("LastFrame() error = %v", err)
	}
	if string(still) != "png bytes" {
		t.Error("frame mismatch")
	}

	// The payload was staged to disk for ffmpeg and cleaned up after.
	if fake.gotPath == "" {
		t.Fatal("ffmpeg never received a video path")
	}
	if _, err := os.Stat(fake.gotPath); !os.IsNotExist(err) {
		t.Errorf("staged video not cleaned up: %v", err)
	}
}

func TestExtractor_LastFrame_FFmpegFailure(t *testing.T) {
	e := NewExtractor(&fakeFFmpeg{err: errors.New("codec not found")})

	_, err := e.LastFrame(context.Background(), []byte("video"))
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("LastFrame() error = %v, want ErrExtraction", err)
	}
}

func TestExtractor_LastFrame_EmptyFrame(t *testing.T) {
	e := NewExtractor(&fakeFFmpeg{frame: nil})

	_, err := e.LastFrame(context.Background(), []byte("video"))
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("LastFrame() error = %v, want ErrExtraction", err)
	}
}

func TestExtractor_LastFrame_Timeout(t *testing.T) {
	e := NewExtractor(&fakeFFmpeg{frame: []byte("late"), block: time.Second})
	e.timeout = 10 * time.Millisecond

	_, err := e.LastFrame(context.Background(), []byte("video"))
	if !errors.Is(err, ErrExtraction) {
		t.Errorf("LastFrame() error = %v, want ErrExtraction", err)
	}
}

func TestExtractor_SeedFrame(t *testing.T) {
	e := NewExtractor(&fakeFFmpeg{frame: []byte("last frame")})

	t.Run("image uses payload directly", func(t *testing.T) {
		clip := &models.Clip{MediaType: models.MediaImage, Payload: []byte("still")}
		seed, mime, err := e.SeedFrame(context.Background(), clip)
		if err != nil {
			t.Fatalf("SeedFrame() error = %v", err)
		}
		if string(seed) != "still" || mime != "image/png" {
			t.Errorf("SeedFrame() = %q, %q", seed, mime)
		}
	})

	t.Run("video extracts last frame", func(t *testing.T) {
		clip := &models.Clip{MediaType: models.MediaVideo, Payload: []byte("video")}
		seed, mime, err := e.SeedFrame(context.Background(), clip)
		if err != nil {
			t.Fatalf("SeedFrame() error = %v", err)
		}
		if string(seed) != "last frame" || mime != "image/png" {
			t.Errorf("SeedFrame() = %q, %q", seed, mime)
		}
	})

	t.Run("unknown media type", func(t *testing.T) {
		clip := &models.Clip{MediaType: "AUDIO"}
		_, _, err := e.SeedFrame(context.Background(), clip)
		if !errors.Is(err, ErrExtraction) {
			t.Errorf("SeedFrame() error = %v, want ErrExtraction", err)
		}
	})
}

func TestExtractor_Thumbnail(t *testing.T) {
	e := NewExtractor(&fakeFFmpeg{frame: []byte("last frame")})

	still, err := e.Thumbnail(context.Background(), models.MediaImage, []byte("img"))
	if err != nil || string(still) != "img" {
		t.Errorf("Thumbnail(image) = %q, %v", still, err)
	}

	still, err = e.Thumbnail(context.Background(), models.MediaVideo, []byte("vid"))
	if err != nil || string(still) != "last frame" {
		t.Errorf("Thumbnail(video) = %q, %v", still, err)
	}
}
