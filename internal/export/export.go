// Package export assembles a project's still clips into a movie file.
// Each still is held on screen for a fixed duration and the sequence is
// encoded at a constant frame rate.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tussienorway/tussievideo/internal/security"
	"github.com/tussienorway/tussievideo/pkg/models"
)

var ErrNoStills = errors.New("project has no image clips to export")

const (
	defaultHold   = 3000 * time.Millisecond
	defaultFPS    = 30
	defaultWidth  = 1280
	defaultHeight = 720

	movieSuffix = "-movie.mp4"
)

// Frame is one still in the assembled sequence.
type Frame struct {
	Path string
	Hold time.Duration
}

// Encoder turns a frame sequence into a movie file.
type Encoder interface {
	Encode(ctx context.Context, frames []Frame, outPath string, fps, width, height int) error
}

type Options struct {
	OutputDir string
	Hold      time.Duration
	FPS       int
	Width     int
	Height    int
}

func (o *Options) applyDefaults() {
	if o.Hold <= 0 {
		o.Hold = defaultHold
	}
	if o.FPS <= 0 {
		o.FPS = defaultFPS
	}
	if o.Width <= 0 {
		o.Width = defaultWidth
	}
	if o.Height <= 0 {
		o.Height = defaultHeight
	}
}

type Assembler struct {
	encoder Encoder
	logger  *slog.Logger
}

func NewAssembler(encoder Encoder, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{encoder: encoder, logger: logger}
}

// ExportMovie writes the project's image clips, in storyboard order, as a
// movie named after the project. Video clips are skipped; they already
// are movies. Returns the output path.
func (a *Assembler) ExportMovie(ctx context.Context, project *models.Project, opts Options) (string, error) {
	opts.applyDefaults()

	var stills []*models.Clip
	for _, clip := range project.Clips {
		if clip.MediaType == models.MediaImage {
			stills = append(stills, clip)
		}
	}
	if len(stills) == 0 {
		return "", ErrNoStills
	}

	stageDir, err := os.MkdirTemp("", "tussievideo-export-")
	if err != nil {
		return "", fmt.Errorf("failed to stage frames: %w", err)
	}
	defer os.RemoveAll(stageDir)

	frames := make([]Frame, 0, len(stills))
	for i, clip := range stills {
		path := filepath.Join(stageDir, fmt.Sprintf("frame-%03d.png", i))
		if err := os.WriteFile(path, clip.Payload, 0644); err != nil {
			return "", fmt.Errorf("failed to stage frame %d: %w", i, err)
		}
		frames = append(frames, Frame{Path: path, Hold: opts.Hold})
	}

	name := security.SanitizeFilename(project.Name)
	outPath := filepath.Join(opts.OutputDir, name+movieSuffix)

	a.logger.Info("exporting movie",
		"project", project.ID, "stills", len(stills), "out", outPath)

	if err := a.encoder.Encode(ctx, frames, outPath, opts.FPS, opts.Width, opts.Height); err != nil {
		return "", fmt.Errorf("failed to encode movie: %w", err)
	}
	return outPath, nil
}

// FrameCount returns how many encoded frames a sequence spans at the
// given rate, rounding each hold down to whole frames.
func FrameCount(frames []Frame, fps int) int {
	total := 0
	for _, f := range frames {
		total += int(f.Hold.Milliseconds()) * fps / 1000
	}
	return total
}
