// Package chain orchestrates clip generation against an open project:
// single shots, continuations seeded from the previous clip, and the
// auto-chain loop that keeps extending the storyboard until cancelled.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tussienorway/tussievideo/internal/frame"
	"github.com/tussienorway/tussievideo/internal/provider"
	"github.com/tussienorway/tussievideo/pkg/models"
)

var (
	ErrBusy              = errors.New("a generation is already in progress")
	ErrNoProject         = errors.New("no project is open")
	ErrNothingToContinue = errors.New("project has no clip to continue from")
)

// DefaultDirective stands in for an empty continuation prompt. A
// continuation request always carries a non-empty instruction.
const DefaultDirective = "Continue the scene with a natural cinematic flow."

const defaultChainDelay = 750 * time.Millisecond

// continuityGuard frames a frame-seeded continuation so the model treats
// the seed as the scene being extended rather than a loose reference.
const continuityGuard = "This is the next shot in an ongoing scene. Match the seed image's style, characters, and lighting exactly. "

type State int

const (
	StateIdle State = iota
	StateRequesting
)

func (s State) String() string {
	if s == StateRequesting {
		return "requesting"
	}
	return "idle"
}

// Saver persists a project after every accepted clip.
type Saver interface {
	Save(ctx context.Context, project *models.Project) error
}

type Controller struct {
	client    provider.Client
	enhancer  provider.Enhancer
	extractor *frame.Extractor
	saver     Saver
	registry  *models.ModelRegistry
	logger    *slog.Logger

	chainDelay time.Duration

	mu        sync.Mutex
	state     State
	project   *models.Project
	chaining  bool
	cancelled bool
}

type Option func(*Controller)

// WithEnhancer enables best-effort prompt rewriting before generation.
func WithEnhancer(e provider.Enhancer) Option {
	return func(c *Controller) { c.enhancer = e }
}

func WithChainDelay(d time.Duration) Option {
	return func(c *Controller) { c.chainDelay = d }
}

func NewController(client provider.Client, extractor *frame.Extractor, saver Saver,
	registry *models.ModelRegistry, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		client:     client,
		extractor:  extractor,
		saver:      saver,
		registry:   registry,
		logger:     logger,
		chainDelay: defaultChainDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open makes the project the target of subsequent generations.
func (c *Controller) Open(project *models.Project) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.project = project
}

// Project returns a snapshot of the open project. Callers get their own
// clip slice, so reading it stays safe while a chain appends to the live
// record in the background.
func (c *Controller) Project() *models.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.project == nil {
		return nil
	}
	snap := *c.project
	snap.Clips = append([]*models.Clip(nil), c.project.Clips...)
	return &snap
}

// Status is a point-in-time snapshot for display.
type Status struct {
	ProjectID   string
	ProjectName string
	ClipCount   int
	State       State
	Chaining    bool
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{State: c.state, Chaining: c.chaining}
	if c.project != nil {
		st.ProjectID = c.project.ID
		st.ProjectName = c.project.Name
		st.ClipCount = len(c.project.Clips)
	}
	return st
}

type GenerateOptions struct {
	Prompt     string
	Model      string
	Upload     []byte
	UploadMIME string
	Continue   bool
	Enhance    bool
}

// Generate produces one clip, appends it to the open project, and
// persists the project. Only one generation runs at a time, and manual
// generation is rejected for as long as a chain is active, including the
// delay between its steps.
func (c *Controller) Generate(ctx context.Context, opts GenerateOptions) (*models.Clip, error) {
	return c.generate(ctx, opts, false)
}

func (c *Controller) generate(ctx context.Context, opts GenerateOptions, fromChain bool) (*models.Clip, error) {
	c.mu.Lock()
	if c.state != StateIdle || (c.chaining && !fromChain) {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if c.project == nil {
		c.mu.Unlock()
		return nil, ErrNoProject
	}
	project := c.project
	c.state = StateRequesting
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
	}()

	req, recordedPrompt, err := c.buildRequest(ctx, project, opts)
	if err != nil {
		return nil, err
	}

	c.logger.Info("generating clip",
		"project", project.ID, "model", req.Model, "continuation", req.IsContinuation)

	result, err := c.client.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	thumbnail, err := c.extractor.Thumbnail(ctx, result.MediaType, result.Payload)
	if err != nil {
		// A clip without a thumbnail is still usable; seeding falls back
		// to extracting from the payload again.
		c.logger.Warn("thumbnail capture failed", "project", project.ID, "error", err)
		thumbnail = nil
	}

	clip := &models.Clip{
		ID:                 uuid.NewString(),
		ProjectID:          project.ID,
		Timestamp:          time.Now().UTC(),
		Prompt:             recordedPrompt,
		MediaType:          result.MediaType,
		Payload:            result.Payload,
		Thumbnail:          thumbnail,
		ContinuationHandle: result.ContinuationHandle,
	}

	c.mu.Lock()
	project.Append(clip)
	c.mu.Unlock()

	if err := c.saver.Save(ctx, project); err != nil {
		return nil, fmt.Errorf("clip generated but not saved: %w", err)
	}

	return clip, nil
}

func (c *Controller) buildRequest(ctx context.Context, project *models.Project, opts GenerateOptions) (*models.GenerationRequest, string, error) {
	prompt := strings.TrimSpace(opts.Prompt)
	if opts.Continue && prompt == "" {
		prompt = DefaultDirective
	}

	if opts.Enhance && c.enhancer != nil {
		enhanced, err := c.enhancer.EnhancePrompt(ctx, prompt, opts.Continue)
		if err == nil && enhanced != "" {
			prompt = enhanced
		}
	}

	req := models.NewGenerationRequest(prompt)
	req.Model = opts.Model

	if !opts.Continue {
		if len(opts.Upload) > 0 {
			req.SeedImage = opts.Upload
			req.SeedImageMIME = opts.UploadMIME
		}
		return req, prompt, nil
	}

	last := project.LastClip()
	if last == nil {
		return nil, "", ErrNothingToContinue
	}
	req.IsContinuation = true

	// Server-side extension wins when the previous clip carries a handle
	// and the model can consume it; otherwise seed from the last frame,
	// falling back to the cached thumbnail when extraction fails.
	if cap, ok := c.registry.Get(opts.Model); ok && cap.SupportsContinuation && last.ContinuationHandle != "" {
		req.SeedVideoHandle = last.ContinuationHandle
		return req, prompt, nil
	}

	seed, mime, err := c.extractor.SeedFrame(ctx, last)
	if err != nil {
		if errors.Is(err, frame.ErrExtraction) && len(last.Thumbnail) > 0 {
			c.logger.Warn("seed extraction failed, using thumbnail", "clip", last.ID, "error", err)
			seed, mime = last.Thumbnail, "image/png"
		} else {
			return nil, "", err
		}
	}

	req.SeedImage = seed
	req.SeedImageMIME = mime
	// The guard goes on the wire only; the clip records the user's prompt.
	req.Prompt = continuityGuard + prompt
	return req, prompt, nil
}
