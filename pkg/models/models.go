package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	ErrInvalidMediaType         = errors.New("media type must be VIDEO or IMAGE")
	ErrEmptyPayload             = errors.New("clip payload is empty")
	ErrNoContinuationSeed       = errors.New("continuation requires a seed image or video handle")
	ErrConflictingSeeds         = errors.New("seed image and video handle are mutually exclusive")
	ErrInvalidAspectRatio       = errors.New("invalid aspect ratio for model")
	ErrInvalidResolution        = errors.New("invalid resolution for model")
	ErrContinuationNotSupported = errors.New("model does not support handle-based continuation")
)

type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
)

// MediaType tags a clip as either a playable video or a single still.
// Seeding for the next clip and rendering both dispatch on it.
type MediaType string

const (
	MediaVideo MediaType = "VIDEO"
	MediaImage MediaType = "IMAGE"
)

func (m MediaType) IsValid() bool {
	return m == MediaVideo || m == MediaImage
}

func (m MediaType) Ext() string {
	if m == MediaVideo {
		return ".mp4"
	}
	return ".png"
}

func (m MediaType) MIME() string {
	if m == MediaVideo {
		return "video/mp4"
	}
	return "image/png"
}

type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
)

type Resolution string

const (
	Resolution720p  Resolution = "720p"
	Resolution1080p Resolution = "1080p"
)

// Project is an ordered sequence of clips. Clip order is the timeline:
// clips are only ever appended, never reordered or edited in place.
type Project struct {
	ID        string
	Name      string
	CreatedAt time.Time
	Clips     []*Clip
}

func NewProject(name string, id string, createdAt time.Time) *Project {
	return &Project{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
	}
}

func (p *Project) LastClip() *Clip {
	if len(p.Clips) == 0 {
		return nil
	}
	return p.Clips[len(p.Clips)-1]
}

func (p *Project) Append(c *Clip) {
	c.ProjectID = p.ID
	p.Clips = append(p.Clips, c)
}

// PayloadBytes is the total size of all clip payloads, for listings.
func (p *Project) PayloadBytes() uint64 {
	var n uint64
	for _, c := range p.Clips {
		n += uint64(len(c.Payload))
	}
	return n
}

// EstimatedRuntime assumes each clip plays for nominalSeconds.
func (p *Project) EstimatedRuntime(nominalSeconds int) time.Duration {
	return time.Duration(len(p.Clips)*nominalSeconds) * time.Second
}

// Clip is one generated piece of media. It is created only as the result
// of a successful generation call and is immutable afterwards.
type Clip struct {
	ID        string
	ProjectID string
	Timestamp time.Time
	Prompt    string
	MediaType MediaType
	Payload   []byte

	// Thumbnail is a small still derived from Payload, cached so renders
	// and seed fallback never have to decode the payload again.
	Thumbnail []byte

	// ContinuationHandle is the opaque token the remote API returned for
	// server-side extension. Empty when the API offered none; callers then
	// fall back to frame-based seeding.
	ContinuationHandle string

	// PreviewRef is a session-local playback handle minted from Payload on
	// every load. It is never persisted and is invalid across sessions.
	PreviewRef string
}

func (c *Clip) Validate() error {
	if !c.MediaType.IsValid() {
		return ErrInvalidMediaType
	}
	if len(c.Payload) == 0 {
		return ErrEmptyPayload
	}
	return nil
}

// GenerationRequest is the transient input to one generation round-trip.
// It is never persisted.
type GenerationRequest struct {
	Prompt          string
	Model           string
	SeedImage       []byte
	SeedImageMIME   string
	SeedVideoHandle string
	IsContinuation  bool
	AspectRatio     AspectRatio
	Resolution      Resolution
}

func NewGenerationRequest(prompt string) *GenerationRequest {
	return &GenerationRequest{
		Prompt:      prompt,
		AspectRatio: AspectLandscape,
		Resolution:  Resolution720p,
	}
}

func (r *GenerationRequest) Validate() error {
	if len(r.SeedImage) > 0 && r.SeedVideoHandle != "" {
		return ErrConflictingSeeds
	}
	if r.IsContinuation && len(r.SeedImage) == 0 && r.SeedVideoHandle == "" {
		return ErrNoContinuationSeed
	}
	return nil
}

// GenerationResult is the normalized output of one generation round-trip.
type GenerationResult struct {
	Payload            []byte
	MediaType          MediaType
	ContinuationHandle string
}

// ModelCapabilities describes what one remote model accepts and returns.
// Model choice shapes the request; it never changes the client contract.
type ModelCapabilities struct {
	Name                 string
	Provider             ProviderType
	Media                MediaType
	SupportedAspects     []AspectRatio
	SupportedResolutions []Resolution
	DefaultAspect        AspectRatio
	DefaultResolution    Resolution
	SupportsContinuation bool
	NominalClipSeconds   int
}

func (c *ModelCapabilities) Validate(req *GenerationRequest) error {
	if req.AspectRatio != "" && !slices.Contains(c.SupportedAspects, req.AspectRatio) {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidAspectRatio, req.AspectRatio, c.SupportedAspects)
	}
	if req.Resolution != "" && len(c.SupportedResolutions) > 0 && !slices.Contains(c.SupportedResolutions, req.Resolution) {
		return fmt.Errorf("%w: %q not in %v", ErrInvalidResolution, req.Resolution, c.SupportedResolutions)
	}
	if req.SeedVideoHandle != "" && !c.SupportsContinuation {
		return fmt.Errorf("%w: %s", ErrContinuationNotSupported, c.Name)
	}
	return req.Validate()
}

func (c *ModelCapabilities) ApplyDefaults(req *GenerationRequest) {
	if req.AspectRatio == "" {
		req.AspectRatio = c.DefaultAspect
	}
	if req.Resolution == "" && c.DefaultResolution != "" {
		req.Resolution = c.DefaultResolution
	}
	if req.Model == "" {
		req.Model = c.Name
	}
}

type ModelRegistry struct {
	models map[string]*ModelCapabilities
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		models: make(map[string]*ModelCapabilities),
	}
}

func (r *ModelRegistry) Register(cap *ModelCapabilities) {
	r.models[cap.Name] = cap
}

func (r *ModelRegistry) Get(name string) (*ModelCapabilities, bool) {
	cap, ok := r.models[name]
	return cap, ok
}

func (r *ModelRegistry) List() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *ModelRegistry) ListByProvider(provider ProviderType) []string {
	var names []string
	for name, cap := range r.models {
		if cap.Provider == provider {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func DefaultRegistry() *ModelRegistry {
	r := NewModelRegistry()

	r.Register(&ModelCapabilities{
		Name:                 "veo-3.1",
		Provider:             ProviderGemini,
		Media:                MediaVideo,
		SupportedAspects:     []AspectRatio{AspectLandscape, AspectPortrait},
		SupportedResolutions: []Resolution{Resolution720p, Resolution1080p},
		DefaultAspect:        AspectLandscape,
		DefaultResolution:    Resolution720p,
		SupportsContinuation: true,
		NominalClipSeconds:   7,
	})

	r.Register(&ModelCapabilities{
		Name:                 "veo-3.1-fast",
		Provider:             ProviderGemini,
		Media:                MediaVideo,
		SupportedAspects:     []AspectRatio{AspectLandscape, AspectPortrait},
		SupportedResolutions: []Resolution{Resolution720p},
		DefaultAspect:        AspectLandscape,
		DefaultResolution:    Resolution720p,
		SupportsContinuation: true,
		NominalClipSeconds:   7,
	})

	r.Register(&ModelCapabilities{
		Name:                 "gemini-2.5-flash-image",
		Provider:             ProviderGemini,
		Media:                MediaImage,
		SupportedAspects:     []AspectRatio{AspectLandscape, AspectPortrait},
		SupportedResolutions: nil,
		DefaultAspect:        AspectLandscape,
		DefaultResolution:    "",
		SupportsContinuation: false,
		NominalClipSeconds:   3,
	})

	return r
}
