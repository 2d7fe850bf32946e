package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tussienorway/tussievideo/pkg/models"
)

var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrModelNotSupported = errors.New("model not supported by provider")
	ErrAPIKeyRequired    = errors.New("API key is required")

	// Failure taxonomy for one generation round-trip. The controller
	// normalizes every remote failure to exactly one of these.
	ErrAuth        = errors.New("authentication or entitlement failure")
	ErrQuota       = errors.New("quota or rate limit exhausted")
	ErrSafety      = errors.New("request blocked by content filter")
	ErrEmptyResult = errors.New("operation completed without an asset")
	ErrDownload    = errors.New("asset download failed")
	ErrGeneration  = errors.New("generation failed")
)

// Client performs one generation round-trip: submit, poll to completion if
// the remote operation is asynchronous, fetch the binary. It holds no state
// between calls and never retries a failed request.
type Client interface {
	Name() models.ProviderType
	Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error)
	SupportsModel(model string) bool
	ListModels() []string
}

// Enhancer optionally rewrites a user prompt into a more cinematic one
// before generation. Implementations must fall back to the input on error.
type Enhancer interface {
	EnhancePrompt(ctx context.Context, prompt string, isContinuation bool) (string, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	TimeoutSec int
	Verbose    bool
}

// Classify maps a remote error response onto the failure taxonomy.
// statusName is the remote API's machine-readable status (e.g.
// "RESOURCE_EXHAUSTED"); message is its human-readable detail.
func Classify(httpStatus int, statusName, message string) error {
	wrap := func(kind error) error {
		if message == "" {
			return fmt.Errorf("%w: status %d", kind, httpStatus)
		}
		return fmt.Errorf("%w: %s", kind, message)
	}

	switch httpStatus {
	case 401, 403:
		return wrap(ErrAuth)
	case 429:
		return wrap(ErrQuota)
	}

	switch statusName {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return wrap(ErrAuth)
	case "RESOURCE_EXHAUSTED":
		return wrap(ErrQuota)
	}

	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "api key"):
		return wrap(ErrAuth)
	case strings.Contains(lower, "quota") || strings.Contains(lower, "billing"):
		return wrap(ErrQuota)
	case strings.Contains(lower, "safety") || strings.Contains(lower, "blocked"):
		return wrap(ErrSafety)
	}

	return wrap(ErrGeneration)
}

// Remediation returns the user-facing hint for a classified error.
func Remediation(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "reselect or update your API credential (run 'keys set gemini')"
	case errors.Is(err, ErrQuota):
		return "quota or plan tier exhausted; check your billing settings"
	case errors.Is(err, ErrSafety):
		return "the content filter rejected this prompt; try rephrasing"
	case errors.Is(err, ErrEmptyResult):
		return "the model produced no asset; retry the request"
	case errors.Is(err, ErrDownload):
		return "downloading the result failed; retry the request"
	default:
		return "generation failed; retry or adjust the request"
	}
}

type Factory struct {
	registry  *models.ModelRegistry
	configs   map[models.ProviderType]*Config
	providers map[models.ProviderType]Client
}

func NewFactory(registry *models.ModelRegistry) *Factory {
	return &Factory{
		registry:  registry,
		configs:   make(map[models.ProviderType]*Config),
		providers: make(map[models.ProviderType]Client),
	}
}

func (f *Factory) Configure(providerType models.ProviderType, cfg *Config) {
	f.configs[providerType] = cfg
}

func (f *Factory) Register(client Client) {
	f.providers[client.Name()] = client
}

func (f *Factory) Get(providerType models.ProviderType) (Client, error) {
	client, ok := f.providers[providerType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerType)
	}
	return client, nil
}

func (f *Factory) GetForModel(model string) (Client, error) {
	cap, ok := f.registry.Get(model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotSupported, model)
	}

	client, ok := f.providers[cap.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s (required by model %s)", ErrProviderNotFound, cap.Provider, model)
	}

	return client, nil
}

func (f *Factory) GetConfig(providerType models.ProviderType) (*Config, bool) {
	cfg, ok := f.configs[providerType]
	return cfg, ok
}

func (f *Factory) ListProviders() []models.ProviderType {
	types := make([]models.ProviderType, 0, len(f.providers))
	for t := range f.providers {
		types = append(types, t)
	}
	return types
}
