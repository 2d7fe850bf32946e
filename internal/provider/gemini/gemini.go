package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tussienorway/tussievideo/internal/provider"
	"github.com/tussienorway/tussievideo/pkg/models"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultTimeout = 120 * time.Second
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type errorEnvelope struct {
	Error *apiError `json:"error,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type contentPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type content struct {
	Parts []contentPart `json:"parts"`
}

type imageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type generationConfig struct {
	ImageConfig *imageConfig `json:"imageConfig,omitempty"`
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *apiError `json:"error,omitempty"`
}

// Client talks to the Gemini generative media API. Still images come back
// synchronously from generateContent; video runs as a long-running
// operation that is polled and then downloaded.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	registry   *models.ModelRegistry
	logger     *slog.Logger
}

func New(cfg *provider.Config, registry *models.ModelRegistry, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		registry: registry,
		logger:   logger,
	}, nil
}

func (c *Client) Name() models.ProviderType {
	return models.ProviderGemini
}

func (c *Client) SupportsModel(model string) bool {
	cap, ok := c.registry.Get(model)
	if !ok {
		return false
	}
	return cap.Provider == models.ProviderGemini
}

func (c *Client) ListModels() []string {
	return c.registry.ListByProvider(models.ProviderGemini)
}

// Generate performs one round-trip. The model's media kind decides the
// transport: synchronous generateContent for stills, operation polling
// for video. Retrying a failed request is the caller's decision.
func (c *Client) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	cap, ok := c.registry.Get(req.Model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", provider.ErrModelNotSupported, req.Model)
	}

	if err := cap.Validate(req); err != nil {
		return nil, err
	}

	if cap.Media == models.MediaVideo {
		return c.generateVideo(ctx, req)
	}
	return c.generateImage(ctx, req)
}

func (c *Client) generateImage(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	var parts []contentPart
	if len(req.SeedImage) > 0 {
		mime := req.SeedImageMIME
		if mime == "" {
			mime = "image/png"
		}
		parts = append(parts, contentPart{
			InlineData: &inlineData{
				MimeType: mime,
				Data:     base64.StdEncoding.EncodeToString(req.SeedImage),
			},
		})
		parts = append(parts, contentPart{
			Text: "Create a new image that logically follows this previous scene, matching its style exactly. " + req.Prompt,
		})
	} else {
		parts = append(parts, contentPart{Text: req.Prompt})
	}

	apiReq := &generateContentRequest{
		Contents: []content{{Parts: parts}},
		GenerationConfig: &generationConfig{
			ImageConfig: &imageConfig{AspectRatio: string(req.AspectRatio)},
		},
	}

	url := c.baseURL + "/models/" + req.Model + ":generateContent"
	body, status, err := c.postJSON(ctx, url, apiReq)
	if err != nil {
		return nil, err
	}

	var apiResp generateContentResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, provider.Classify(status, apiResp.Error.Status, apiResp.Error.Message)
	}
	if status != http.StatusOK {
		return nil, provider.Classify(status, "", "")
	}

	for _, cand := range apiResp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData == nil {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to decode image data: %w", err)
			}
			return &models.GenerationResult{
				Payload:   data,
				MediaType: models.MediaImage,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: no inline image in response", provider.ErrEmptyResult)
}

func (c *Client) postJSON(ctx context.Context, url string, payload any) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	c.logger.Debug("gemini request", "method", http.MethodPost, "url", url, "body_bytes", len(data))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("gemini response", "status", resp.StatusCode, "body_bytes", len(body))

	return body, resp.StatusCode, nil
}

func (c *Client) getJSON(ctx context.Context, url string) ([]byte, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}

	return body, resp.StatusCode, nil
}
