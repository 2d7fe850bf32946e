package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tussienorway/tussievideo/internal/provider"
	"github.com/tussienorway/tussievideo/pkg/models"
)

var (
	defaultPollInterval = 8 * time.Second
	maxPollAttempts     = 60 // 8 minutes max at 8s intervals
)

type videoInstance struct {
	Prompt string      `json:"prompt"`
	Image  *imageInput `json:"image,omitempty"`
	Video  *videoInput `json:"video,omitempty"`
}

type imageInput struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type videoInput struct {
	Handle string `json:"handle"`
}

type videoParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	SampleCount int    `json:"sampleCount"`
}

type videoJobRequest struct {
	Instances  []videoInstance `json:"instances"`
	Parameters videoParameters `json:"parameters"`
}

type generatedVideo struct {
	URI    string `json:"uri"`
	Handle string `json:"handle,omitempty"`
}

type videoOperation struct {
	Name     string    `json:"name"`
	Done     bool      `json:"done"`
	Error    *apiError `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse *struct {
			GeneratedSamples []struct {
				Video generatedVideo `json:"video"`
			} `json:"generatedSamples"`
			RaiMediaFilteredCount   int      `json:"raiMediaFilteredCount,omitempty"`
			RaiMediaFilteredReasons []string `json:"raiMediaFilteredReasons,omitempty"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

func (c *Client) generateVideo(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	op, err := c.createVideoOperation(ctx, req)
	if err != nil {
		return nil, err
	}

	done, err := c.pollVideoOperation(ctx, op.Name)
	if err != nil {
		return nil, err
	}

	sample, err := extractSample(done)
	if err != nil {
		return nil, err
	}

	payload, err := c.downloadVideo(ctx, sample.URI)
	if err != nil {
		return nil, err
	}

	return &models.GenerationResult{
		Payload:            payload,
		MediaType:          models.MediaVideo,
		ContinuationHandle: sample.Handle,
	}, nil
}

func (c *Client) createVideoOperation(ctx context.Context, req *models.GenerationRequest) (*videoOperation, error) {
	inst := videoInstance{Prompt: req.Prompt}

	// Handle-based extension and frame seeding are mutually exclusive on
	// the wire; the request was validated upstream.
	if req.SeedVideoHandle != "" {
		inst.Video = &videoInput{Handle: req.SeedVideoHandle}
	} else if len(req.SeedImage) > 0 {
		mime := req.SeedImageMIME
		if mime == "" {
			mime = "image/png"
		}
		inst.Image = &imageInput{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.SeedImage),
			MimeType:           mime,
		}
	}

	apiReq := &videoJobRequest{
		Instances: []videoInstance{inst},
		Parameters: videoParameters{
			AspectRatio: string(req.AspectRatio),
			Resolution:  string(req.Resolution),
			SampleCount: 1,
		},
	}

	reqURL := c.baseURL + "/models/" + req.Model + ":predictLongRunning"
	body, status, err := c.postJSON(ctx, reqURL, apiReq)
	if err != nil {
		return nil, err
	}

	var op videoOperation
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, fmt.Errorf("failed to parse operation: %w", err)
	}

	if op.Error != nil {
		return nil, provider.Classify(status, op.Error.Status, op.Error.Message)
	}
	if status != http.StatusOK {
		return nil, provider.Classify(status, "", "")
	}
	if op.Name == "" {
		return nil, fmt.Errorf("%w: operation has no name", provider.ErrGeneration)
	}

	return &op, nil
}

func (c *Client) pollVideoOperation(ctx context.Context, name string) (*videoOperation, error) {
	ticker := time.NewTicker(defaultPollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			op, status, err := c.getVideoOperation(ctx, name)
			if err != nil {
				return nil, err
			}

			if op.Error != nil {
				return nil, provider.Classify(status, op.Error.Status, op.Error.Message)
			}
			if op.Done {
				return op, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: exceeded maximum poll attempts", provider.ErrGeneration)
}

func (c *Client) getVideoOperation(ctx context.Context, name string) (*videoOperation, int, error) {
	reqURL := c.baseURL + "/" + strings.TrimPrefix(name, "/")
	body, status, err := c.getJSON(ctx, reqURL)
	if err != nil {
		return nil, 0, err
	}

	var op videoOperation
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, 0, fmt.Errorf("failed to parse operation: %w", err)
	}

	return &op, status, nil
}

func extractSample(op *videoOperation) (*generatedVideo, error) {
	if op.Response == nil || op.Response.GenerateVideoResponse == nil {
		return nil, fmt.Errorf("%w: operation completed without a response", provider.ErrEmptyResult)
	}

	resp := op.Response.GenerateVideoResponse
	if len(resp.GeneratedSamples) == 0 {
		if resp.RaiMediaFilteredCount > 0 {
			reason := "output filtered"
			if len(resp.RaiMediaFilteredReasons) > 0 {
				reason = resp.RaiMediaFilteredReasons[0]
			}
			return nil, fmt.Errorf("%w: %s", provider.ErrSafety, reason)
		}
		return nil, fmt.Errorf("%w: no generated samples", provider.ErrEmptyResult)
	}

	sample := resp.GeneratedSamples[0].Video
	if sample.URI == "" {
		return nil, fmt.Errorf("%w: sample has no download URI", provider.ErrEmptyResult)
	}
	return &sample, nil
}

func (c *Client) downloadVideo(ctx context.Context, assetURI string) ([]byte, error) {
	// The asset URI is pre-signed but still wants the key as a query
	// parameter rather than a header.
	reqURL := assetURI
	if u, err := url.Parse(assetURI); err == nil {
		q := u.Query()
		q.Set("key", c.apiKey)
		u.RawQuery = q.Encode()
		reqURL = u.String()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", provider.ErrDownload, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrDownload, err)
	}
	return payload, nil
}
