package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/tussienorway/tussievideo/pkg/models"
)

// mockClient is a test implementation of Client.
type mockClient struct {
	name            models.ProviderType
	supportedModels []string
	generateFunc    func(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error)
}

func (m *mockClient) Name() models.ProviderType {
	return m.name
}

func (m *mockClient) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return &models.GenerationResult{}, nil
}

func (m *mockClient) SupportsModel(model string) bool {
	for _, s := range m.supportedModels {
		if s == model {
			return true
		}
	}
	return false
}

func (m *mockClient) ListModels() []string {
	return m.supportedModels
}

func TestFactory_GetForModel(t *testing.T) {
	registry := models.NewModelRegistry()
	registry.Register(&models.ModelCapabilities{
		Name:     "test-video",
		Provider: models.ProviderGemini,
	})

	factory := NewFactory(registry)
	client := &mockClient{name: models.ProviderGemini, supportedModels: []string{"test-video"}}
	factory.Register(client)

	got, err := factory.GetForModel("test-video")
	if err != nil {
		t.Fatalf("GetForModel() error = %v", err)
	}
	if got != client {
		t.Error("GetForModel() returned wrong client")
	}

	if _, err := factory.GetForModel("no-such-model"); !errors.Is(err, ErrModelNotSupported) {
		t.Errorf("GetForModel(unknown) error = %v, want ErrModelNotSupported", err)
	}
}

func TestFactory_Get_NotRegistered(t *testing.T) {
	factory := NewFactory(models.NewModelRegistry())

	if _, err := factory.Get(models.ProviderGemini); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("Get() error = %v, want ErrProviderNotFound", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		httpStatus int
		statusName string
		message    string
		wantKind   error
	}{
		{"http 401", 401, "", "invalid key", ErrAuth},
		{"http 403", 403, "", "", ErrAuth},
		{"http 429", 429, "", "too many requests", ErrQuota},
		{"unauthenticated status", 400, "UNAUTHENTICATED", "bad credential", ErrAuth},
		{"permission denied status", 400, "PERMISSION_DENIED", "no access", ErrAuth},
		{"resource exhausted status", 400, "RESOURCE_EXHAUSTED", "quota exceeded", ErrQuota},
		{"api key message", 400, "", "API key not valid", ErrAuth},
		{"quota message", 400, "", "quota exceeded for this project", ErrQuota},
		{"billing message", 500, "", "billing required", ErrQuota},
		{"safety message", 400, "", "prompt blocked by safety settings", ErrSafety},
		{"unknown failure", 500, "INTERNAL", "something broke", ErrGeneration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Classify(tt.httpStatus, tt.statusName, tt.message)
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("Classify() = %v, want kind %v", err, tt.wantKind)
			}
		})
	}
}

func TestRemediation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"auth", ErrAuth, "reselect or update your API credential (run 'keys set gemini')"},
		{"quota", ErrQuota, "quota or plan tier exhausted; check your billing settings"},
		{"safety", ErrSafety, "the content filter rejected this prompt; try rephrasing"},
		{"empty", ErrEmptyResult, "the model produced no asset; retry the request"},
		{"download", ErrDownload, "downloading the result failed; retry the request"},
		{"other", errors.New("boom"), "generation failed; retry or adjust the request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Remediation(tt.err); got != tt.want {
				t.Errorf("Remediation() = %q, want %q", got, tt.want)
			}
		})
	}
}
