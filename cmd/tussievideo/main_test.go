package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tussienorway/tussievideo/internal/export"
	"github.com/tussienorway/tussievideo/internal/provider"
	"github.com/tussienorway/tussievideo/internal/store"
	"github.com/tussienorway/tussievideo/pkg/models"
)

type stubClient struct {
	result *models.GenerationResult
	err    error
	gotReq *models.GenerationRequest
}

func (s *stubClient) Generate(ctx context.Context, req *models.GenerationRequest) (*models.GenerationResult, error) {
	s.gotReq = req
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return &models.GenerationResult{Payload: []byte("img"), MediaType: models.MediaImage}, nil
}

func (s *stubClient) Name() models.ProviderType { return models.ProviderGemini }
func (s *stubClient) SupportsModel(string) bool { return true }
func (s *stubClient) ListModels() []string      { return nil }

type noopFFmpeg struct{}

func (noopFFmpeg) LastFrame(ctx context.Context, videoPath, outPath string) error {
	return os.WriteFile(outPath, []byte("frame"), 0644)
}

type noopEncoder struct{}

func (noopEncoder) Encode(ctx context.Context, frames []export.Frame, outPath string, fps, width, height int) error {
	return os.WriteFile(outPath, []byte("movie"), 0644)
}

func testApp(t *testing.T, client *stubClient, in io.Reader) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "projects.db")
	if in == nil {
		in = strings.NewReader("")
	}

	var out, errOut bytes.Buffer
	app := &App{
		In:       in,
		Out:      &out,
		Err:      &errOut,
		Registry: models.DefaultRegistry(),
		NewClient: func(cfg *provider.Config, registry *models.ModelRegistry, logger *slog.Logger) (provider.Client, error) {
			return client, nil
		},
		NewStore: func() (*store.Store, error) {
			return store.NewStoreWithPath(dbPath)
		},
		FFmpeg:  noopFFmpeg{},
		Encoder: noopEncoder{},
	}
	return app, &out, &errOut
}

func resetFlags() {
	flagModel = defaultModel
	flagAPIKey = ""
	flagLogLevel = "warn"
}

func TestGenerateCommand(t *testing.T) {
	resetFlags()
	client := &stubClient{}
	app, out, _ := testApp(t, client, nil)

	root := newRootCmd(app)
	root.SetArgs([]string{"generate", "a sunset over water",
		"-m", "gemini-2.5-flash-image", "--api-key", "test-key"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if client.gotReq == nil || client.gotReq.Prompt != "a sunset over water" {
		t.Errorf("request = %+v", client.gotReq)
	}
	if !strings.Contains(out.String(), "Project: ") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestGenerateCommand_UnknownModel(t *testing.T) {
	resetFlags()
	app, _, _ := testApp(t, &stubClient{}, nil)

	root := newRootCmd(app)
	root.SetArgs([]string{"generate", "x", "-m", "bogus", "--api-key", "k"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown model") {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestGenerateCommand_RequiresAPIKey(t *testing.T) {
	resetFlags()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("TUSSIEVIDEO_CONFIG_DIR", t.TempDir())

	app, _, _ := testApp(t, &stubClient{}, nil)
	root := newRootCmd(app)
	root.SetArgs([]string{"generate", "x"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "API key required") {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestGenerateCommand_AppendsToExistingProject(t *testing.T) {
	resetFlags()
	client := &stubClient{}
	app, _, _ := testApp(t, client, nil)

	st, err := app.NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	project := models.NewProject("existing", "proj-1", time.Now().UTC())
	if err := st.Save(context.Background(), project); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	st.Close()

	root := newRootCmd(app)
	root.SetArgs([]string{"generate", "next shot", "-p", "proj-1",
		"-m", "gemini-2.5-flash-image", "--api-key", "k"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	st, _ = app.NewStore()
	defer st.Close()
	got, err := st.Get(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.Clips) != 1 {
		t.Errorf("clips = %d, want 1", len(got.Clips))
	}
}

func TestProjectsCommand(t *testing.T) {
	resetFlags()
	app, out, _ := testApp(t, &stubClient{}, nil)

	st, err := app.NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := st.Save(context.Background(),
		models.NewProject("my board", "p1", time.Now().UTC())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	st.Close()

	root := newRootCmd(app)
	root.SetArgs([]string{"projects"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "my board") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestExportCommand(t *testing.T) {
	resetFlags()
	app, out, _ := testApp(t, &stubClient{}, nil)
	outDir := t.TempDir()

	st, err := app.NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	project := models.NewProject("board", "p1", time.Now().UTC())
	project.Clips = []*models.Clip{
		{ID: "c1", ProjectID: "p1", MediaType: models.MediaImage, Payload: []byte("png")},
	}
	if err := st.Save(context.Background(), project); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	st.Close()

	root := newRootCmd(app)
	root.SetArgs([]string{"export", "p1", "-o", outDir})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "Exported: ") {
		t.Errorf("output:\n%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(outDir, "board-movie.mp4")); err != nil {
		t.Errorf("movie not written: %v", err)
	}
}

func TestKeysSetAndShow(t *testing.T) {
	resetFlags()
	t.Setenv("TUSSIEVIDEO_CONFIG_DIR", t.TempDir())

	app, out, _ := testApp(t, &stubClient{}, strings.NewReader("AIza-secret-key-123\n"))
	root := newRootCmd(app)
	root.SetArgs([]string{"keys", "set"})

	if err := root.Execute(); err != nil {
		t.Fatalf("keys set error = %v", err)
	}
	if strings.Contains(out.String(), "AIza-secret-key-123") {
		t.Error("full key echoed in output")
	}
	if !strings.Contains(out.String(), "Stored key for gemini") {
		t.Errorf("output:\n%s", out.String())
	}

	out.Reset()
	root = newRootCmd(app)
	root.SetArgs([]string{"keys", "show"})
	if err := root.Execute(); err != nil {
		t.Fatalf("keys show error = %v", err)
	}
	if !strings.Contains(out.String(), "gemini: AIza") {
		t.Errorf("output:\n%s", out.String())
	}
}

func TestKeysDelete_Missing(t *testing.T) {
	resetFlags()
	t.Setenv("TUSSIEVIDEO_CONFIG_DIR", t.TempDir())

	app, _, _ := testApp(t, &stubClient{}, nil)
	root := newRootCmd(app)
	root.SetArgs([]string{"keys", "delete"})

	if err := root.Execute(); err == nil {
		t.Error("deleting a missing key should error")
	}
}

func TestStudio_QuitImmediately(t *testing.T) {
	resetFlags()
	app, out, _ := testApp(t, &stubClient{}, strings.NewReader("quit\n"))

	root := newRootCmd(app)
	root.SetArgs([]string{"--api-key", "k"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "tussievideo studio") {
		t.Errorf("output:\n%s", out.String())
	}
}
