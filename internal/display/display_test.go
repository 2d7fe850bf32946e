package display

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/tussienorway/tussievideo/pkg/models"
)

func TestRenderer_Projects(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	p := models.NewProject("Coastal Drive", "6c0f2a9e", time.Now().Add(-time.Hour))
	p.Clips = []*models.Clip{
		{MediaType: models.MediaVideo, Payload: make([]byte, 2048)},
		{MediaType: models.MediaImage, Payload: make([]byte, 512)},
	}

	r.Projects([]*models.Project{p})

	output := buf.String()
	for _, want := range []string{"Coastal Drive", "6c0f2a9e", "NAME", "CLIPS"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	// 2 clips at the nominal clip length
	if !strings.Contains(output, "14s") {
		t.Errorf("output missing runtime estimate:\n%s", output)
	}
}

func TestRenderer_Projects_Empty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).Projects(nil)

	if !strings.Contains(buf.String(), "No projects yet") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRenderer_Clips(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	p := models.NewProject("demo", "p1", time.Now())
	p.Clips = []*models.Clip{
		{Prompt: "a long tracking shot through a neon market at night in the rain",
			MediaType: models.MediaVideo, Payload: []byte("v"), ContinuationHandle: "h"},
		{Prompt: "a still", MediaType: models.MediaImage, Payload: []byte("i")},
	}

	r.Clips(p)

	output := buf.String()
	if !strings.Contains(output, "VIDEO") || !strings.Contains(output, "IMAGE") {
		t.Errorf("output missing media types:\n%s", output)
	}
	if !strings.Contains(output, "...") {
		t.Errorf("long prompt not truncated:\n%s", output)
	}
}

func TestRenderer_Clip(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf)

	r.Clip(&models.Clip{
		ID: "c1", MediaType: models.MediaVideo,
		Timestamp:          time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Prompt:             "opening shot",
		Payload:            []byte("data"),
		ContinuationHandle: "h",
		PreviewRef:         "/tmp/preview.mp4",
	})

	output := buf.String()
	for _, want := range []string{"c1", "opening shot", "server-side handle", "/tmp/preview.mp4"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("hello world", 8); got != "hello..." {
		t.Errorf("truncate() = %q", got)
	}
}
