// Package playback serves stored projects over HTTP so clips can be
// previewed in a browser or media player. Clip payloads are served with
// byte-range support; video elements seek by issuing range requests.
package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tussienorway/tussievideo/internal/store"
	"github.com/tussienorway/tussievideo/pkg/models"
)

// nominalClipSeconds matches the default clip length of the video models.
const nominalClipSeconds = 7

// Library is the read side of the project store.
type Library interface {
	Get(ctx context.Context, id string) (*models.Project, error)
	List(ctx context.Context) ([]*models.Project, error)
}

type Server struct {
	library Library
	logger  *slog.Logger
	router  chi.Router
}

func NewServer(library Library, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{library: library, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/projects", s.handleListProjects)
	r.Get("/projects/{projectID}", s.handleGetProject)
	r.Get("/projects/{projectID}/clips/{clipID}", s.handleClipPayload)
	r.Get("/projects/{projectID}/clips/{clipID}/thumbnail", s.handleClipThumbnail)
	s.router = r

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type projectSummary struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	CreatedAt        time.Time `json:"createdAt"`
	ClipCount        int       `json:"clipCount"`
	EstimatedSeconds float64   `json:"estimatedSeconds"`
}

type clipSummary struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Prompt    string    `json:"prompt"`
	MediaType string    `json:"mediaType"`
	SizeBytes int       `json:"sizeBytes"`
	URL       string    `json:"url"`
}

type projectDetail struct {
	projectSummary
	Clips []clipSummary `json:"clips"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.library.List(r.Context())
	if err != nil {
		s.logger.Error("listing projects failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	summaries := make([]projectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, summarize(p))
	}
	writeJSON(w, summaries)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, ok := s.loadProject(w, r)
	if !ok {
		return
	}

	detail := projectDetail{projectSummary: summarize(project)}
	for _, c := range project.Clips {
		detail.Clips = append(detail.Clips, clipSummary{
			ID:        c.ID,
			Timestamp: c.Timestamp,
			Prompt:    c.Prompt,
			MediaType: string(c.MediaType),
			SizeBytes: len(c.Payload),
			URL:       fmt.Sprintf("/projects/%s/clips/%s", project.ID, c.ID),
		})
	}
	writeJSON(w, detail)
}

func (s *Server) handleClipPayload(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.loadClip(w, r)
	if !ok {
		return
	}
	s.servePayload(w, r, clip.Payload, clip.MediaType.MIME())
}

func (s *Server) handleClipThumbnail(w http.ResponseWriter, r *http.Request) {
	clip, ok := s.loadClip(w, r)
	if !ok {
		return
	}
	if len(clip.Thumbnail) == 0 {
		http.Error(w, "clip has no thumbnail", http.StatusNotFound)
		return
	}
	s.servePayload(w, r, clip.Thumbnail, "image/png")
}

func (s *Server) loadProject(w http.ResponseWriter, r *http.Request) (*models.Project, bool) {
	project, err := s.library.Get(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "project not found", http.StatusNotFound)
			return nil, false
		}
		s.logger.Error("loading project failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}
	return project, true
}

func (s *Server) loadClip(w http.ResponseWriter, r *http.Request) (*models.Clip, bool) {
	project, ok := s.loadProject(w, r)
	if !ok {
		return nil, false
	}

	clipID := chi.URLParam(r, "clipID")
	for _, c := range project.Clips {
		if c.ID == clipID {
			return c, true
		}
	}
	http.Error(w, "clip not found", http.StatusNotFound)
	return nil, false
}

func (s *Server) servePayload(w http.ResponseWriter, r *http.Request, payload []byte, contentType string) {
	size := int64(len(payload))

	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	rng, err := parseRange(r.Header.Get("Range"), size)
	if errors.Is(err, ErrUnsatisfiable) {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}
	// An unparseable header falls back to the full payload.
	if rng == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		w.Write(payload)
		return
	}

	w.Header().Set("Content-Length", fmt.Sprintf("%d", rng.length()))
	w.Header().Set("Content-Range", rng.contentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	w.Write(payload[rng.start : rng.end+1])
}

func summarize(p *models.Project) projectSummary {
	return projectSummary{
		ID:               p.ID,
		Name:             p.Name,
		CreatedAt:        p.CreatedAt,
		ClipCount:        len(p.Clips),
		EstimatedSeconds: p.EstimatedRuntime(nominalClipSeconds).Seconds(),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
