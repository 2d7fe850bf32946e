package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/tussienorway/tussievideo/pkg/models"
)

// Previews mints session-scoped scratch files for clip playback. Stored
// records never carry these paths; each listing gets a fresh batch and
// the previous batch is deleted.
type Previews struct {
	dir string

	mu    sync.Mutex
	files []string
}

func NewPreviews() (*Previews, error) {
	dir, err := os.MkdirTemp("", "tussievideo-previews-")
	if err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}
	return &Previews{dir: dir}, nil
}

// Mint writes the clip payload to a scratch file and returns its path.
// Each call produces a distinct path, so a newly minted reference never
// aliases one from an earlier listing.
func (p *Previews) Mint(clip *models.Clip) (string, error) {
	path := filepath.Join(p.dir, uuid.NewString()+clip.MediaType.Ext())
	if err := os.WriteFile(path, clip.Payload, 0644); err != nil {
		return "", fmt.Errorf("failed to write preview for clip %s: %w", clip.ID, err)
	}

	p.mu.Lock()
	p.files = append(p.files, path)
	p.mu.Unlock()

	return path, nil
}

// ReleaseAll deletes every scratch file minted so far. Paths handed out
// earlier become invalid.
func (p *Previews) ReleaseAll() {
	p.mu.Lock()
	files := p.files
	p.files = nil
	p.mu.Unlock()

	for _, f := range files {
		os.Remove(f)
	}
}

func (p *Previews) Close() {
	p.ReleaseAll()
	os.RemoveAll(p.dir)
}
