// Package store persists projects and their clips in a local SQLite
// database. A project is saved as a whole record: one transaction replaces
// the project row and every clip row, so a reader never observes a
// half-updated storyboard.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/tussienorway/tussievideo/pkg/models"
)

var ErrNotFound = errors.New("project not found")

const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS clips (
    id TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    timestamp DATETIME NOT NULL,
    prompt TEXT NOT NULL,
    media_type TEXT NOT NULL,
    payload BLOB NOT NULL,
    thumbnail BLOB,
    continuation_handle TEXT,
    FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_clips_project_seq ON clips(project_id, seq);
CREATE INDEX IF NOT EXISTS idx_projects_created_at ON projects(created_at);
`

type Store struct {
	db       *sql.DB
	previews *Previews
}

func NewStore() (*Store, error) {
	dbPath, err := defaultDBPath()
	if err != nil {
		return nil, err
	}
	return NewStoreWithPath(dbPath)
}

func NewStoreWithPath(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	previews, err := NewPreviews()
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, previews: previews}, nil
}

func defaultDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".tussievideo", "projects.db"), nil
}

func (s *Store) Close() error {
	s.previews.Close()
	return s.db.Close()
}

// Save writes the project and all of its clips as one transaction,
// replacing whatever was stored for the same project ID. Preview
// references are session-local scratch paths and are never persisted.
func (s *Store) Save(ctx context.Context, project *models.Project) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, created_at = excluded.created_at`,
		project.ID, project.Name, project.CreatedAt); err != nil {
		return fmt.Errorf("failed to upsert project: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM clips WHERE project_id = ?`, project.ID); err != nil {
		return fmt.Errorf("failed to clear clips: %w", err)
	}

	for seq, clip := range project.Clips {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO clips (id, project_id, seq, timestamp, prompt, media_type, payload, thumbnail, continuation_handle)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			clip.ID, project.ID, seq, clip.Timestamp, clip.Prompt, string(clip.MediaType),
			clip.Payload, clip.Thumbnail, clip.ContinuationHandle); err != nil {
			return fmt.Errorf("failed to insert clip %s: %w", clip.ID, err)
		}
	}

	return tx.Commit()
}

// Get loads a single project with its clips in storyboard order.
func (s *Store) Get(ctx context.Context, id string) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM projects WHERE id = ?`, id)

	project := &models.Project{}
	if err := row.Scan(&project.ID, &project.Name, &project.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	if err := s.loadClips(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// List returns every stored project, newest first, with a fresh preview
// reference minted for each clip. References handed out by the previous
// List call are released: they point at scratch files, not stored state.
func (s *Store) List(ctx context.Context) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project := &models.Project{}
		if err := rows.Scan(&project.ID, &project.Name, &project.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}

	s.previews.ReleaseAll()

	for _, project := range projects {
		if err := s.loadClips(ctx, project); err != nil {
			return nil, err
		}
		for _, clip := range project.Clips {
			ref, err := s.previews.Mint(clip)
			if err != nil {
				return nil, err
			}
			clip.PreviewRef = ref
		}
	}

	return projects, nil
}

// Delete removes a project and its clips. Deleting an unknown ID is a
// no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

func (s *Store) loadClips(ctx context.Context, project *models.Project) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, prompt, media_type, payload, thumbnail, continuation_handle
		 FROM clips WHERE project_id = ? ORDER BY seq ASC`, project.ID)
	if err != nil {
		return fmt.Errorf("failed to load clips: %w", err)
	}
	defer rows.Close()

	project.Clips = nil
	for rows.Next() {
		clip := &models.Clip{ProjectID: project.ID}
		var mediaType string
		var thumbnail []byte
		var handle sql.NullString
		if err := rows.Scan(&clip.ID, &clip.Timestamp, &clip.Prompt, &mediaType,
			&clip.Payload, &thumbnail, &handle); err != nil {
			return fmt.Errorf("failed to scan clip: %w", err)
		}
		clip.MediaType = models.MediaType(mediaType)
		clip.Thumbnail = thumbnail
		clip.ContinuationHandle = handle.String
		project.Clips = append(project.Clips, clip)
	}
	return rows.Err()
}
