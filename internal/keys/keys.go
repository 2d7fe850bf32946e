// Package keys stores API credentials in a per-user config file.
package keys

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const credentialsFile = "keys.json"

// Store persists provider keys as a flat provider-to-key map under the
// user's config directory.
type Store struct {
	configDir string
}

func NewStore() (*Store, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	return &Store{configDir: dir}, nil
}

// configDir resolves the platform config directory. The
// TUSSIEVIDEO_CONFIG_DIR override exists for tests.
func configDir() (string, error) {
	if override := os.Getenv("TUSSIEVIDEO_CONFIG_DIR"); override != "" {
		return override, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot locate config directory: %w", err)
	}
	return filepath.Join(base, "tussievideo"), nil
}

func (s *Store) Path() string {
	return filepath.Join(s.configDir, credentialsFile)
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.Path())
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	keys := map[string]string{}
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", credentialsFile, err)
	}
	return keys, nil
}

func (s *Store) write(keys map[string]string) error {
	if err := os.MkdirAll(s.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return err
	}

	// Owner read/write only; the file holds credentials.
	if err := os.WriteFile(s.Path(), data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", credentialsFile, err)
	}
	return nil
}

func (s *Store) Set(provider, key string) error {
	keys, err := s.load()
	if err != nil {
		return err
	}
	keys[provider] = key
	return s.write(keys)
}

// Get returns the stored key for a provider, or empty when none is set.
func (s *Store) Get(provider string) (string, error) {
	keys, err := s.load()
	if err != nil {
		return "", err
	}
	return keys[provider], nil
}

func (s *Store) Delete(provider string) error {
	keys, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := keys[provider]; !ok {
		return fmt.Errorf("no key found for %s", provider)
	}
	delete(keys, provider)
	return s.write(keys)
}

func (s *Store) List() ([]string, error) {
	keys, err := s.load()
	if err != nil {
		return nil, err
	}
	providers := make([]string, 0, len(keys))
	for provider := range keys {
		providers = append(providers, provider)
	}
	return providers, nil
}

func (s *Store) Exists(provider string) (bool, error) {
	key, err := s.Get(provider)
	return key != "", err
}

// MaskKey returns a display-safe version of the key.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// GetAPIKey resolves a credential in priority order: explicit flag value,
// stored key, then environment variable. The second return value names
// the source for display.
func GetAPIKey(explicitKey, provider, envVar string) (string, string, error) {
	if explicitKey != "" {
		return explicitKey, "command-line flag", nil
	}

	if store, err := NewStore(); err == nil {
		if stored, err := store.Get(provider); err == nil && stored != "" {
			return stored, "stored key (" + credentialsFile + ")", nil
		}
	}

	if envKey := os.Getenv(envVar); envKey != "" {
		return envKey, fmt.Sprintf("environment variable (%s)", envVar), nil
	}

	return "", "", fmt.Errorf("API key required: run 'tussievideo keys set %s' or set %s", provider, envVar)
}
