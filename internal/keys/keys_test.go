package keys

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStore_SetGetDelete(t *testing.T) {
	store := &Store{configDir: t.TempDir()}

	if err := store.Set("gemini", "AIza-test-key-12345"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// Credentials file must be owner-only.
	info, err := os.Stat(filepath.Join(store.configDir, "keys.json"))
	if err != nil {
		t.Fatalf("keys.json not created: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("keys.json permissions = %v, want 0600", info.Mode().Perm())
	}

	key, err := store.Get("gemini")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if key != "AIza-test-key-12345" {
		t.Errorf("Get() = %v", key)
	}

	if key, _ := store.Get("unknown"); key != "" {
		t.Errorf("Get(unknown) = %q, want empty", key)
	}

	exists, err := store.Exists("gemini")
	if err != nil || !exists {
		t.Errorf("Exists(gemini) = %v, %v", exists, err)
	}

	providers, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(providers) != 1 || providers[0] != "gemini" {
		t.Errorf("List() = %v", providers)
	}

	if err := store.Delete("gemini"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if key, _ := store.Get("gemini"); key != "" {
		t.Errorf("Get() after Delete() = %q", key)
	}
	if err := store.Delete("gemini"); err == nil {
		t.Error("Delete(missing) should error")
	}
}

func TestStore_EmptyDir(t *testing.T) {
	store := &Store{configDir: t.TempDir()}

	if key, err := store.Get("gemini"); err != nil || key != "" {
		t.Errorf("Get() = %q, %v", key, err)
	}
	if providers, err := store.List(); err != nil || len(providers) != 0 {
		t.Errorf("List() = %v, %v", providers, err)
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"AIza1234567890abcd", "AIza**********abcd"},
		{"short", "*****"},
		{"12345678", "********"},
		{"123456789", "1234*6789"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MaskKey(tt.key); got != tt.want {
			t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestGetAPIKey_Priority(t *testing.T) {
	configDir := t.TempDir()
	t.Setenv("TUSSIEVIDEO_CONFIG_DIR", configDir)
	t.Setenv("GEMINI_API_KEY", "env-key")

	store := &Store{configDir: configDir}
	if err := store.Set("gemini", "stored-key"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	key, source, err := GetAPIKey("flag-key", "gemini", "GEMINI_API_KEY")
	if err != nil || key != "flag-key" {
		t.Errorf("explicit: key = %q, source = %q, err = %v", key, source, err)
	}

	key, _, err = GetAPIKey("", "gemini", "GEMINI_API_KEY")
	if err != nil || key != "stored-key" {
		t.Errorf("stored: key = %q, err = %v", key, err)
	}

	if err := store.Delete("gemini"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	key, source, err = GetAPIKey("", "gemini", "GEMINI_API_KEY")
	if err != nil || key != "env-key" {
		t.Errorf("env: key = %q, source = %q, err = %v", key, source, err)
	}

	t.Setenv("GEMINI_API_KEY", "")
	if _, _, err := GetAPIKey("", "gemini", "GEMINI_API_KEY"); err == nil {
		t.Error("GetAPIKey() with no sources should error")
	}
}
