// Package security validates user-supplied file names before clip
// payloads or exported movies are written to disk.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	ErrUnsafePath   = errors.New("path escapes the working directory")
	ErrReservedName = errors.New("reserved filename not allowed")
)

// reservedNames are Windows device names; writing to them succeeds but
// the bytes go nowhere.
var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true,
	"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
	"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

func isReserved(name string) bool {
	stem := strings.TrimSuffix(strings.ToLower(name), filepath.Ext(name))
	return reservedNames[stem]
}

// ValidateSavePath rejects save targets that could land outside the
// current directory. Saving a clip always takes a relative path;
// anything else goes through export with an explicit output directory.
func ValidateSavePath(path string) error {
	if !filepath.IsLocal(path) || strings.Contains(path, "..") {
		return ErrUnsafePath
	}

	base := filepath.Base(filepath.Clean(path))
	if isReserved(base) {
		return ErrReservedName
	}
	if strings.HasPrefix(base, "-") {
		return fmt.Errorf("filename cannot start with a hyphen")
	}
	return nil
}

// SanitizeFilename turns a project name into a filename stem for the
// exported movie. Path separators become hyphens, shell and Windows
// metacharacters are dropped, and reserved device names get a suffix.
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '/', '\\', ':':
			b.WriteRune('-')
		case '*', '?', '"', '<', '>', '|', 0:
		default:
			b.WriteRune(r)
		}
	}

	out := strings.TrimLeft(b.String(), ".-")
	out = strings.TrimRight(out, ". ")

	if isReserved(out) {
		out += "_"
	}
	if out == "" {
		out = "untitled"
	}
	return out
}
