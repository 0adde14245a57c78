package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
)

// DefaultFileName is the Next.js local environment file.
const DefaultFileName = ".env.local"

// Entry is one KEY=value line.
type Entry struct {
	Key   string
	Value string
	// Secret entries are never shown, not even partially.
	Secret bool
}

// Masked returns the value as it may be displayed.
func (e Entry) Masked() string {
	if e.Secret {
		return strings.Repeat("*", utf8.RuneCountInString(e.Value))
	}
	return MaskValue(e.Value)
}

// Serialize joins entries as KEY=value lines in input order. Values are
// written verbatim: no quoting, no escaping.
func Serialize(entries []Entry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Key+"="+e.Value)
	}
	return strings.Join(lines, "\n")
}

// Write merges entries into DefaultFileName inside targetDir.
func Write(entries []Entry, targetDir string) (string, error) {
	path := filepath.Join(targetDir, DefaultFileName)
	return path, WriteFile(path, entries)
}

// WriteFile creates path with the serialized entries, or appends a newline
// and the block when the file already exists. Existing content is never
// parsed, so running twice appends the keys twice.
func WriteFile(path string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	block := Serialize(entries)

	_, err := os.Stat(path)
	switch {
	case err == nil:
		file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer file.Close()
		if _, err := file.WriteString("\n" + block); err != nil {
			return fmt.Errorf("appending to %s: %w", path, err)
		}
		return nil
	case errors.Is(err, fs.ErrNotExist):
		if err := os.WriteFile(path, []byte(block), 0o600); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		return nil
	default:
		return fmt.Errorf("checking %s: %w", path, err)
	}
}

// ExistingKeys returns the keys already defined in an env file.
// A missing file yields an empty set.
func ExistingKeys(path string) (map[string]bool, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]bool{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	keys := make(map[string]bool, len(vars))
	for k := range vars {
		keys[k] = true
	}
	return keys, nil
}

// DuplicateKeys lists, in entry order, the keys that path already defines.
// It is informational only: WriteFile appends them regardless.
func DuplicateKeys(path string, entries []Entry) ([]string, error) {
	existing, err := ExistingKeys(path)
	if err != nil {
		return nil, err
	}
	var dups []string
	for _, e := range entries {
		if existing[e.Key] {
			dups = append(dups, e.Key)
		}
	}
	return dups, nil
}

// MaskValue masks sensitive values for display
func MaskValue(value string) string {
	// Don't mask URLs - they're usually not secret
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		return value
	}

	// Don't mask short values or common non-secrets
	runes := []rune(value)
	if len(runes) <= 10 {
		return value
	}

	// Mask the middle of longer values
	return string(runes[:4]) + strings.Repeat("*", len(runes)-8) + string(runes[len(runes)-4:])
}
