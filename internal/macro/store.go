package macro

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extension is appended to macro names given without one.
const Extension = ".tas"

// Store resolves macro names against a directory.
type Store struct {
	Dir string
}

// ErrBadName rejects macro names that would resolve outside the store.
var ErrBadName = errors.New("macro: name must be a relative path inside the macro directory")

// Path turns a user supplied name into a file path under Dir. The name gets
// the .tas extension unless it already has it; absolute names and names
// that climb out of Dir are refused.
func (s Store) Path(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: empty name", ErrBadName)
	}
	if !strings.HasSuffix(name, Extension) {
		name += Extension
	}
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrBadName, name)
	}
	if s.Dir == "" {
		return name, nil
	}
	return filepath.Join(s.Dir, name), nil
}

// WriteFile encodes frames to path atomically via a temp file and rename.
func WriteFile(path string, frames []Frame) error {
	if len(frames) == 0 {
		return ErrEmpty
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create macro dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".macro-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := Encode(tmp, frames); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename macro file: %w", err)
	}
	return nil
}

// ReadFile decodes the macro stored at path.
func ReadFile(path string) ([]Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open macro: %w", err)
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}
