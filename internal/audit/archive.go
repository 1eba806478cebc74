package audit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Archiver keeps raw copies of export files that failed to parse, so a user
// report can be reproduced without asking for the file again.
type Archiver struct {
	Dir string
}

func NewArchiver(dir string) *Archiver {
	return &Archiver{Dir: dir}
}

// SaveRaw writes the payload under a UUID-prefixed name and returns the
// stored filename.
func (a *Archiver) SaveRaw(originalName string, data []byte) (string, error) {
	if err := a.ensureDir(); err != nil {
		return "", fmt.Errorf("failed to ensure audit directory: %w", err)
	}

	filename := fmt.Sprintf("%s-%s", uuid.NewString(), filepath.Base(originalName))
	path := filepath.Join(a.Dir, filename)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audit file: %w", err)
	}

	return filename, nil
}

func (a *Archiver) ensureDir() error {
	if _, err := os.Stat(a.Dir); os.IsNotExist(err) {
		if err := os.MkdirAll(a.Dir, 0o755); err != nil {
			return fmt.Errorf("failed to create audit directory: %w", err)
		}
	}
	return nil
}
