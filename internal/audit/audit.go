// Package audit records what happened to a library: audit events in the
// database and, optionally, the raw payloads that were imported.
package audit

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Archiver keeps a copy of every uploaded import payload.
type Archiver struct {
	Dir string
}

func NewArchiver(dir string) *Archiver {
	return &Archiver{Dir: dir}
}

// SavePayload writes data to a file named with a fresh UUID and the given
// extension and returns the file name.
func (a *Archiver) SavePayload(data []byte, ext string) (string, error) {
	if err := a.ensureDir(); err != nil {
		return "", fmt.Errorf("failed to ensure archive directory: %w", err)
	}

	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "bin"
	}
	filename := fmt.Sprintf("%s.%s", uuid.New().String(), ext)
	path := filepath.Join(a.Dir, filename)

	log.Printf("Archiving import payload: %s", path)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}

	return filename, nil
}

// ensureDir creates the archive directory if it doesn't exist
func (a *Archiver) ensureDir() error {
	if _, err := os.Stat(a.Dir); os.IsNotExist(err) {
		if err := os.MkdirAll(a.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create archive directory: %w", err)
		}
	}
	return nil
}
