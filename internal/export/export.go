// ABOUTME: Writes exported WAV files to disk
// ABOUTME: Sanitizes caller-supplied file names and appends the .wav extension
package export

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/harperreed/audition/pkg/audio/encode"
)

// DefaultName is used when the caller supplies no usable name
const DefaultName = "audition"

// FileStore saves exports under Dir
type FileStore struct {
	Dir string
}

// NewFileStore creates a store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

// Save writes data as <Dir>/<filename>.wav and returns the path
func (s *FileStore) Save(data []byte, filename string) (string, error) {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(s.Dir, Filename(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}

	log.Printf("Exported %d bytes to %s", len(data), path)
	return path, nil
}

// Filename makes name safe to use as a single file name ending in .wav
func Filename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(name))

	name = strings.Trim(name, ". ")
	if name == "" || strings.EqualFold(name, "wav") {
		name = DefaultName
	}

	if !strings.HasSuffix(strings.ToLower(name), encode.WAVExtension) {
		name += encode.WAVExtension
	}
	return name
}
