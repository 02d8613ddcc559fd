// Package uploads stores avatar and logo images on disk and hands out the
// public reference strings the store keeps. The HTTP layer saves the actual
// bytes; the store only ever sees the reference.
package uploads

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrBadExtension = errors.New("unsupported image extension")

var allowedExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
	".svg":  {},
}

type Storage struct {
	dir          string
	publicPrefix string
}

// New prepares the uploads directory. publicPrefix is the URL path the
// directory is served under, e.g. "/uploads".
func New(dir, publicPrefix string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Storage{dir: dir, publicPrefix: strings.TrimRight(publicPrefix, "/")}, nil
}

// Dir returns the on-disk directory, for static file serving.
func (s *Storage) Dir() string {
	return s.dir
}

// Place picks a unique filename for an incoming image and returns both the
// disk path to save it to and the public reference to store. kind prefixes
// the filename ("avatar", "logo") so the directory stays legible.
func (s *Storage) Place(kind, originalName string) (diskPath, publicRef string, err error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", "", ErrBadExtension
	}
	name := kind + "-" + uuid.NewString() + ext
	return filepath.Join(s.dir, name), s.publicPrefix + "/" + name, nil
}
