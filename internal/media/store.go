// Package media stores uploaded story images on the local filesystem and
// hands out the URLs they are served under.
package media

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/storycollab/internal/apperror"
)

// allowedTypes maps accepted image MIME types to the file extension used on
// disk. The declared Content-Type of the upload part is checked against this
// set; anything else is rejected.
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store saves uploaded images under a directory and maps them to URLs below
// baseURL. Filenames are generated, never taken from the client, so uploads
// cannot collide or escape the directory.
type Store struct {
	dir     string
	baseURL string
	maxSize int64
}

// NewStore creates the upload directory if needed and returns a Store.
func NewStore(dir, baseURL string, maxSize int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media: creating upload directory %s: %w", dir, err)
	}
	return &Store{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		maxSize: maxSize,
	}, nil
}

// Dir returns the directory uploads are written to, for wiring the static
// file server.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes one uploaded image to disk and returns its public URL.
func (s *Store) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > s.maxSize {
		return "", apperror.ValidationFailed("file",
			fmt.Sprintf("file exceeds the %d byte upload limit", s.maxSize))
	}

	ext, ok := allowedTypes[header.Header.Get("Content-Type")]
	if !ok {
		return "", apperror.ValidationFailed("file", "only image uploads are allowed")
	}

	name := xid.New().String() + ext
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("media: creating file: %w", err)
	}
	defer dst.Close()

	// The request body is also capped by MaxBytesReader in the handler; the
	// extra limit here keeps the store safe for any other caller.
	if _, err := io.Copy(dst, io.LimitReader(file, s.maxSize+1)); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("media: writing file: %w", err)
	}

	return path.Join(s.baseURL, name), nil
}
