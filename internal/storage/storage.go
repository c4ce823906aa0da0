// Package storage keeps uploaded images on the local filesystem.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	// Registered image decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/google/uuid"
)

// uploadDir is the top-level directory for user uploads under the media root.
const uploadDir = "uploads"

// MaxImagePixels caps width*height of an accepted image. Headers are checked
// against it before any pixel data is decoded.
const MaxImagePixels = 89_478_485

var (
	// ErrInvalidImage indicates the payload could not be decoded as an image.
	ErrInvalidImage = errors.New("invalid image")
	// ErrInvalidPath indicates a stored path escapes the media root.
	ErrInvalidPath = errors.New("invalid media path")

	extRegex       = regexp.MustCompile(`^\.[A-Za-z0-9]{1,10}$`)
	namespaceRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)
)

// Local stores files under a root directory and builds public URLs for them.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates the root directory if needed.
// baseURL is the public prefix the root is served under, e.g. "/media".
func NewLocal(root, baseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &Local{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Root returns the directory files are stored under.
func (l *Local) Root() string {
	return l.root
}

// ValidateImage reports ErrInvalidImage unless data decodes as a supported
// image no larger than MaxImagePixels.
func ValidateImage(data []byte) error {
	if len(data) == 0 {
		return ErrInvalidImage
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: empty dimensions", ErrInvalidImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, MaxImagePixels)
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return nil
}

// ObjectPath returns a fresh relative path for a file in namespace:
// uploads/<namespace>/<uuid4><ext>. The extension of originalName is kept
// when it is a plain alphanumeric suffix.
func ObjectPath(namespace, originalName string) string {
	ext := filepath.Ext(originalName)
	if !extRegex.MatchString(ext) {
		ext = ""
	}
	return path.Join(uploadDir, namespace, uuid.New().String()+ext)
}

// Save writes data to a new path in namespace and returns that path.
func (l *Local) Save(namespace, originalName string, data []byte) (string, error) {
	if !namespaceRegex.MatchString(namespace) {
		return "", fmt.Errorf("%w: namespace %q", ErrInvalidPath, namespace)
	}

	rel := ObjectPath(namespace, originalName)
	full := filepath.Join(l.root, filepath.FromSlash(rel))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return "", fmt.Errorf("close upload file: %w", err)
	}

	return rel, nil
}

// Delete removes a stored file. Missing files are not an error.
func (l *Local) Delete(rel string) error {
	full, err := l.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// Exists reports whether a stored file is present.
func (l *Local) Exists(rel string) bool {
	full, err := l.resolve(rel)
	if err != nil {
		return false
	}
	_, err = os.Stat(full)
	return err == nil
}

// URL returns the public URL of a stored path.
func (l *Local) URL(rel string) string {
	return l.baseURL + "/" + strings.TrimPrefix(rel, "/")
}

func (l *Local) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if rel == "" || clean == "/" || !strings.HasPrefix(clean, "/"+uploadDir+"/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return filepath.Join(l.root, filepath.FromSlash(clean[1:])), nil
}
