// Package attachments stores message attachment binaries on the local
// filesystem and classifies them by sniffed content type.
package attachments

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"greenline/internal/models"

	"github.com/google/uuid"
)

// MaxAttachmentSize is the largest accepted attachment in bytes.
const MaxAttachmentSize = 10 << 20 // 10 MiB

// Store persists attachments under a single directory. Filenames are random
// UUIDs so uploads can never collide or traverse outside the directory; the
// original filename survives only in the stored extension.
type Store struct {
	dir string
}

// NewStore creates the attachment directory if needed and returns a Store.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Saved describes a stored attachment.
type Saved struct {
	Name string
	URL  string
	Type models.AttachmentType
}

// Save writes the content to disk and returns the stored name, its download
// URL path and the sniffed attachment type. The classification uses the file
// content, never the client-supplied name or Content-Type.
func (s *Store) Save(originalName string, content []byte) (*Saved, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("attachment is empty")
	}
	if len(content) > MaxAttachmentSize {
		return nil, fmt.Errorf("attachment exceeds %d bytes", MaxAttachmentSize)
	}

	name := uuid.NewString() + sanitizeExt(originalName)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, fmt.Errorf("write attachment: %w", err)
	}

	return &Saved{
		Name: name,
		URL:  "/api/attachments/" + name,
		Type: Classify(content),
	}, nil
}

// Remove deletes a stored attachment. Removing a name that is no longer on
// disk is not an error.
func (s *Store) Remove(name string) error {
	base := filepath.Base(name)
	if base != name || name == "" || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid attachment name")
	}
	if err := os.Remove(filepath.Join(s.dir, base)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Open resolves a stored attachment name to its filesystem path. Names that
// do not look like stored UUID filenames are rejected.
func (s *Store) Open(name string) (string, error) {
	base := filepath.Base(name)
	if base != name || name == "" || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid attachment name")
	}
	path := filepath.Join(s.dir, base)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// Classify sniffs the content and returns the attachment type tag. Anything
// that is not an image is a generic file.
func Classify(content []byte) models.AttachmentType {
	contentType := http.DetectContentType(content)
	if strings.HasPrefix(contentType, "image/") {
		return models.AttachmentImage
	}
	return models.AttachmentFile
}

// sanitizeExt keeps a short, alphanumeric extension from the original name.
func sanitizeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) == 0 || len(ext) > 8 {
		return ""
	}
	for _, ch := range ext[1:] {
		if (ch < 'a' || ch > 'z') && (ch < '0' || ch > '9') {
			return ""
		}
	}
	return ext
}
