package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/rs/xid"
)

const (
	// DefaultMaxImageBytes is the largest photo accepted per item.
	DefaultMaxImageBytes = 5 * 1024 * 1024

	imagePrefix = "checklist-images/"
)

// ImageService validates item photos, stores them and maps paths to public URLs.
type ImageService struct {
	store    BlobStore
	baseURL  string
	maxBytes int64
	newID    func() string
}

// NewImageService creates a service serving URLs under baseURL. maxBytes <= 0
// means DefaultMaxImageBytes.
func NewImageService(store BlobStore, baseURL string, maxBytes int64) *ImageService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &ImageService{
		store:    store,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxBytes: maxBytes,
		newID:    func() string { return xid.New().String() },
	}
}

// MaxBytes is the configured size ceiling.
func (s *ImageService) MaxBytes() int64 {
	return s.maxBytes
}

// Validate checks the declared type and size of an upload.
func (s *ImageService) Validate(contentType string, size int64) error {
	if size == 0 {
		return &UploadError{Reason: "empty file", Err: ErrEmptyFile}
	}
	if size > s.maxBytes {
		return &UploadError{
			Reason: fmt.Sprintf("image is %d bytes, limit is %d", size, s.maxBytes),
			Err:    ErrTooLarge,
		}
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return &UploadError{Reason: fmt.Sprintf("content type %q", contentType), Err: ErrNotImage}
	}
	return nil
}

// Upload stores a photo for itemID and returns its public URL. An empty
// contentType is sniffed from the data.
func (s *ImageService) Upload(ctx context.Context, itemID, filename, contentType string, data []byte) (string, error) {
	if contentType == "" && len(data) > 0 {
		contentType = http.DetectContentType(data)
	}
	if err := s.Validate(contentType, int64(len(data))); err != nil {
		return "", err
	}

	path := s.objectPath(itemID, filename, contentType)
	if err := s.store.Put(ctx, path, contentType, data); err != nil {
		return "", &UploadError{Reason: "storage upload failed", Err: err}
	}
	return s.PublicURL(path), nil
}

// PublicURL derives the URL a stored path is served from.
func (s *ImageService) PublicURL(path string) string {
	return s.baseURL + "/images/" + strings.TrimLeft(path, "/")
}

// Open reads a stored image by path.
func (s *ImageService) Open(ctx context.Context, path string) (io.ReadCloser, ObjectInfo, error) {
	path = strings.TrimLeft(path, "/")
	if !strings.HasPrefix(path, imagePrefix) || strings.Contains(path, "..") {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}
	return s.store.Open(ctx, path)
}

func (s *ImageService) objectPath(itemID, filename, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if ext == "" {
		ext = strings.TrimPrefix(strings.ToLower(contentType), "image/")
		if i := strings.IndexAny(ext, ";+"); i >= 0 {
			ext = ext[:i]
		}
	}
	return fmt.Sprintf("%s%s-%s.%s", imagePrefix, sanitize(itemID), s.newID(), sanitize(ext))
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "item"
	}
	return b.String()
}
