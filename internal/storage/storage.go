// Package storage keeps checklist item photos and derives their public URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var (
	ErrTooLarge       = errors.New("file exceeds size limit")
	ErrNotImage       = errors.New("file is not an image")
	ErrEmptyFile      = errors.New("file is empty")
	ErrObjectNotFound = errors.New("object not found")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Path        string
	ContentType string
	Size        int64
	UploadedAt  time.Time
}

// BlobStore persists opaque objects by path.
type BlobStore interface {
	Put(ctx context.Context, path, contentType string, data []byte) error
	Open(ctx context.Context, path string) (io.ReadCloser, ObjectInfo, error)
}

// UploadError reports a rejected or failed image upload.
type UploadError struct {
	Reason string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Err == nil {
		return e.Reason
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}
