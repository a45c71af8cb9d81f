package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultBucket is the GridFS bucket holding checklist photos.
const DefaultBucket = "checklist_images"

// GridFSStore implements BlobStore on a MongoDB GridFS bucket. Re-uploading a
// path adds a revision; Open always reads the newest one.
//
// gridfs.Bucket keeps its read and write deadlines in unguarded fields, so
// every call works on its own bucket handle.
type GridFSStore struct {
	database *mongo.Database
	name     string
	timeout  time.Duration
}

// NewGridFSStore opens (lazily creates) the named bucket in database.
func NewGridFSStore(database *mongo.Database, bucketName string) (*GridFSStore, error) {
	if bucketName == "" {
		bucketName = DefaultBucket
	}
	s := &GridFSStore{database: database, name: bucketName, timeout: 30 * time.Second}
	if _, err := s.bucket(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *GridFSStore) bucket() (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(s.database, options.GridFSBucket().SetName(s.name))
	if err != nil {
		return nil, fmt.Errorf("open gridfs bucket %s: %w", s.name, err)
	}
	return bucket, nil
}

func (s *GridFSStore) deadline(ctx context.Context) time.Time {
	if d, ok := ctx.Deadline(); ok {
		return d
	}
	return time.Now().Add(s.timeout)
}

// Put uploads data under path.
func (s *GridFSStore) Put(ctx context.Context, path, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	bucket, err := s.bucket()
	if err != nil {
		return err
	}
	if err := bucket.SetWriteDeadline(s.deadline(ctx)); err != nil {
		return err
	}
	opts := options.GridFSUpload().SetMetadata(bson.D{{Key: "content_type", Value: contentType}})
	if _, err := bucket.UploadFromStream(path, bytes.NewReader(data), opts); err != nil {
		return fmt.Errorf("gridfs upload %s: %w", path, err)
	}
	return nil
}

// Open streams the newest revision stored under path.
func (s *GridFSStore) Open(ctx context.Context, path string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	bucket, err := s.bucket()
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	if err := bucket.SetReadDeadline(s.deadline(ctx)); err != nil {
		return nil, ObjectInfo{}, err
	}
	stream, err := bucket.OpenDownloadStreamByName(path)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("gridfs open %s: %w", path, err)
	}

	file := stream.GetFile()
	info := ObjectInfo{Path: path, Size: file.Length, UploadedAt: file.UploadDate}
	if file.Metadata != nil {
		if ct, ok := file.Metadata.Lookup("content_type").StringValueOK(); ok {
			info.ContentType = ct
		}
	}
	return stream, info, nil
}
