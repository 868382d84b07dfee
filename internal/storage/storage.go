// Package storage is the object-storage layer backing uploaded media.
// Post images and attachments are stored under opaque keys; the HTTP
// layer only ever sees keys minted here.
package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

const keyPrefix = "media/"

// ErrInvalidKey is returned for keys that were not minted by NewKey or
// that try to escape the media prefix.
var ErrInvalidKey = errors.New("invalid media key")

// Backend defines the operations a concrete object store must provide.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
	Bucket() string
}

// MediaStore wraps a Backend with key minting and validation.
type MediaStore struct {
	backend Backend
}

func NewMediaStore(backend Backend) *MediaStore {
	return &MediaStore{backend: backend}
}

// NewKey mints a fresh object key for an upload, keeping the original
// file extension so content types survive the round trip.
func NewKey(filename string) string {
	return keyPrefix + uuid.NewString() + strings.ToLower(path.Ext(filename))
}

// ParseKey validates a client-supplied key suffix and returns the full
// object key.
func ParseKey(name string) (string, error) {
	if name == "" || strings.Contains(name, "..") || strings.HasPrefix(name, "/") {
		return "", ErrInvalidKey
	}
	return keyPrefix + name, nil
}

// PublicName strips the storage prefix off a key for use in URLs.
func PublicName(key string) string {
	return strings.TrimPrefix(key, keyPrefix)
}

// ContentTypeFor guesses a content type from the key's extension.
func ContentTypeFor(key string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(key))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// EnsureBucket ensures the configured bucket exists.
func (s *MediaStore) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Save uploads an object under the given key.
func (s *MediaStore) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = ContentTypeFor(key)
	}
	return s.backend.Save(ctx, key, r, size, contentType)
}

// Open streams an object back from the bucket.
func (s *MediaStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Open(ctx, key)
}

// Remove deletes an object from the bucket.
func (s *MediaStore) Remove(ctx context.Context, key string) error {
	return s.backend.Remove(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *MediaStore) Bucket() string {
	return s.backend.Bucket()
}
