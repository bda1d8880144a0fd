// Package blob uploads binary objects, profile photos in practice, and hands
// back a URL clients can download them from.
package blob

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

// Uploader stores data under path and returns its download URL.
type Uploader interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

const (
	downloadTokensKey = "firebaseStorageDownloadTokens"
	downloadURLFormat = "https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s"
)

// Firebase writes objects to a Firebase Storage bucket. The returned URL is
// the tokenised download URL Firebase clients produce.
type Firebase struct {
	bucket *storage.BucketHandle
	name   string
}

func NewFirebase(bucket *storage.BucketHandle, name string) *Firebase {
	return &Firebase{bucket: bucket, name: name}
}

func (f *Firebase) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	token := uuid.NewString()

	w := f.bucket.Object(path).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{downloadTokensKey: token}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("error closing %s: %w", path, err)
	}
	return DownloadURL(f.name, path, token), nil
}

// DownloadURL builds the Firebase download URL of an object.
func DownloadURL(bucket, path, token string) string {
	return fmt.Sprintf(downloadURLFormat, bucket, url.PathEscape(path), token)
}

// Object is a blob held by Memory.
type Object struct {
	Data        []byte
	ContentType string
}

// Memory keeps uploads in process.
type Memory struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]Object
	err     error
}

func NewMemory(bucket string) *Memory {
	return &Memory{bucket: bucket, objects: make(map[string]Object)}
}

// Fail makes subsequent uploads return err. A nil err clears it.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Memory) Upload(_ context.Context, path string, data []byte, contentType string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.objects[path] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return DownloadURL(m.bucket, path, uuid.NewString()), nil
}

func (m *Memory) Object(path string) (Object, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[path]
	return o, ok
}
