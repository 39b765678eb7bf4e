package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// AttachmentStore reads attachment bytes by the storage path recorded on the
// local document.
type AttachmentStore interface {
	Read(ctx context.Context, storagePath string) ([]byte, error)
}

var ErrAttachmentTooLarge = errors.New("attachment exceeds size limit")

// LocalAttachmentStore serves files below a root directory.
type LocalAttachmentStore struct {
	root     string
	maxBytes int64
}

func NewLocalAttachmentStore(root string, maxBytes int64) *LocalAttachmentStore {
	return &LocalAttachmentStore{root: root, maxBytes: maxBytes}
}

func (s *LocalAttachmentStore) Read(ctx context.Context, storagePath string) ([]byte, error) {
	clean := filepath.Clean("/" + storagePath)
	full := filepath.Join(s.root, clean)
	if !strings.HasPrefix(full, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return nil, fmt.Errorf("attachment path %q escapes storage root", storagePath)
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	defer f.Close()

	return readLimited(f, s.maxBytes)
}

// GCSAttachmentStore reads objects from a Cloud Storage bucket.
type GCSAttachmentStore struct {
	client   *storage.Client
	bucket   string
	maxBytes int64
}

// NewGCSAttachmentStore uses explicit credentials JSON when given, otherwise
// application default credentials.
func NewGCSAttachmentStore(ctx context.Context, bucket, credentialsJSON string, maxBytes int64) (*GCSAttachmentStore, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSAttachmentStore{client: client, bucket: bucket, maxBytes: maxBytes}, nil
}

func (s *GCSAttachmentStore) Read(ctx context.Context, storagePath string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(strings.TrimPrefix(storagePath, "/")).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gcs object: %w", err)
	}
	defer r.Close()

	return readLimited(r, s.maxBytes)
}

func (s *GCSAttachmentStore) Close() error {
	return s.client.Close()
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrAttachmentTooLarge
	}
	return data, nil
}
