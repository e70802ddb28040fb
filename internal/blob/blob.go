// Package blob persists uploaded recording payloads and reports where
// they can be fetched from.
package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/grvbrk/clipshare/internal/config"
)

// BlobStore writes a payload under name and returns its public location.
type BlobStore interface {
	Put(ctx context.Context, name string, r io.Reader, contentType string) (string, error)
}

// ObjectName is the storage name for a recording id.
func ObjectName(id string) string {
	return id + ".webm"
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid object name %q", name)
	}
	return nil
}

// NewBlobStore builds the backend named by cfg.Backend. The returned close
// function releases any client the backend holds.
func NewBlobStore(ctx context.Context, cfg config.BlobConfig, logger logrus.FieldLogger) (BlobStore, func() error, error) {
	switch cfg.Backend {
	case config.BlobLocal:
		s, err := NewLocalStore(cfg.UploadDir, cfg.UploadURLPrefix)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil

	case config.BlobGCS:
		s, err := NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSPublicBaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported blob backend: %s", cfg.Backend)
	}
}
