package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
)

// GCSStore streams payloads into a Cloud Storage bucket whose objects are
// publicly readable.
type GCSStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
	logger        logrus.FieldLogger
}

func NewGCSStore(ctx context.Context, bucket, publicBaseURL string, logger logrus.FieldLogger) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("init gcs client: %w", err)
	}
	return NewGCSStoreWithClient(client, bucket, publicBaseURL, logger), nil
}

func NewGCSStoreWithClient(client *storage.Client, bucket, publicBaseURL string, logger logrus.FieldLogger) *GCSStore {
	return &GCSStore{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        logger,
	}
}

// PublicURL is the address an uploaded object is served from.
func (s *GCSStore) PublicURL(name string) string {
	return s.publicBaseURL + "/" + s.bucket + "/" + name
}

func (s *GCSStore) Put(ctx context.Context, name string, r io.Reader, contentType string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}

	// cancelling the writer's context abandons the upload; Close would
	// commit whatever was written so far
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		cancel()
		s.logger.WithError(err).WithFields(logrus.Fields{"gcs.bucket": s.bucket, "gcs.object": name}).Error("gcs upload failed")
		return "", fmt.Errorf("gcs write: %w", err)
	}
	if err := w.Close(); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{"gcs.bucket": s.bucket, "gcs.object": name}).Error("gcs upload failed")
		return "", fmt.Errorf("gcs close: %w", err)
	}

	return s.PublicURL(name), nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
