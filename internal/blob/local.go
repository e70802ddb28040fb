package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes payloads into a directory that the HTTP server also
// serves under urlPrefix.
type LocalStore struct {
	dir       string
	urlPrefix string
}

func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) URLPrefix() string {
	return s.urlPrefix
}

func (s *LocalStore) Put(ctx context.Context, name string, r io.Reader, contentType string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.part")
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("failed to store upload file: %w", err)
	}

	return path.Join(s.urlPrefix, name), nil
}
