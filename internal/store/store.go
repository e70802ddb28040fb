package store

import (
	"context"
	"fmt"

	"github.com/grvbrk/clipshare/internal/models"
)

// VideoStore persists recording metadata and its view/completion counters.
//
// GetMetadata returns (nil, nil) for an unknown id. The counter reads return
// 0 for an unknown id. Increments create the counter on first use and return
// the new total.
type VideoStore interface {
	SaveMetadata(ctx context.Context, id, url string) (*models.Video, error)
	GetMetadata(ctx context.Context, id string) (*models.Video, error)
	IncrementViews(ctx context.Context, id string) (int64, error)
	IncrementCompletions(ctx context.Context, id string) (int64, error)
	GetViews(ctx context.Context, id string) (int64, error)
	GetCompletions(ctx context.Context, id string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// StorageError wraps a backend read or write failure.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s store: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Backend: backend, Op: op, Err: err}
}

type counter string

const (
	counterViews       counter = "views"
	counterCompletions counter = "completions"
)
