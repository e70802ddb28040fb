package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grvbrk/clipshare/internal/models"
)

const fileBackend = "file"

type fileDocument struct {
	Videos map[string]*models.Video `json:"videos"`
}

// FileVideoStore keeps every record in a single JSON document. Each
// operation reads the whole file and each mutation rewrites it. All of them
// hold mu, so one store instance is the only writer and concurrent
// increments are never lost. A missing or unreadable file is an empty store.
type FileVideoStore struct {
	mu     sync.Mutex
	path   string
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewFileVideoStore(path string, logger logrus.FieldLogger) (*FileVideoStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileVideoStore{path: path, logger: logger, now: time.Now}, nil
}

func (f *FileVideoStore) load() *fileDocument {
	doc := &fileDocument{Videos: map[string]*models.Video{}}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.logger.WithError(err).WithField("path", f.path).Warn("failed to read store file, starting empty")
		}
		return doc
	}

	if err := json.Unmarshal(data, doc); err != nil {
		f.logger.WithError(err).WithField("path", f.path).Warn("store file is corrupt, starting empty")
		return &fileDocument{Videos: map[string]*models.Video{}}
	}
	if doc.Videos == nil {
		doc.Videos = map[string]*models.Video{}
	}

	return doc
}

func (f *FileVideoStore) save(doc *fileDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), f.path)
}

func (f *FileVideoStore) update(op, id string, fn func(doc *fileDocument)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc := f.load()
	fn(doc)

	if err := f.save(doc); err != nil {
		f.logger.WithError(err).WithField("video.id", id).Errorf("failed to %s", op)
		return storageError(fileBackend, op, err)
	}
	return nil
}

func (f *FileVideoStore) SaveMetadata(ctx context.Context, id, url string) (*models.Video, error) {
	var saved models.Video

	err := f.update("save metadata", id, func(doc *fileDocument) {
		video := models.NewVideo(id, url, f.now())
		if existing, ok := doc.Videos[id]; ok {
			video.Views = existing.Views
			video.Completions = existing.Completions
		}
		doc.Videos[id] = video
		saved = *video
	})
	if err != nil {
		return nil, err
	}

	return &saved, nil
}

func (f *FileVideoStore) GetMetadata(ctx context.Context, id string) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	video, ok := f.load().Videos[id]
	// counter-only entries exist for ids that were incremented but never uploaded
	if !ok || video.URL == "" {
		return nil, nil
	}
	return video, nil
}

func (f *FileVideoStore) increment(id string, c counter) (int64, error) {
	var total int64

	err := f.update("increment "+string(c), id, func(doc *fileDocument) {
		video, ok := doc.Videos[id]
		if !ok {
			video = &models.Video{ID: id}
			doc.Videos[id] = video
		}

		switch c {
		case counterViews:
			video.Views++
			total = video.Views
		case counterCompletions:
			video.Completions++
			total = video.Completions
		}
	})
	if err != nil {
		return 0, err
	}

	return total, nil
}

func (f *FileVideoStore) read(id string, c counter) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	video, ok := f.load().Videos[id]
	if !ok {
		return 0
	}
	if c == counterCompletions {
		return video.Completions
	}
	return video.Views
}

func (f *FileVideoStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	return f.increment(id, counterViews)
}

func (f *FileVideoStore) IncrementCompletions(ctx context.Context, id string) (int64, error) {
	return f.increment(id, counterCompletions)
}

func (f *FileVideoStore) GetViews(ctx context.Context, id string) (int64, error) {
	return f.read(id, counterViews), nil
}

func (f *FileVideoStore) GetCompletions(ctx context.Context, id string) (int64, error) {
	return f.read(id, counterCompletions), nil
}

// Ping reports whether the store directory is usable.
func (f *FileVideoStore) Ping(ctx context.Context) error {
	st, err := os.Stat(filepath.Dir(f.path))
	if err != nil {
		return storageError(fileBackend, "ping", err)
	}
	if !st.IsDir() {
		return storageError(fileBackend, "ping", fmt.Errorf("%s is not a directory", filepath.Dir(f.path)))
	}
	return nil
}

func (f *FileVideoStore) Close() error {
	return nil
}
