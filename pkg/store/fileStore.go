package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// FileStore writes one file per key under a directory. Writes go to a
// temporary file that is synced and renamed over the target, so a crash
// leaves either the old or the new value.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".json")
}

func (f *FileStore) Get(ctx context.Context, key string) (value string, found bool, err error) {
	_, span := startSpan(ctx, "file", "get", key)
	defer func(start time.Time) { finishSpan(span, start, err) }(time.Now())

	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

func (f *FileStore) Set(ctx context.Context, key, value string) (err error) {
	_, span := startSpan(ctx, "file", "set", key)
	defer func(start time.Time) { finishSpan(span, start, err) }(time.Now())

	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.WriteString(value); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path(key))
}

func (f *FileStore) Remove(ctx context.Context, key string) (err error) {
	_, span := startSpan(ctx, "file", "remove", key)
	defer func(start time.Time) { finishSpan(span, start, err) }(time.Now())

	err = os.Remove(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	return err
}

func (f *FileStore) Close() error {
	return nil
}
