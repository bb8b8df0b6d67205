package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileStorage writes one file per snapshot key under dir. Files older than
// ttl are treated as absent.
type FileStorage struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

func NewFileStorage(dir string, ttl time.Duration) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileStorage{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (f *FileStorage) path(key string) string {
	return filepath.Join(f.dir, base64.RawURLEncoding.EncodeToString([]byte(key))+".json")
}

func (f *FileStorage) Load(_ context.Context, key string) (string, bool, error) {
	p := f.path(key)
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("stat snapshot: %w", err)
	}
	if f.ttl > 0 && f.now().Sub(info.ModTime()) > f.ttl {
		_ = os.Remove(p)
		return "", false, nil
	}
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read snapshot: %w", err)
	}
	return string(raw), true, nil
}

func (f *FileStorage) Save(_ context.Context, key, payload string) error {
	tmp, err := os.CreateTemp(f.dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

func (f *FileStorage) Delete(_ context.Context, key string) error {
	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
