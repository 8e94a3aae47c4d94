// Package store is where rendered figures end up. Figures are keyed by
// their output path; the only thing ever asked of existing figures is
// whether they are there, so reruns can skip them.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// A FigureStore is written to once per figure, and never overwrites.
type FigureStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Write(ctx context.Context, key string, data []byte) error
}

// FSStore writes figures to the local filesystem. Keys are file paths,
// relative to Root if they are not absolute.
type FSStore struct {
	Root string
}

func (s FSStore) path(key string) string {
	if filepath.IsAbs(key) || s.Root == "" {
		return key
	}
	return filepath.Join(s.Root, key)
}

func (s FSStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	} else if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat '%s': %w", s.path(key), err)
}

// Write creates the figures directory if needed, and writes via a temp
// file so a crash never leaves a truncated figure that a rerun would skip.
func (s FSStore) Write(ctx context.Context, key string, data []byte) error {
	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("mkdir '%s': %w", filepath.Dir(p), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*")
	if err != nil {
		return fmt.Errorf("create temp for '%s': %w", p, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write '%s': %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod '%s': %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close '%s': %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("rename to '%s': %w", p, err)
	}
	return nil
}

// objectKey turns a figure path into an object key under `prefix`.
func objectKey(prefix, key string) string {
	key = strings.TrimPrefix(filepath.ToSlash(key), "/")
	if prefix == "" {
		return key
	}
	return strings.TrimSuffix(prefix, "/") + "/" + key
}
