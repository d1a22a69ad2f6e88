// Package filekv keeps one JSON file per key in a directory and follows edits made
// by other processes (or by hand) through fsnotify.
package filekv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"okrdash/internal/store"

	"github.com/fsnotify/fsnotify"
)

const (
	suffix    = ".json"
	tmpPrefix = ".tmp-"
)

type KV struct {
	dir    string
	logger *slog.Logger
}

func Open(dir string, logger *slog.Logger) (*KV, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("directory is required")
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create kv directory %s: %w", dir, err)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &KV{dir: filepath.Clean(dir), logger: logger}, nil
}

func (k *KV) path(key string) string {
	return filepath.Join(k.dir, url.PathEscape(key)+suffix)
}

func keyFromPath(path string) (string, bool) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, tmpPrefix) || !strings.HasSuffix(name, suffix) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimSuffix(name, suffix))
	if err != nil {
		return "", false
	}
	return key, true
}

func (k *KV) Get(_ context.Context, key string) (string, error) {
	raw, err := os.ReadFile(k.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Set writes through a temp file and rename so watchers never see a partial value.
func (k *KV) Set(_ context.Context, key, value string) error {
	tmp, err := os.CreateTemp(k.dir, tmpPrefix+"*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), k.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (k *KV) Delete(_ context.Context, key string) error {
	err := os.Remove(k.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Watch adds the directory watch before returning. Repeated events carrying the
// same content are reported once.
func (k *KV) Watch(ctx context.Context, keys ...string) (<-chan store.Change, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(k.dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	filter := store.KeySet(keys)
	var feed store.Feed
	out := feed.Subscribe(ctx, nil)
	go func() {
		defer watcher.Close()
		last := make(map[string]store.Change)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				key, ok := keyFromPath(event.Name)
				if !ok || !store.Matches(filter, key) {
					continue
				}
				change := store.Change{Key: key}
				value, err := k.Get(ctx, key)
				switch {
				case errors.Is(err, store.ErrNotFound):
					change.Deleted = true
				case err != nil:
					k.logger.Warn("read watched key", slog.String("key", key), slog.String("error", err.Error()))
					continue
				default:
					change.Value = value
				}
				if prev, seen := last[key]; seen && prev == change {
					continue
				}
				last[key] = change
				feed.Publish(change)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				k.logger.Warn("kv directory watch error", slog.String("error", err.Error()))
			}
		}
	}()
	return out, nil
}
