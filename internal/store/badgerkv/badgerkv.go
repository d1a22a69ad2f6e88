// Package badgerkv stores dashboard snapshots in an embedded BadgerDB and follows
// writes through Badger's key subscriptions.
package badgerkv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"okrdash/internal/store"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
)

// present marks live values; Badger reports deletions with empty user meta.
const present byte = 1

type Config struct {
	Path string

	InMemory bool

	SyncWrites bool

	Logger *slog.Logger

	// GCInterval controls value log GC for on-disk databases; zero disables it.
	GCInterval time.Duration

	GCDiscardRatio float64
}

func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

type KV struct {
	db     *badger.DB
	logger *slog.Logger
	stop   chan struct{}
	done   chan struct{}
}

func Open(cfg Config) (*KV, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	kv := &KV{db: db, logger: logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		kv.stop = make(chan struct{})
		kv.done = make(chan struct{})
		go kv.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	return kv, nil
}

func (k *KV) Close() error {
	if k.stop != nil {
		close(k.stop)
		<-k.done
	}
	return k.db.Close()
}

func (k *KV) Get(_ context.Context, key string) (string, error) {
	var value string
	err := k.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		value = string(raw)
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", store.ErrNotFound
	}
	return value, err
}

func (k *KV) Set(_ context.Context, key, value string) error {
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), []byte(value)).WithMeta(present))
	})
}

func (k *KV) Delete(_ context.Context, key string) error {
	return k.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Watch registers a Badger subscription in the background, so writes made in the
// first moments after Watch returns may be missed.
func (k *KV) Watch(ctx context.Context, keys ...string) (<-chan store.Change, error) {
	filter := store.KeySet(keys)
	matches := []pb.Match{{Prefix: nil}}
	if len(keys) > 0 {
		matches = make([]pb.Match, 0, len(keys))
		for _, key := range keys {
			matches = append(matches, pb.Match{Prefix: []byte(key)})
		}
	}

	var feed store.Feed
	out := feed.Subscribe(ctx, nil)
	go func() {
		err := k.db.Subscribe(ctx, func(list *badger.KVList) error {
			for _, item := range list.Kv {
				key := string(item.Key)
				// prefix matches also catch longer keys
				if !store.Matches(filter, key) {
					continue
				}
				change := store.Change{Key: key, Value: string(item.Value)}
				if len(item.UserMeta) == 0 || item.UserMeta[0] != present {
					change = store.Change{Key: key, Deleted: true}
				}
				feed.Publish(change)
			}
			return nil
		}, matches)
		if err != nil && !errors.Is(err, context.Canceled) {
			k.logger.Warn("badger subscription ended", slog.String("error", err.Error()))
		}
	}()
	return out, nil
}

func (k *KV) runGC(interval time.Duration, ratio float64) {
	defer close(k.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-k.stop:
			return
		case <-ticker.C:
			if err := k.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				k.logger.Warn("badger value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}
