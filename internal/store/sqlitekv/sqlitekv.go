// Package sqlitekv stores dashboard snapshots in a single SQLite file. SQLite has
// no change notification across connections, so Watch polls a write sequence.
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"okrdash/internal/store"

	_ "modernc.org/sqlite"
)

const DefaultPollInterval = time.Second

type KV struct {
	DBPath string
	db     *sql.DB
	poll   time.Duration
	logger *slog.Logger
}

// Open opens or creates the database file.
func Open(path string, poll time.Duration, logger *slog.Logger) (*KV, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve kv db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure kv db dir: %w", err)
	}

	db, err := sql.Open("sqlite", absPath)
	if err != nil {
		return nil, fmt.Errorf("open kv db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if poll <= 0 {
		poll = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	kv := &KV{DBPath: absPath, db: db, poll: poll, logger: logger}
	if err := kv.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return kv, nil
}

func (k *KV) Close() error {
	if k.db != nil {
		return k.db.Close()
	}
	return nil
}

func (k *KV) ensureSchema() error {
	// deleted keys keep a row with a NULL value so pollers observe the delete
	schema := `
CREATE TABLE IF NOT EXISTS kv_entries (
	key TEXT PRIMARY KEY,
	value TEXT,
	seq INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_kv_entries_seq ON kv_entries(seq);
`
	if _, err := k.db.Exec(schema); err != nil {
		return fmt.Errorf("create kv schema: %w", err)
	}
	return nil
}

func (k *KV) Get(ctx context.Context, key string) (string, error) {
	var value sql.NullString
	err := k.db.QueryRowContext(ctx, "SELECT value FROM kv_entries WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !value.Valid) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get kv: %w", err)
	}
	return value.String, nil
}

func (k *KV) Set(ctx context.Context, key, value string) error {
	return k.write(ctx, key, sql.NullString{String: value, Valid: true})
}

func (k *KV) Delete(ctx context.Context, key string) error {
	return k.write(ctx, key, sql.NullString{})
}

func (k *KV) write(ctx context.Context, key string, value sql.NullString) error {
	_, err := k.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, seq)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM kv_entries))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, seq = excluded.seq
	`, key, value)
	if err != nil {
		return fmt.Errorf("write kv: %w", err)
	}
	return nil
}

func (k *KV) cursor(ctx context.Context) (int64, error) {
	var seq int64
	err := k.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM kv_entries").Scan(&seq)
	return seq, err
}

// Watch reads the current sequence before returning, so every later write is
// reported on a following poll. Several writes to one key between polls collapse
// into the latest value.
func (k *KV) Watch(ctx context.Context, keys ...string) (<-chan store.Change, error) {
	seq, err := k.cursor(ctx)
	if err != nil {
		return nil, fmt.Errorf("read kv cursor: %w", err)
	}
	filter := store.KeySet(keys)
	var feed store.Feed
	out := feed.Subscribe(ctx, nil)
	go func() {
		ticker := time.NewTicker(k.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				next, err := k.pollOnce(ctx, seq, filter, &feed)
				if err != nil {
					if ctx.Err() == nil {
						k.logger.Warn("poll kv changes", slog.String("error", err.Error()))
					}
					continue
				}
				seq = next
			}
		}
	}()
	return out, nil
}

func (k *KV) pollOnce(ctx context.Context, after int64, filter map[string]struct{}, feed *store.Feed) (int64, error) {
	rows, err := k.db.QueryContext(ctx, "SELECT key, value, seq FROM kv_entries WHERE seq > ? ORDER BY seq", after)
	if err != nil {
		return after, err
	}
	defer rows.Close()

	var changes []store.Change
	latest := after
	for rows.Next() {
		var key string
		var value sql.NullString
		var seq int64
		if err := rows.Scan(&key, &value, &seq); err != nil {
			return after, err
		}
		latest = seq
		if !store.Matches(filter, key) {
			continue
		}
		changes = append(changes, store.Change{Key: key, Value: value.String, Deleted: !value.Valid})
	}
	if err := rows.Err(); err != nil {
		return after, err
	}
	for _, change := range changes {
		feed.Publish(change)
	}
	return latest, nil
}
