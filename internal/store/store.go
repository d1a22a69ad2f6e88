package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyChannel is the LISTEN channel fed by the kv_entries trigger.
const NotifyChannel = "kv_entries_changed"

// Store is the Postgres-backed KV. Change notifications ride on LISTEN/NOTIFY so
// every server sharing the database follows each other's writes.
type Store struct {
	DB     *pgxpool.Pool
	logger *slog.Logger
}

func New(db *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{DB: db, logger: logger}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.DB.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key=$1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`, key, value)
	return err
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.DB.Exec(ctx, `DELETE FROM kv_entries WHERE key=$1`, key)
	return err
}

// Watch holds one pooled connection for the lifetime of ctx. The notification
// payload is the key; the value is read back, so rapid writes to one key may be
// coalesced into the latest value. A dropped connection is re-acquired with
// backoff and every watched key present in the table is reported again, since
// notifications sent while nobody listened are lost.
func (s *Store) Watch(ctx context.Context, keys ...string) (<-chan Change, error) {
	conn, err := s.listen(ctx)
	if err != nil {
		return nil, err
	}

	filter := KeySet(keys)
	out := make(chan Change)
	go func() {
		defer close(out)
		for {
			err := s.follow(ctx, conn, filter, out)
			s.unlisten(conn)
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("kv change feed interrupted", slog.String("error", err.Error()))
			if conn = s.reconnect(ctx); conn == nil {
				return
			}
			if err := s.resync(ctx, filter, out); err != nil && ctx.Err() == nil {
				s.logger.Warn("kv change feed resync", slog.String("error", err.Error()))
			}
		}
	}()
	return out, nil
}

func (s *Store) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := s.DB.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Exec(ctx, "LISTEN "+NotifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen: %w", err)
	}
	return conn, nil
}

func (s *Store) unlisten(conn *pgxpool.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _ = conn.Exec(ctx, "UNLISTEN "+NotifyChannel)
	conn.Release()
}

// reconnect retries until LISTEN succeeds or ctx is done, in which case it
// returns nil.
func (s *Store) reconnect(ctx context.Context) *pgxpool.Conn {
	delay := minWatchBackoff
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
		conn, err := s.listen(ctx)
		if err == nil {
			s.logger.Info("kv change feed reconnected")
			return conn
		}
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("kv change feed reconnect", slog.Duration("retry_in", nextBackoff(delay)), slog.String("error", err.Error()))
		delay = nextBackoff(delay)
	}
}

const (
	minWatchBackoff = 100 * time.Millisecond
	maxWatchBackoff = 10 * time.Second
)

func nextBackoff(delay time.Duration) time.Duration {
	delay *= 2
	if delay > maxWatchBackoff {
		return maxWatchBackoff
	}
	return delay
}

// follow forwards notifications until the connection fails or ctx is done.
func (s *Store) follow(ctx context.Context, conn *pgxpool.Conn, filter map[string]struct{}, out chan<- Change) error {
	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		key := notification.Payload
		if !Matches(filter, key) {
			continue
		}
		change := Change{Key: key}
		value, err := s.Get(ctx, key)
		switch {
		case errors.Is(err, ErrNotFound):
			change.Deleted = true
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("kv change feed read", slog.String("key", key), slog.String("error", err.Error()))
			continue
		default:
			change.Value = value
		}
		select {
		case out <- change:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Store) resync(ctx context.Context, filter map[string]struct{}, out chan<- Change) error {
	rows, err := s.DB.Query(ctx, `SELECT key, value FROM kv_entries ORDER BY key`)
	if err != nil {
		return err
	}
	var changes []Change
	for rows.Next() {
		var change Change
		if err := rows.Scan(&change.Key, &change.Value); err != nil {
			rows.Close()
			return err
		}
		if Matches(filter, change.Key) {
			changes = append(changes, change)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for _, change := range changes {
		select {
		case out <- change:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
