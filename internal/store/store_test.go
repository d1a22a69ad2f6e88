package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres runs a migrated database in a container, skipping the test when
// docker is unavailable.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()
	container, err := tcpostgres.RunContainer(ctx,
		tcpostgres.WithDatabase("okrdash"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(10*time.Second),
		),
	)
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("conn string: %v", err)
	}
	if err := runMigrations(dbURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestStoreRoundTripAndNotify(t *testing.T) {
	ctx := context.Background()
	s := New(startPostgres(t), nil)
	if _, err := s.Get(ctx, KeyCycle); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	changes, err := s.Watch(watchCtx, KeyCycle)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	if err := s.Set(ctx, KeyObjectives, `{}`); err != nil {
		t.Fatalf("set objectives: %v", err)
	}
	if err := s.Set(ctx, KeyCycle, `"Q1 2025"`); err != nil {
		t.Fatalf("set cycle: %v", err)
	}
	got, err := s.Get(ctx, KeyCycle)
	if err != nil || got != `"Q1 2025"` {
		t.Fatalf("expected Q1 2025 got %q (%v)", got, err)
	}

	change := nextChange(t, changes)
	if change.Key != KeyCycle || change.Value != `"Q1 2025"` {
		t.Fatalf("unexpected change %+v", change)
	}

	if err := s.Delete(ctx, KeyCycle); err != nil {
		t.Fatalf("delete: %v", err)
	}
	change = nextChange(t, changes)
	if !change.Deleted {
		t.Fatalf("expected deletion got %+v", change)
	}
}

func TestWatchSurvivesDroppedConnection(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t)
	s := New(pool, nil)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	changes, err := s.Watch(watchCtx, KeyCycle)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := s.Set(ctx, KeyCycle, `"before"`); err != nil {
		t.Fatalf("set cycle: %v", err)
	}
	if change := nextChange(t, changes); change.Value != `"before"` {
		t.Fatalf("unexpected change %+v", change)
	}

	var terminated int
	err = pool.QueryRow(ctx, `
		SELECT count(*) FROM (
			SELECT pg_terminate_backend(pid) FROM pg_stat_activity
			WHERE query = 'LISTEN '||$1 AND pid <> pg_backend_pid()
		) t`, NotifyChannel).Scan(&terminated)
	if err != nil || terminated == 0 {
		t.Fatalf("expected listener terminated, got %d (%v)", terminated, err)
	}

	if err := s.Set(ctx, KeyCycle, `"after"`); err != nil {
		t.Fatalf("set cycle: %v", err)
	}
	deadline := time.After(15 * time.Second)
	for {
		select {
		case change, ok := <-changes:
			if !ok {
				t.Fatalf("change feed closed after dropped connection")
			}
			if change.Key == KeyCycle && change.Value == `"after"` {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change after reconnect")
		}
	}
}

func TestNextBackoffIsCapped(t *testing.T) {
	delay := minWatchBackoff
	for i := 0; i < 20; i++ {
		next := nextBackoff(delay)
		if next < delay || next > maxWatchBackoff {
			t.Fatalf("expected backoff in [%v, %v] got %v", delay, maxWatchBackoff, next)
		}
		delay = next
	}
	if delay != maxWatchBackoff {
		t.Fatalf("expected %v got %v", maxWatchBackoff, delay)
	}
}

func nextChange(t *testing.T, changes <-chan Change) Change {
	t.Helper()
	select {
	case change, ok := <-changes:
		if !ok {
			t.Fatalf("change feed closed")
		}
		return change
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for change")
	}
	return Change{}
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	driver, err := migratepostgres.WithInstance(db, &migratepostgres.Config{})
	if err != nil {
		return err
	}
	migrationsPath, err := resolveMigrationsPath()
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func resolveMigrationsPath() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "migrations"), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found (start dir: %s)", dir)
		}
		dir = parent
	}
}
