package runstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pillwise/backend/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	payload TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_expires_at ON runs (expires_at);
`

// SQLiteStore keeps run records in a local SQLite database
type SQLiteStore struct {
	db   *sql.DB
	ttl  time.Duration
	now  func() time.Time
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewSQLiteStore opens (or creates) the database at dsn, applies the schema
// and starts a janitor that purges expired runs every cleanupInterval
func NewSQLiteStore(ctx context.Context, dsn string, ttl time.Duration, cleanupInterval time.Duration) (*SQLiteStore, error) {
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	store := &SQLiteStore{
		db:   db,
		ttl:  ttl,
		now:  time.Now,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go store.cleanupExpired(cleanupInterval)

	return store, nil
}

func (s *SQLiteStore) Save(ctx context.Context, run *domain.RunRecord) error {
	payload, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode run: %w", err)
	}

	now := s.now()
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO runs (id, state, payload, updated_at, expires_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		state = excluded.state,
		payload = excluded.payload,
		updated_at = excluded.updated_at,
		expires_at = excluded.expires_at
	`, run.ID, string(run.State), string(payload), now.UnixMilli(), now.Add(s.ttl).UnixMilli())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRunStoreUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*domain.RunRecord, error) {
	var payload string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM runs WHERE id = ?`, id,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRunStoreUnavailable, err)
	}
	if s.now().UnixMilli() > expiresAt {
		return nil, domain.ErrRunNotFound
	}

	var run domain.RunRecord
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return nil, fmt.Errorf("failed to decode run: %w", err)
	}
	return &run, nil
}

// Purge deletes expired rows and returns how many were removed
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE expires_at < ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge runs: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the janitor and closes the database
func (s *SQLiteStore) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		<-s.done
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteStore) cleanupExpired(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			// a failed purge is retried on the next tick
			_, _ = s.Purge(ctx)
			cancel()
		}
	}
}
