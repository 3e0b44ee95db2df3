// Package sqlite provides a SQLite-backed session store for single-machine
// deployments that want durable state without managing flat files. It mirrors
// the in-memory semantics and snapshots the full state after every mutation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"stimcore/internal/infra/sessionstate/memory"
	"stimcore/pkg/domain"
)

var _ domain.SessionStore = (*Store)(nil)

// Store persists the in-memory state to a single SQLite table as JSON blobs.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore constructs a snapshotting SQLite-backed session store.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = "stimcore.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create state table: %w", err)
	}
	s := &Store{Store: memory.New(), db: db, path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

var sqliteBuckets = []string{"orders", "progress", "results", "practice_done"}

func (s *Store) load() error {
	rows, err := s.db.Query(`SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	snapshot := memory.Snapshot{}
	found := false
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		found = true
		switch bucket {
		case "orders":
			if err := json.Unmarshal(payload, &snapshot.Orders); err != nil {
				return fmt.Errorf("decode orders: %w", err)
			}
		case "progress":
			if err := json.Unmarshal(payload, &snapshot.Progress); err != nil {
				return fmt.Errorf("decode progress: %w", err)
			}
		case "results":
			if err := json.Unmarshal(payload, &snapshot.Results); err != nil {
				return fmt.Errorf("decode results: %w", err)
			}
		case "practice_done":
			if err := json.Unmarshal(payload, &snapshot.PracticeDone); err != nil {
				return fmt.Errorf("decode practice_done: %w", err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	if found {
		s.ImportState(snapshot)
	}
	return nil
}

func (s *Store) persist() (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.ExportState()
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range sqliteBuckets {
		var data []byte
		switch bucket {
		case "orders":
			data, err = json.Marshal(snapshot.Orders)
		case "progress":
			data, err = json.Marshal(snapshot.Progress)
		case "results":
			data, err = json.Marshal(snapshot.Results)
		case "practice_done":
			data, err = json.Marshal(snapshot.PracticeDone)
		}
		if err != nil {
			retErr = err
			return retErr
		}
		if _, err = tx.Exec(`INSERT INTO state(bucket,payload) VALUES(?,?) ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload`, bucket, data); err != nil {
			retErr = fmt.Errorf("upsert %s: %w", bucket, err)
			return retErr
		}
	}
	return tx.Commit()
}

// SaveOrder stores the order in memory then snapshots to SQLite.
func (s *Store) SaveOrder(ctx context.Context, key domain.SessionKey, order []domain.StimulusID) error {
	if err := s.Store.SaveOrder(ctx, key, order); err != nil {
		return err
	}
	return s.persist()
}

// AppendProgress appends in memory then snapshots to SQLite.
func (s *Store) AppendProgress(ctx context.Context, key domain.SessionKey, ids ...domain.StimulusID) error {
	if err := s.Store.AppendProgress(ctx, key, ids...); err != nil {
		return err
	}
	return s.persist()
}

// AppendResult appends in memory then snapshots to SQLite.
func (s *Store) AppendResult(ctx context.Context, result domain.TrialResult) error {
	if err := s.Store.AppendResult(ctx, result); err != nil {
		return err
	}
	return s.persist()
}

// MarkPracticeDone marks in memory then snapshots to SQLite.
func (s *Store) MarkPracticeDone(ctx context.Context, participant string) error {
	if err := s.Store.MarkPracticeDone(ctx, participant); err != nil {
		return err
	}
	return s.persist()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
