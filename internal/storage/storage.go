// Package storage persists missions, saved routes and agent logs in sqlite.
// It stores only source records; stats and achievements are always derived.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/agentlog"
	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/mission"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/routebook"
	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

const lockTimeout = 5 * time.Second

type Store struct {
	db     *sql.DB
	lock   *flock.Flock
	logger *slog.Logger

	mu   sync.Mutex
	held bool
	// revisions holds the mission row revisions this handle last loaded or
	// wrote, keyed by missionKey.
	revisions map[string]int64
}

func Open(path, lockPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "create store directory", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "create store lock directory", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUnavailable, "open mission sqlite", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=2000;",
		`CREATE TABLE IF NOT EXISTS missions (
			user_id TEXT NOT NULL,
			mission_id TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			revision INTEGER NOT NULL DEFAULT 1,
			payload BLOB NOT NULL,
			PRIMARY KEY (user_id, mission_id)
		);`,
		"CREATE INDEX IF NOT EXISTS idx_missions_user_created ON missions(user_id, created_at DESC);",
		`CREATE TABLE IF NOT EXISTS saved_routes (
			user_id TEXT NOT NULL,
			route_id TEXT NOT NULL,
			name TEXT NOT NULL,
			last_used_at INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (user_id, route_id)
		);`,
		`CREATE TABLE IF NOT EXISTS agent_logs (
			user_id TEXT NOT NULL,
			log_id TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (user_id, log_id)
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, classify("init mission schema", err)
		}
	}
	logger.Debug("mission store opened", "path", path)
	return &Store{db: db, lock: flock.New(lockPath), logger: logger, revisions: map[string]int64{}}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	held := s.held
	s.held = false
	s.mu.Unlock()
	if held {
		_ = s.lock.Unlock()
	}
	return s.db.Close()
}

// Lock holds the file lock until release is called, so a whole
// load-modify-save cycle runs without other processes writing in between.
// Writes made through this handle while the lock is held reuse it.
func (s *Store) Lock(ctx context.Context) (func(), error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.held = true
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			held := s.held
			s.held = false
			s.mu.Unlock()
			if held {
				_ = s.lock.Unlock()
			}
		})
	}, nil
}

func (s *Store) acquire(ctx context.Context) error {
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return clierr.Wrap(clierr.CodeUnavailable, "lock mission store: timeout acquiring lock", err)
		}
		return clierr.Wrap(clierr.CodeUnavailable, "lock mission store", err)
	}
	if !locked {
		return clierr.New(clierr.CodeUnavailable, "lock mission store: timeout acquiring lock")
	}
	return nil
}

// SaveMission writes m if its row is still at the revision this handle last
// loaded or wrote. A mission this handle has never seen must not exist yet.
// A row that moved on under another writer fails with CodeUnavailable; the
// caller reloads and retries.
func (s *Store) SaveMission(m mission.Mission) error {
	if strings.TrimSpace(m.ID) == "" || strings.TrimSpace(m.UserID) == "" {
		return clierr.New(clierr.CodeUsage, "save mission: missing mission or user id")
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, "marshal mission", err)
	}
	updated := m.CreatedAt
	if last, ok := m.LastEvent(); ok {
		updated = last.Timestamp
	}
	key := missionKey(m.UserID, m.ID)
	s.mu.Lock()
	seen, tracked := s.revisions[key]
	s.mu.Unlock()

	var next int64
	err = s.locked(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return classify("begin save mission", err)
		}
		defer func() { _ = tx.Rollback() }()

		var stored int64
		err = tx.QueryRow("SELECT revision FROM missions WHERE user_id = ? AND mission_id = ?", m.UserID, m.ID).Scan(&stored)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if tracked {
				return clierr.Newf(clierr.CodeUnavailable, "mission %s was removed by another writer; reload and retry", m.ID)
			}
			next = 1
			_, err = tx.Exec(`
				INSERT INTO missions (user_id, mission_id, status, created_at, updated_at, revision, payload)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, m.UserID, m.ID, m.Status.String(), m.CreatedAt.UTC().Unix(), updated.UTC().Unix(), next, payload)
		case err != nil:
			return classify("read mission revision", err)
		case !tracked:
			return clierr.Newf(clierr.CodeConflict, "mission %s already exists", m.ID)
		case stored != seen:
			return clierr.Newf(clierr.CodeUnavailable, "mission %s changed since it was loaded; reload and retry", m.ID)
		default:
			next = stored + 1
			_, err = tx.Exec(`
				UPDATE missions SET status = ?, updated_at = ?, revision = ?, payload = ?
				WHERE user_id = ? AND mission_id = ?
			`, m.Status.String(), updated.UTC().Unix(), next, payload, m.UserID, m.ID)
		}
		if err != nil {
			return classify("save mission", err)
		}
		if err := tx.Commit(); err != nil {
			return classify("commit save mission", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.revisions[key] = next
	s.mu.Unlock()
	s.logger.Debug("mission store write", "op", "save mission", "mission", m.ID, "revision", next)
	return nil
}

// LoadMissions returns the user's missions as persisted and records their
// revisions for later saves. Callers restore them through
// mission.Store.Restore, which re-validates every invariant.
func (s *Store) LoadMissions(userID string) ([]mission.Mission, error) {
	rows, err := s.db.Query("SELECT revision, payload FROM missions WHERE user_id = ? ORDER BY created_at DESC, mission_id", userID)
	if err != nil {
		return nil, classify("list missions", err)
	}
	defer rows.Close()
	out := make([]mission.Mission, 0)
	seen := map[string]int64{}
	for rows.Next() {
		var (
			revision int64
			payload  []byte
		)
		if err := rows.Scan(&revision, &payload); err != nil {
			return nil, classify("scan mission row", err)
		}
		var m mission.Mission
		if err := json.Unmarshal(payload, &m); err != nil {
			return nil, clierr.Wrap(clierr.CodeInternal, "decode mission row", err)
		}
		seen[missionKey(m.UserID, m.ID)] = revision
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate mission rows", err)
	}
	s.mu.Lock()
	for k, v := range seen {
		s.revisions[k] = v
	}
	s.mu.Unlock()
	return out, nil
}

func missionKey(userID, missionID string) string {
	return userID + "\x00" + missionID
}

func (s *Store) SaveRoute(r routebook.SavedRoute) error {
	if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.UserID) == "" {
		return clierr.New(clierr.CodeUsage, "save route: missing route or user id")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, "marshal saved route", err)
	}
	return s.write("save route", `
		INSERT INTO saved_routes (user_id, route_id, name, last_used_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, route_id) DO UPDATE SET
			name=excluded.name,
			last_used_at=excluded.last_used_at,
			payload=excluded.payload
	`, r.UserID, r.ID, r.Name, r.LastUsedAt.UTC().Unix(), payload)
}

func (s *Store) DeleteRoute(userID, routeID string) error {
	return s.write("delete route", "DELETE FROM saved_routes WHERE user_id = ? AND route_id = ?", userID, routeID)
}

func (s *Store) LoadRoutes(userID string) ([]routebook.SavedRoute, error) {
	rows, err := s.db.Query("SELECT payload FROM saved_routes WHERE user_id = ? ORDER BY last_used_at DESC, route_id", userID)
	if err != nil {
		return nil, classify("list saved routes", err)
	}
	return scanAll[routebook.SavedRoute](rows, "saved route")
}

func (s *Store) SaveLog(l agentlog.Log) error {
	if strings.TrimSpace(l.ID) == "" || strings.TrimSpace(l.UserID) == "" {
		return clierr.New(clierr.CodeUsage, "save agent log: missing log or user id")
	}
	payload, err := json.Marshal(l)
	if err != nil {
		return clierr.Wrap(clierr.CodeInternal, "marshal agent log", err)
	}
	updated := l.CreatedAt
	if n := len(l.Messages); n > 0 {
		updated = l.Messages[n-1].Timestamp
	}
	return s.write("save agent log", `
		INSERT INTO agent_logs (user_id, log_id, created_at, updated_at, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, log_id) DO UPDATE SET
			updated_at=excluded.updated_at,
			payload=excluded.payload
	`, l.UserID, l.ID, l.CreatedAt.UTC().Unix(), updated.UTC().Unix(), payload)
}

func (s *Store) LoadLogs(userID string) ([]agentlog.Log, error) {
	rows, err := s.db.Query("SELECT payload FROM agent_logs WHERE user_id = ? ORDER BY created_at DESC, log_id", userID)
	if err != nil {
		return nil, classify("list agent logs", err)
	}
	return scanAll[agentlog.Log](rows, "agent log")
}

// write serializes writers across processes with the file lock.
func (s *Store) write(op, query string, args ...any) error {
	return s.locked(func() error {
		if _, err := s.db.Exec(query, args...); err != nil {
			return classify(op, err)
		}
		s.logger.Debug("mission store write", "op", op)
		return nil
	})
}

// locked runs fn under the file lock, taking it for the call unless Lock
// already holds it.
func (s *Store) locked(fn func() error) error {
	s.mu.Lock()
	held := s.held
	s.mu.Unlock()
	if held {
		return fn()
	}
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

func scanAll[T any](rows *sql.Rows, what string) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, classify("scan "+what+" row", err)
		}
		var item T
		if err := json.Unmarshal(payload, &item); err != nil {
			return nil, clierr.Wrap(clierr.CodeInternal, "decode "+what+" row", err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate "+what+" rows", err)
	}
	return out, nil
}

// classify maps sqlite contention to CodeUnavailable so callers can retry.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || IsBusy(err) {
		return clierr.Wrap(clierr.CodeUnavailable, fmt.Sprintf("%s: store busy", op), err)
	}
	return clierr.Wrap(clierr.CodeInternal, op, err)
}

// IsBusy reports SQLITE_BUSY and "database is locked" errors.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
