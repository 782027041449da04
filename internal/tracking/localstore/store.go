package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

// ServerVersion is reported by ServerInfo.
const ServerVersion = "4.13.0"

// ErrLocked indicates another process holds the offline store.
var ErrLocked = errors.New("offline store is in use by another process")

// Options configure Open.
type Options struct {
	// Path of the SQLite file. ":memory:" is not supported because the
	// store is guarded by a lock file next to it.
	Path string
	// Username is seeded as a User so notes and timelogs can be authored.
	Username string
	Logger   *slog.Logger
}

// Store is a tracking.Service backed by SQLite.
type Store struct {
	db     *sql.DB
	path   string
	lock   *flock.Flock
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

var _ tracking.Service = (*Store)(nil)

// Open initializes or connects to the offline database, seeding a new one.
func Open(ctx context.Context, opts Options) (*Store, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, errors.New("offline store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure offline store directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire offline store lock: %w", err)
	}
	if !ok {
		return nil, tracking.Wrap(tracking.ErrConnectivity, "localstore", "open", path, ErrLocked)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:     db,
		path:   path,
		lock:   lock,
		logger: logging.NewComponentLogger(opts.Logger, "localstore"),
	}
	created, err := store.initSchema(ctx)
	if err == nil && created {
		err = store.seed(ctx)
	}
	if err == nil {
		err = store.ensureUser(ctx, opts.Username)
	}
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if created {
		store.logger.Info("offline store created", logging.String("path", path))
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database and releases the lock. It is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.db.Close()
	if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
		err = unlockErr
	}
	return err
}

func (s *Store) checkOpen(entity, operation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return tracking.Wrap(tracking.ErrConnectivity, entity, operation, "offline store closed", nil)
	}
	return nil
}

// dbError maps database failures onto tracking markers.
func dbError(entity, operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return tracking.Wrap(tracking.ErrConnectivity, entity, operation, "", err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "unique constraint") {
		return tracking.Wrap(tracking.ErrDuplicate, entity, operation, "", err)
	}
	if strings.Contains(err.Error(), "database is closed") {
		return tracking.Wrap(tracking.ErrConnectivity, entity, operation, "", err)
	}
	return tracking.Wrap(tracking.ErrValidation, entity, operation, "", err)
}
