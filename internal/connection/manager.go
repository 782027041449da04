package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"

	"shotbridge/internal/credentials"
	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

// Dialer opens a backend session for creds. It must not block beyond ctx.
type Dialer func(ctx context.Context, creds credentials.Credentials) (tracking.Service, error)

// Options configure a Manager.
type Options struct {
	Dialer Dialer
	// MinServerVersion is a semver constraint such as ">= 3.3.11". Empty
	// disables the check.
	MinServerVersion string
	Logger           *slog.Logger
}

// Manager hands out at most one live Connection.
type Manager struct {
	dial       Dialer
	constraint *semver.Constraints
	logger     *slog.Logger

	mu   sync.Mutex
	live *Connection
}

// NewManager validates opts and returns a Manager.
func NewManager(opts Options) (*Manager, error) {
	if opts.Dialer == nil {
		return nil, errors.New("connection manager requires a dialer")
	}
	m := &Manager{
		dial:   opts.Dialer,
		logger: logging.NewComponentLogger(opts.Logger, "connection"),
	}
	if raw := strings.TrimSpace(opts.MinServerVersion); raw != "" {
		constraint, err := semver.NewConstraint(raw)
		if err != nil {
			return nil, fmt.Errorf("parse server version constraint %q: %w", raw, err)
		}
		m.constraint = constraint
	}
	return m, nil
}

// Current returns the live connection, if any.
func (m *Manager) Current() (*Connection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live == nil || m.live.State() != StateConnected {
		return nil, false
	}
	return m.live, true
}

// Connect returns a connected session for creds. A live session with the
// same credentials is reused; one with different credentials is closed first.
func (m *Manager) Connect(ctx context.Context, creds credentials.Credentials) (*Connection, error) {
	creds = creds.Normalized()
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.live != nil {
		if m.live.State() == StateConnected && m.live.sameCredentials(creds) {
			return m.live, nil
		}
		previous := m.live
		m.live = nil
		previous.detach()
		_ = previous.Close()
	}

	conn := newConnection(uuid.NewString(), creds, m.logger)
	logger := conn.logger.With(logging.String("server_url", creds.ServerURL), logging.String("username", creds.Username))
	logger.Debug("connecting")

	svc, err := m.dial(ctx, creds)
	if err != nil {
		err = classifyDialError(err)
		conn.fail(err)
		logging.WarnWithContext(logger, "connection failed", "connection_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, tracking.Kind(err)),
			logging.String(logging.FieldErrorHint, "check server_url and network access"),
		)
		return nil, err
	}
	conn.attach(svc)

	info, err := svc.ServerInfo(tracking.WithSessionID(ctx, conn.id))
	if err != nil {
		err = classifyDialError(err)
		conn.fail(err)
		logging.WarnWithContext(logger, "server round trip failed", "connection_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, tracking.Kind(err)),
			logging.String(logging.FieldErrorHint, "verify the API key and username with `shotbridge credentials test`"),
		)
		return nil, err
	}
	if err := m.checkVersion(info.Version); err != nil {
		conn.fail(err)
		logging.WarnWithContext(logger, "server version rejected", "server_version_rejected",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "adjust tracking.min_server_version or upgrade the server"),
		)
		return nil, err
	}

	conn.established(info, m.release)
	m.live = conn
	logger.Info("connected",
		logging.String("server_version", info.Version),
		logging.String("backend", info.Backend),
	)
	return conn, nil
}

func (m *Manager) release(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live == conn {
		m.live = nil
	}
}

func (m *Manager) checkVersion(raw string) error {
	if m.constraint == nil {
		return nil
	}
	version, err := semver.NewVersion(strings.TrimSpace(raw))
	if err != nil {
		m.logger.Warn("server version not parseable; skipping compatibility check",
			logging.String("server_version", raw),
			logging.String(logging.FieldEventType, "server_version_unknown"),
		)
		return nil
	}
	if !m.constraint.Check(version) {
		return tracking.Wrap(tracking.ErrConnectivity, "server", "version check",
			fmt.Sprintf("server version %s does not satisfy %q", version, m.constraint.String()), nil)
	}
	return nil
}

// With connects, runs fn and releases the connection on every exit path,
// including a panic in fn.
func (m *Manager) With(ctx context.Context, creds credentials.Credentials, fn func(context.Context, *Connection) error) error {
	conn, err := m.Connect(ctx, creds)
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close()
	}()
	return fn(tracking.WithSessionID(ctx, conn.ID()), conn)
}

// Test performs a lightweight round trip and reports the outcome as a human
// readable diagnostic. A live connection with the same credentials is used
// as is; otherwise a throwaway session is dialed and closed. Test never
// returns an error and never closes the live connection.
func (m *Manager) Test(ctx context.Context, creds credentials.Credentials) (bool, string) {
	creds = creds.Normalized()
	if err := creds.Validate(); err != nil {
		return false, err.Error()
	}
	var svc tracking.Service
	if live, ok := m.Current(); ok && live.sameCredentials(creds) {
		svc = live
	} else {
		dialed, err := m.dial(ctx, creds)
		if err != nil {
			return false, describe(classifyDialError(err))
		}
		defer dialed.Close()
		svc = dialed
	}

	info, err := svc.ServerInfo(ctx)
	if err != nil {
		return false, describe(classifyDialError(err))
	}
	if err := m.checkVersion(info.Version); err != nil {
		return false, err.Error()
	}
	if _, _, err := tracking.First(ctx, svc, tracking.Query{Type: tracking.TypeProject}); err != nil {
		return false, describe(err)
	}
	return true, fmt.Sprintf("connected to %s as %s (server %s)", creds.ServerURL, creds.Username, info.Version)
}

// Close releases the live connection, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	live := m.live
	m.live = nil
	m.mu.Unlock()
	if live == nil {
		return nil
	}
	live.detach()
	return live.Close()
}

// classifyDialError tags unmarked backend errors as connectivity failures.
func classifyDialError(err error) error {
	if tracking.Kind(err) != "unknown" {
		return err
	}
	return tracking.Wrap(tracking.ErrConnectivity, "server", "connect", "", err)
}

func describe(err error) string {
	switch {
	case errors.Is(err, tracking.ErrAuthentication):
		return "authentication failed: " + err.Error()
	case errors.Is(err, tracking.ErrConnectivity):
		return "server unreachable: " + err.Error()
	case errors.Is(err, tracking.ErrPermission):
		return "permission denied: " + err.Error()
	default:
		return err.Error()
	}
}
