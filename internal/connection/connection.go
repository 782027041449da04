package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"shotbridge/internal/credentials"
	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

// Connection is one authenticated session. State transitions are safe for
// concurrent use, but a connection serves one logical workflow at a time.
type Connection struct {
	id     string
	creds  credentials.Credentials
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	svc     tracking.Service
	info    tracking.ServerInfo
	lastErr error
	onClose func(*Connection)

	closed context.Context
	cancel context.CancelFunc
}

var _ tracking.Service = (*Connection)(nil)

func newConnection(id string, creds credentials.Credentials, logger *slog.Logger) *Connection {
	closed, cancel := context.WithCancel(context.Background())
	return &Connection{
		id:     id,
		creds:  creds,
		logger: logger.With(logging.String(logging.FieldSessionID, id)),
		state:  StateConnecting,
		closed: closed,
		cancel: cancel,
	}
}

// ID returns the session identifier used for log correlation.
func (c *Connection) ID() string { return c.id }

// Username returns the user the session authenticates as.
func (c *Connection) Username() string { return c.creds.Username }

// ServerURL returns the server the session talks to.
func (c *Connection) ServerURL() string { return c.creds.ServerURL }

// Info returns the server information captured when the session connected.
func (c *Connection) Info() tracking.ServerInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

// State reports the current lifecycle phase.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure that moved the connection into StateFailed.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Connection) sameCredentials(creds credentials.Credentials) bool {
	return c.creds == creds
}

func (c *Connection) attach(svc tracking.Service) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.svc = svc
}

func (c *Connection) established(info tracking.ServerInfo, onClose func(*Connection)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info = info
	c.state = StateConnected
	c.onClose = onClose
}

func (c *Connection) detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = nil
}

func (c *Connection) fail(err error) {
	c.mu.Lock()
	svc := c.svc
	c.svc = nil
	c.state = StateFailed
	c.lastErr = err
	c.mu.Unlock()
	c.cancel()
	if svc != nil {
		_ = svc.Close()
	}
}

// Close releases the session. It is idempotent and never blocks on the
// server; calls still in flight are cancelled.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	svc := c.svc
	onClose := c.onClose
	c.svc = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	c.cancel()
	var err error
	if svc != nil {
		err = svc.Close()
	}
	if onClose != nil {
		onClose(c)
	}
	c.logger.Debug("connection closed")
	return err
}

// run executes fn against the live service. The context passed to fn is
// cancelled when the connection closes.
func (c *Connection) run(ctx context.Context, entity, operation string, fn func(context.Context, tracking.Service) error) error {
	c.mu.Lock()
	svc, state := c.svc, c.state
	c.mu.Unlock()
	if state != StateConnected || svc == nil {
		return tracking.Wrap(tracking.ErrConnectivity, entity, operation, "connection is "+state.String(), nil)
	}

	callCtx, cancel := context.WithCancel(tracking.WithSessionID(ctx, c.id))
	defer cancel()
	stop := context.AfterFunc(c.closed, cancel)
	defer stop()

	err := fn(callCtx, svc)
	if err != nil && c.closed.Err() != nil && !errors.Is(err, tracking.ErrConnectivity) {
		return tracking.Wrap(tracking.ErrConnectivity, entity, operation, "connection closed", err)
	}
	return err
}

// ServerInfo performs a fresh round trip.
func (c *Connection) ServerInfo(ctx context.Context) (tracking.ServerInfo, error) {
	var info tracking.ServerInfo
	err := c.run(ctx, "server", "query_server_information", func(ctx context.Context, svc tracking.Service) error {
		var err error
		info, err = svc.ServerInfo(ctx)
		return err
	})
	return info, err
}

func (c *Connection) Query(ctx context.Context, q tracking.Query) ([]tracking.Entity, error) {
	var items []tracking.Entity
	err := c.run(ctx, q.Type, "query", func(ctx context.Context, svc tracking.Service) error {
		var err error
		items, err = svc.Query(ctx, q)
		return err
	})
	return items, err
}

func (c *Connection) Get(ctx context.Context, entityType, id string) (tracking.Entity, error) {
	var entity tracking.Entity
	err := c.run(ctx, entityType, "get", func(ctx context.Context, svc tracking.Service) error {
		var err error
		entity, err = svc.Get(ctx, entityType, id)
		return err
	})
	return entity, err
}

func (c *Connection) Create(ctx context.Context, entityType string, attrs map[string]any) (tracking.Entity, error) {
	var entity tracking.Entity
	err := c.run(ctx, entityType, "create", func(ctx context.Context, svc tracking.Service) error {
		var err error
		entity, err = svc.Create(ctx, entityType, attrs)
		return err
	})
	return entity, err
}

func (c *Connection) Update(ctx context.Context, entityType, id string, attrs map[string]any) (tracking.Entity, error) {
	var entity tracking.Entity
	err := c.run(ctx, entityType, "update", func(ctx context.Context, svc tracking.Service) error {
		var err error
		entity, err = svc.Update(ctx, entityType, id, attrs)
		return err
	})
	return entity, err
}

func (c *Connection) Upload(ctx context.Context, upload tracking.Upload) error {
	return c.run(ctx, tracking.TypeFileComponent, "upload", func(ctx context.Context, svc tracking.Service) error {
		return svc.Upload(ctx, upload)
	})
}

func (c *Connection) EncodeMedia(ctx context.Context, componentID, versionID string) error {
	return c.run(ctx, tracking.TypeAssetVersion, "encode_media", func(ctx context.Context, svc tracking.Service) error {
		return svc.EncodeMedia(ctx, componentID, versionID)
	})
}
