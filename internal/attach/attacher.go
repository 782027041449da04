package attach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shotbridge/internal/logging"
	"shotbridge/internal/tracking"
)

// contextTypes are tried in order when a caller does not know the type of
// the entity it refers to.
var contextTypes = []string{
	tracking.TypeShot,
	tracking.TypeTask,
	tracking.TypeSequence,
	tracking.TypeFolder,
	tracking.TypeAssetVersion,
	tracking.TypeProject,
}

// Options configures an Attacher.
type Options struct {
	// Username authors notes, versions and time logs.
	Username string
	Logger   *slog.Logger
	Now      func() time.Time
}

// Attacher runs attachment operations against one tracking service.
type Attacher struct {
	svc      tracking.Service
	username string
	logger   *slog.Logger
	now      func() time.Time
}

// New builds an Attacher.
func New(svc tracking.Service, opts Options) *Attacher {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Attacher{
		svc:      svc,
		username: strings.TrimSpace(opts.Username),
		logger:   logging.NewComponentLogger(opts.Logger, "attach"),
		now:      now,
	}
}

// Resolve fetches the entity ref points at. An empty ref.Type tries the
// context types in turn.
func (a *Attacher) Resolve(ctx context.Context, ref tracking.Ref) (tracking.Entity, error) {
	if strings.TrimSpace(ref.ID) == "" {
		return tracking.Entity{}, tracking.Wrap(tracking.ErrValidation, ref.Type, "resolve", "entity id is empty", nil)
	}
	if ref.Type != "" {
		return a.svc.Get(ctx, ref.Type, ref.ID)
	}
	for _, entityType := range contextTypes {
		entity, err := a.svc.Get(ctx, entityType, ref.ID)
		if err == nil {
			return entity, nil
		}
		if !errors.Is(err, tracking.ErrNotFound) {
			return tracking.Entity{}, err
		}
	}
	return tracking.Entity{}, tracking.Wrap(tracking.ErrNotFound, "", "resolve", fmt.Sprintf("no entity with id %s", ref.ID), nil)
}

// userID returns the id of the configured user, or "" when the server
// does not know the user.
func (a *Attacher) userID(ctx context.Context) (string, error) {
	if a.username == "" {
		return "", nil
	}
	user, found, err := tracking.First(ctx, a.svc, tracking.Query{Type: tracking.TypeUser}.Where(tracking.Eq("username", a.username)))
	if err != nil {
		return "", err
	}
	if !found {
		logging.WarnWithContext(logging.WithContext(ctx, a.logger), "user not found on server", "user_missing",
			logging.String("username", a.username),
			logging.String(logging.FieldErrorHint, "records are created without an author"),
		)
		return "", nil
	}
	return user.ID, nil
}

func (a *Attacher) timestamp() string {
	return a.now().UTC().Format(time.RFC3339)
}
