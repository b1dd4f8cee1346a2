// Package nav drives navigation over an object store: it owns the session's
// Location, the per-region connections, and the rules that turn a typed path
// into a container and key.
package nav

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dorkyrobot/cftp/internal/observability"
	"github.com/dorkyrobot/cftp/internal/state"
	"github.com/dorkyrobot/cftp/internal/store"
	"github.com/dorkyrobot/cftp/internal/vpath"
)

var (
	ErrNoRegion    = state.ErrNoRegion
	ErrNoContainer = state.ErrNoContainer

	// ErrNotADirectory is returned when cd targets a fetchable object.
	ErrNotADirectory = errors.New("not a directory")

	// ErrNotAnObject is returned when a fetch targets a region or container.
	ErrNotAnObject = errors.New("not an object")
)

type connKey struct {
	region string
	secure bool
}

// Engine is a navigation session. It is not safe for concurrent use; a
// shell drives it one command at a time.
type Engine struct {
	store store.Store
	delim vpath.Delimiter

	loc   state.Location
	conn  store.Conn
	conns map[connKey]store.Conn

	pageSize  int
	chunkSize int
}

// Option configures an Engine.
type Option func(*Engine)

// WithPageSize sets the page size requested from listing sources.
func WithPageSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pageSize = n
		}
	}
}

// WithChunkSize sets the read buffer size used when fetching objects.
func WithChunkSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

// New returns an engine positioned nowhere.
func New(s store.Store, d vpath.Delimiter, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		delim:     d,
		loc:       state.New(d),
		conns:     make(map[connKey]store.Conn),
		pageSize:  store.DefaultPageSize,
		chunkSize: store.DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location returns a copy of the current location.
func (e *Engine) Location() state.Location {
	return e.loc
}

// Delimiter returns the path delimiter in use.
func (e *Engine) Delimiter() vpath.Delimiter {
	return e.delim
}

// ListRegions returns the regions advertised by the backend.
func (e *Engine) ListRegions(ctx context.Context) ([]string, error) {
	return e.store.ListRegions(ctx)
}

// ChangeRegion connects to region name and moves there, resetting container
// and prefix. Region names match case-insensitively. An empty name leaves
// the current region.
//
// Connections are cached per region and transport; switching back to a
// cached connection makes no backend calls. On failure the location is
// unchanged.
func (e *Engine) ChangeRegion(ctx context.Context, name string, secure bool) error {
	if name == "" {
		e.loc.ClearRegion()
		e.conn = nil
		return nil
	}

	for key, conn := range e.conns {
		if key.secure == secure && strings.EqualFold(key.region, name) {
			e.conn = conn
			e.loc.SetRegion(key.region, secure)
			return nil
		}
	}

	regions, err := e.store.ListRegions(ctx)
	if err != nil {
		return fmt.Errorf("listing regions: %w", err)
	}
	canonical := ""
	for _, r := range regions {
		if strings.EqualFold(r, name) {
			canonical = r
			break
		}
	}
	if canonical == "" {
		return fmt.Errorf("%w: %s", store.ErrNoSuchRegion, name)
	}

	conn, err := e.store.Connect(ctx, canonical, secure)
	if err != nil {
		observability.CLILogger.Debug("Connect failed",
			zap.String("region", canonical),
			zap.Bool("secure", secure),
			zap.Error(err))
		if errors.Is(err, store.ErrAuthenticationFailed) || errors.Is(err, store.ErrRegionUnreachable) {
			return err
		}
		return fmt.Errorf("%w: %s: %w", store.ErrRegionUnreachable, canonical, err)
	}

	observability.CLILogger.Debug("Connected",
		zap.String("region", canonical),
		zap.Bool("secure", secure))
	e.conns[connKey{region: canonical, secure: secure}] = conn
	e.conn = conn
	e.loc.SetRegion(canonical, secure)
	return nil
}

// ChangeContainer moves to the top of container name after checking that it
// exists. An empty name leaves the current container.
func (e *Engine) ChangeContainer(ctx context.Context, name string) error {
	if name == "" {
		e.loc.ClearContainer()
		return nil
	}
	if e.conn == nil {
		return ErrNoRegion
	}
	if err := e.conn.HeadContainer(ctx, name); err != nil {
		return err
	}
	return e.loc.SetContainer(name)
}

// ChangePrefix applies segment to the current prefix. An empty segment
// returns to the container root.
func (e *Engine) ChangePrefix(segment string) error {
	return e.loc.ChangePrefix(segment)
}

func (e *Engine) ClearRegion() {
	e.loc.ClearRegion()
	e.conn = nil
}

func (e *Engine) ClearContainer() { e.loc.ClearContainer() }
func (e *Engine) ClearPrefix()    { e.loc.ClearPrefix() }

// ResolveTarget resolves raw against the current location. Every command
// that takes a path resolves it here.
func (e *Engine) ResolveTarget(raw string) (container, prefix string) {
	return e.delim.Resolve(e.loc.Path(), raw)
}

// ChangeDirectory implements cd: raw is resolved against the current
// location and the session moves to the resulting container and prefix.
// An empty raw leaves the current container. Prefixes need not exist, but
// a prefix naming an existing object is refused.
func (e *Engine) ChangeDirectory(ctx context.Context, raw string) error {
	if e.conn == nil {
		return ErrNoRegion
	}
	if raw == "" {
		e.loc.ClearContainer()
		return nil
	}

	container, prefix := e.ResolveTarget(raw)
	next := e.loc
	if container == "" {
		next.ClearContainer()
		e.loc = next
		return nil
	}

	if container != next.Container {
		if err := e.conn.HeadContainer(ctx, container); err != nil {
			return err
		}
		if err := next.SetContainer(container); err != nil {
			return err
		}
	}

	if key := strings.TrimSuffix(prefix, string(e.delim)); key != "" && !e.delim.IsDir(prefix) {
		attrs, err := e.conn.ObjectAttrs(ctx, container, key)
		switch {
		case err == nil && !attrs.IsPseudoDir():
			return fmt.Errorf("%w: %s", ErrNotADirectory, e.delim.Abs(container, "")+key)
		case err != nil && !errors.Is(err, store.ErrNoSuchObject):
			return err
		}
	}

	if err := next.SetPrefix(prefix); err != nil {
		return err
	}
	e.loc = next
	return nil
}
