package nav

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/dorkyrobot/cftp/internal/listing"
	"github.com/dorkyrobot/cftp/internal/observability"
	"github.com/dorkyrobot/cftp/internal/store"
)

// Kind classifies what a resolved path denotes.
type Kind int

const (
	KindRegion Kind = iota
	KindContainer
	KindDirectory
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindRegion:
		return "region"
	case KindContainer:
		return "container"
	case KindDirectory:
		return "directory"
	case KindObject:
		return "object"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Target is a classified (container, key) pair.
type Target struct {
	Kind      Kind
	Container string
	Key       string

	// Attrs is set for KindObject.
	Attrs *store.ObjectAttrs
}

// Classify decides what (container, key) denotes, checking in order:
//
//  1. the container exists, else ErrNoSuchContainer;
//  2. a key ending in the delimiter is a directory, with no object lookup;
//  3. the key exists, else ErrNoSuchObject;
//  4. the key is not a pseudo-directory, else ErrObjectIsSubDirectory.
//
// When the fourth check fails the returned Target is still populated with
// KindDirectory.
func (e *Engine) Classify(ctx context.Context, container, key string) (Target, error) {
	t := Target{Kind: KindRegion, Container: container, Key: key}
	if e.conn == nil {
		return t, ErrNoRegion
	}
	if container == "" {
		return t, nil
	}

	if err := e.conn.HeadContainer(ctx, container); err != nil {
		return t, err
	}
	t.Kind = KindContainer
	if key == "" {
		return t, nil
	}

	t.Kind = KindDirectory
	if e.delim.IsDir(key) {
		return t, nil
	}

	attrs, err := e.conn.ObjectAttrs(ctx, container, key)
	if err != nil {
		return t, err
	}
	if attrs.IsPseudoDir() {
		return t, fmt.Errorf("%w: %s", store.ErrObjectIsSubDirectory, e.displayKey(container, key))
	}

	t.Kind = KindObject
	t.Attrs = attrs
	observability.CLILogger.Debug("Classified target",
		zap.String("container", container),
		zap.String("key", key),
		zap.Stringer("kind", t.Kind))
	return t, nil
}

// Listing returns the entries at (container, prefix): the region's
// containers, a single object, or the merged pseudo-directories and objects
// under a directory.
func (e *Engine) Listing(ctx context.Context, container, prefix string) ([]listing.Entry, error) {
	t, err := e.Classify(ctx, container, prefix)
	switch {
	case errors.Is(err, store.ErrObjectIsSubDirectory):
		return e.directory(ctx, container, prefix+string(e.delim))
	case err != nil:
		return nil, err
	}

	switch t.Kind {
	case KindRegion:
		return listing.Containers(ctx, e.containerSource())
	case KindObject:
		return []listing.Entry{listing.FromObject(*t.Attrs, e.delim)}, nil
	default:
		return e.directory(ctx, container, prefix)
	}
}

// Fetch opens the object at (container, key) for reading and reports its
// total size.
func (e *Engine) Fetch(ctx context.Context, container, key string) (io.ReadCloser, int64, error) {
	t, err := e.Classify(ctx, container, key)
	if err != nil {
		return nil, 0, err
	}
	switch t.Kind {
	case KindRegion, KindContainer:
		return nil, 0, fmt.Errorf("%w: %s", ErrNotAnObject, e.displayKey(container, key))
	case KindDirectory:
		return nil, 0, fmt.Errorf("%w: %s", store.ErrObjectIsSubDirectory, e.displayKey(container, key))
	}

	if t.Attrs.IsArchived() {
		return nil, 0, fmt.Errorf("%w: %s is in %s storage", store.ErrObjectArchived, e.displayKey(container, key), t.Attrs.StorageClass)
	}
	return e.conn.OpenObject(ctx, container, key, e.chunkSize)
}

func (e *Engine) directory(ctx context.Context, container, prefix string) ([]listing.Entry, error) {
	return listing.Merge(ctx, e.delim,
		e.objectSource("ListPseudoDirectories", container, prefix, e.conn.ListPseudoDirectories),
		e.objectSource("ListObjects", container, prefix, e.conn.ListObjects),
	)
}

type objectLister func(ctx context.Context, container, prefix, marker string, limit int) ([]store.ObjectAttrs, error)

func (e *Engine) objectSource(op, container, prefix string, list objectLister) listing.PageFunc[store.ObjectAttrs] {
	return func(ctx context.Context, marker string) ([]store.ObjectAttrs, error) {
		page, err := list(ctx, container, prefix, marker, e.pageSize)
		observability.CLILogger.Debug("Listing page",
			zap.String("op", op),
			zap.String("container", container),
			zap.String("prefix", prefix),
			zap.String("marker", marker),
			zap.Int("count", len(page)),
			zap.Error(err))
		return page, err
	}
}

func (e *Engine) containerSource() listing.PageFunc[store.ContainerAttrs] {
	return func(ctx context.Context, marker string) ([]store.ContainerAttrs, error) {
		page, err := e.conn.ListContainers(ctx, marker, e.pageSize)
		observability.CLILogger.Debug("Listing page",
			zap.String("op", "ListContainers"),
			zap.String("marker", marker),
			zap.Int("count", len(page)),
			zap.Error(err))
		return page, err
	}
}

func (e *Engine) displayKey(container, key string) string {
	return string(e.delim) + container + string(e.delim) + key
}
