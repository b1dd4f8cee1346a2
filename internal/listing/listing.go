// Package listing drains paginated backend sources and merges them into a
// single ordered listing.
package listing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dorkyrobot/cftp/internal/observability"
	"github.com/dorkyrobot/cftp/internal/store"
	"github.com/dorkyrobot/cftp/internal/vpath"
)

// PageFunc fetches the page of entries that follows marker. An empty marker
// requests the first page.
type PageFunc[T any] func(ctx context.Context, marker string) ([]T, error)

// Entry is one display-ready line of a listing.
type Entry struct {
	// Name is the leaf component with delimiters stripped.
	Name string

	IsContainer       bool
	IsPseudoDirectory bool

	Size  *uint64
	Count *uint64

	ETag         string
	ContentType  string
	LastModified time.Time
}

// DisplayName returns Name with a trailing delimiter for pseudo-directories.
func (e Entry) DisplayName(d vpath.Delimiter) string {
	if e.IsPseudoDirectory {
		return e.Name + string(d)
	}
	return e.Name
}

// Drain requests pages from fetch until it is exhausted and returns every
// entry in order.
//
// Draining stops on an empty page, or when a page ends with the same name
// as the marker that requested it; that page makes no progress and its
// entries are discarded.
func Drain[T any](ctx context.Context, fetch PageFunc[T], name func(T) string) ([]T, error) {
	var (
		all    []T
		marker string
		pages  int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := fetch(ctx, marker)
		if err != nil {
			return nil, err
		}
		pages++
		if len(page) == 0 {
			break
		}

		last := name(page[len(page)-1])
		if pages > 1 && last == marker {
			observability.CLILogger.Debug("Listing made no progress; stopping",
				zap.String("marker", marker),
				zap.Int("pages", pages))
			break
		}

		all = append(all, page...)
		marker = last
	}

	observability.CLILogger.Debug("Drained listing source",
		zap.Int("pages", pages),
		zap.Int("entries", len(all)))
	return all, nil
}

// Merge drains the pseudo-directory source and then the object source and
// returns their entries, directories first.
func Merge(ctx context.Context, d vpath.Delimiter, dirs, objects PageFunc[store.ObjectAttrs]) ([]Entry, error) {
	attrName := func(a store.ObjectAttrs) string { return a.Name }

	dirAttrs, err := Drain(ctx, dirs, attrName)
	if err != nil {
		return nil, err
	}
	objAttrs, err := Drain(ctx, objects, attrName)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirAttrs)+len(objAttrs))
	for _, a := range dirAttrs {
		entries = append(entries, FromObject(a, d))
	}
	for _, a := range objAttrs {
		entries = append(entries, FromObject(a, d))
	}
	return entries, nil
}

// Containers drains a container source into container entries.
func Containers(ctx context.Context, fetch PageFunc[store.ContainerAttrs]) ([]Entry, error) {
	attrs, err := Drain(ctx, fetch, func(c store.ContainerAttrs) string { return c.Name })
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(attrs))
	for _, c := range attrs {
		entries = append(entries, Entry{
			Name:        c.Name,
			IsContainer: true,
			Size:        c.Bytes,
			Count:       c.Count,
		})
	}
	return entries, nil
}

// FromObject converts backend attributes into an entry named by the key's
// leaf component.
func FromObject(a store.ObjectAttrs, d vpath.Delimiter) Entry {
	e := Entry{
		Name:              d.Leaf(a.Name),
		IsPseudoDirectory: a.IsPseudoDir(),
		ETag:              a.ETag,
		ContentType:       a.ContentType,
		LastModified:      a.LastModified,
	}
	if !e.IsPseudoDirectory {
		size := a.Size
		e.Size = &size
	}
	return e
}
