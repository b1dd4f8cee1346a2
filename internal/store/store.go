// Package store defines the object-store collaborator the navigation engine
// talks to. Backends (S3, MinIO, in-memory) implement Store and Conn; the
// engine never sees SDK types.
package store

import (
	"context"
	"io"
	"time"
)

// PseudoDirType is the content type reported for synthetic pseudo-directory
// entries.
const PseudoDirType = "pseudo/subdir"

// DefaultPageSize is the page size requested when the caller passes zero.
const DefaultPageSize = 1000

// DefaultChunkSize is the read buffer used for object streams.
const DefaultChunkSize = 64 * 1024

// ObjectAttrs describes a stored object or a pseudo-directory.
type ObjectAttrs struct {
	// Name is the full key. Pseudo-directory names end with the delimiter.
	Name string

	Size         uint64
	ETag         string
	ContentType  string
	LastModified time.Time

	// StorageClass and RestoreStatus are only reported by archive-capable
	// backends.
	StorageClass  string
	RestoreStatus string
}

// Restore states of an archived object. An empty RestoreStatus means no
// restore has been requested.
const (
	RestoreInProgress = "in-progress"
	RestoreAvailable  = "available"
)

// IsPseudoDir reports whether the attrs describe a pseudo-directory.
func (a ObjectAttrs) IsPseudoDir() bool {
	return a.ContentType == PseudoDirType
}

// IsArchived reports whether the object must be restored before it can be
// read.
func (a ObjectAttrs) IsArchived() bool {
	switch a.StorageClass {
	case "GLACIER", "DEEP_ARCHIVE":
		return a.RestoreStatus != RestoreAvailable
	}
	return false
}

// ContainerAttrs describes a container. Bytes and Count are nil when the
// backend does not report usage.
type ContainerAttrs struct {
	Name  string
	Bytes *uint64
	Count *uint64
}

// Store is the entry point to a backend: it advertises regions and opens
// connections to them.
type Store interface {
	// ListRegions returns the regions the backend advertises.
	ListRegions(ctx context.Context) ([]string, error)

	// Connect opens a connection to region. When secure is true the
	// connection must use the region's private network path.
	Connect(ctx context.Context, region string, secure bool) (Conn, error)
}

// Conn is a connection to one region.
//
// Listing methods return one page of at most limit entries that sort after
// marker. An empty page means the listing is exhausted; backends must not
// return an empty page while entries of the requested kind remain.
type Conn interface {
	Region() string
	Secure() bool

	ListContainers(ctx context.Context, marker string, limit int) ([]ContainerAttrs, error)

	// HeadContainer returns ErrNoSuchContainer when the container is absent.
	HeadContainer(ctx context.Context, name string) error

	// ListObjects returns real objects directly under prefix.
	ListObjects(ctx context.Context, container, prefix, marker string, limit int) ([]ObjectAttrs, error)

	// ListPseudoDirectories returns the common prefixes one delimiter level
	// below prefix, each with ContentType PseudoDirType.
	ListPseudoDirectories(ctx context.Context, container, prefix, marker string, limit int) ([]ObjectAttrs, error)

	// ObjectAttrs returns ErrNoSuchObject when key does not exist. A key that
	// only exists as a common prefix may be reported with PseudoDirType.
	ObjectAttrs(ctx context.Context, container, key string) (*ObjectAttrs, error)

	// OpenObject streams the object body and reports its total size.
	OpenObject(ctx context.Context, container, key string, chunkSize int) (io.ReadCloser, int64, error)
}
