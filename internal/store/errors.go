package store

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by all backends. Every one of them is recoverable
// by the user; only ErrAuthenticationFailed at startup ends a session.
var (
	ErrNoSuchRegion         = errors.New("no such region")
	ErrRegionUnreachable    = errors.New("region unreachable")
	ErrNoSuchContainer      = errors.New("no such container")
	ErrNoSuchObject         = errors.New("no such object")
	ErrObjectIsSubDirectory = errors.New("object is a sub-directory")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccessDenied         = errors.New("access denied")
	ErrObjectArchived       = errors.New("object is archived")
	ErrUnsupported          = errors.New("unsupported by backend")
)

// Error wraps a backend failure with the operation and target it concerned.
type Error struct {
	// Op is the operation that failed (e.g. "ListObjects").
	Op string

	// Backend names the implementation ("s3", "minio", "memory").
	Backend string

	Container string
	Key       string

	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Key != "":
		return fmt.Sprintf("%s %s: %s/%s: %v", e.Backend, e.Op, e.Container, e.Key, e.Err)
	case e.Container != "":
		return fmt.Sprintf("%s %s: %s: %v", e.Backend, e.Op, e.Container, e.Err)
	default:
		return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
	}
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means a container or object is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoSuchObject) || errors.Is(err, ErrNoSuchContainer)
}

// IsAuthenticationFailed reports whether err means the credentials were
// rejected.
func IsAuthenticationFailed(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed)
}
