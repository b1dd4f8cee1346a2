// Package state holds the navigation location of a session: the selected
// region, container and prefix.
package state

import (
	"errors"
	"strings"

	"github.com/dorkyrobot/cftp/internal/vpath"
)

var (
	ErrNoRegion    = errors.New("no region selected")
	ErrNoContainer = errors.New("no container selected")
)

// Location is the current position in the region → container → prefix
// hierarchy. An empty field means "not set".
//
// The transition methods keep two invariants: a prefix implies a container,
// and a container implies a region. Prefix never has a leading or trailing
// delimiter.
type Location struct {
	Region    string
	Secure    bool
	Container string
	Prefix    string
	Delimiter vpath.Delimiter
}

// New returns an empty location using delimiter d.
func New(d vpath.Delimiter) Location {
	return Location{Delimiter: d}
}

// SetRegion moves to region, clearing container and prefix. An empty name
// clears the region as well.
func (l *Location) SetRegion(name string, secure bool) {
	if name == "" {
		l.ClearRegion()
		return
	}
	l.Region = name
	l.Secure = secure
	l.ClearContainer()
}

// SetContainer moves to container at the top of its namespace. An empty name
// clears container and prefix.
func (l *Location) SetContainer(name string) error {
	if name == "" {
		l.ClearContainer()
		return nil
	}
	if l.Region == "" {
		return ErrNoRegion
	}
	l.Container = name
	l.Prefix = ""
	return nil
}

// ChangePrefix applies segment to the current prefix the way cd applies a
// path to the working directory. Segments starting with the delimiter are
// anchored at the container root. An empty segment clears the prefix.
func (l *Location) ChangePrefix(segment string) error {
	if segment == "" {
		l.ClearPrefix()
		return nil
	}
	if l.Container == "" {
		return ErrNoContainer
	}

	d := l.Delimiter
	p := d.Normalize(d.Join(string(d)+l.Prefix, segment))
	if p == string(d) {
		l.Prefix = ""
		return nil
	}
	l.Prefix = strings.TrimPrefix(p, string(d))
	return nil
}

// SetPrefix replaces the prefix with p, interpreted from the container root.
func (l *Location) SetPrefix(p string) error {
	if p == "" {
		l.ClearPrefix()
		return nil
	}
	return l.ChangePrefix(string(l.Delimiter) + p)
}

func (l *Location) ClearRegion() {
	l.Region = ""
	l.Secure = false
	l.ClearContainer()
}

func (l *Location) ClearContainer() {
	l.Container = ""
	l.ClearPrefix()
}

func (l *Location) ClearPrefix() {
	l.Prefix = ""
}

// Path renders the location as an absolute display path ending in the
// delimiter, e.g. "/container/a/b/".
func (l Location) Path() string {
	return l.Delimiter.Abs(l.Container, l.Prefix)
}

// Valid reports whether the location satisfies its invariants.
func (l Location) Valid() bool {
	if l.Prefix != "" && l.Container == "" {
		return false
	}
	if l.Container != "" && l.Region == "" {
		return false
	}
	d := string(l.Delimiter)
	return !strings.HasPrefix(l.Prefix, d) && !strings.HasSuffix(l.Prefix, d)
}
