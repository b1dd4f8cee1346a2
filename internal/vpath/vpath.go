// Package vpath implements path algebra over a flat, delimiter-keyed object
// namespace. It mirrors POSIX path handling, except that the separator is an
// arbitrary single character and the root is "no container selected" rather
// than a real directory.
//
// Nothing in this package performs I/O.
package vpath

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Delimiter is the single character separating path components.
type Delimiter string

// Default is the delimiter used when none is configured.
const Default Delimiter = "/"

const (
	dot    = "."
	dotdot = ".."
)

// Validate reports whether d is exactly one character.
func (d Delimiter) Validate() error {
	if utf8.RuneCountInString(string(d)) != 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", string(d))
	}
	if string(d) == dot {
		return fmt.Errorf("delimiter %q is reserved for path components", string(d))
	}
	return nil
}

func (d Delimiter) String() string { return string(d) }

// IsAbs reports whether p starts with the delimiter.
func (d Delimiter) IsAbs(p string) bool {
	return strings.HasPrefix(p, string(d))
}

// IsDir reports whether p ends with the delimiter, the conventional marker of
// directory intent.
func (d Delimiter) IsDir(p string) bool {
	return strings.HasSuffix(p, string(d))
}

// Normalize collapses empty, "." and resolvable ".." components.
//
// A ".." is kept verbatim when the path is relative and nothing precedes it,
// or when the previous component is itself "..". A ".." that would climb
// above an absolute root is dropped. An empty result is ".".
func (d Delimiter) Normalize(p string) string {
	if p == "" {
		return dot
	}
	abs := d.IsAbs(p)

	var comps []string
	for _, c := range strings.Split(p, string(d)) {
		switch {
		case c == "" || c == dot:
			continue
		case c != dotdot,
			!abs && len(comps) == 0,
			len(comps) > 0 && comps[len(comps)-1] == dotdot:
			comps = append(comps, c)
		case len(comps) > 0:
			comps = comps[:len(comps)-1]
		}
	}

	out := strings.Join(comps, string(d))
	if abs {
		out = string(d) + out
	}
	if out == "" {
		return dot
	}
	return out
}

// Join appends parts to base, inserting exactly one delimiter between them.
// A part that starts with the delimiter discards everything before it.
func (d Delimiter) Join(base string, parts ...string) string {
	out := base
	for _, p := range parts {
		switch {
		case d.IsAbs(p):
			out = p
		case out == "" || d.IsDir(out):
			out += p
		default:
			out += string(d) + p
		}
	}
	return out
}

// Split returns everything after the final delimiter as tail and the rest as
// head. Trailing delimiters are stripped from head unless head consists only
// of delimiters.
func (d Delimiter) Split(p string) (head, tail string) {
	i := strings.LastIndex(p, string(d)) + len(d)
	if i < len(d) {
		i = 0
	}
	head, tail = p[:i], p[i:]
	if head != "" && strings.Trim(head, string(d)) != "" {
		head = strings.TrimRight(head, string(d))
	}
	return head, tail
}

// Components returns the non-empty, non-"." components of p.
func (d Delimiter) Components(p string) []string {
	var comps []string
	for _, c := range strings.Split(p, string(d)) {
		if c == "" || c == dot {
			continue
		}
		comps = append(comps, c)
	}
	return comps
}

// Resolve joins input onto the absolute path current and splits the
// normalized result into a container and a prefix. Either may be empty.
//
// A trailing delimiter on input is carried over to a non-empty prefix so that
// callers can tell "list this directory" from "fetch this object".
func (d Delimiter) Resolve(current, input string) (container, prefix string) {
	comps := d.Components(d.Normalize(d.Join(current, input)))
	if len(comps) == 0 {
		return "", ""
	}
	container = comps[0]
	prefix = strings.Join(comps[1:], string(d))
	if prefix != "" && d.IsDir(input) {
		prefix += string(d)
	}
	return container, prefix
}

// Leaf returns the last component of a key, ignoring trailing delimiters.
func (d Delimiter) Leaf(key string) string {
	key = strings.TrimRight(key, string(d))
	if i := strings.LastIndex(key, string(d)); i >= 0 {
		return key[i+len(d):]
	}
	return key
}

// Abs renders container and prefix as an absolute display path that always
// ends with the delimiter.
func (d Delimiter) Abs(container, prefix string) string {
	out := string(d)
	if container == "" {
		return out
	}
	out += container + string(d)
	if p := strings.Trim(prefix, string(d)); p != "" {
		out += p + string(d)
	}
	return out
}
