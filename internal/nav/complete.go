package nav

import (
	"context"
	"strings"

	"github.com/dorkyrobot/cftp/internal/listing"
)

// Complete returns the completions of a partially typed path. Each candidate
// is a full replacement for partial; directories and containers end with the
// delimiter.
func (e *Engine) Complete(ctx context.Context, partial string) ([]string, error) {
	if e.conn == nil {
		return nil, nil
	}
	d := e.delim
	if partial == string(d) {
		partial = ""
	}
	if _, last := d.Split(partial); last == "." || last == ".." {
		return nil, nil
	}

	base := ""
	if i := strings.LastIndex(partial, string(d)); i >= 0 {
		base = partial[:i+len(d)]
	}

	container, location := e.ResolveTarget(partial)
	if location != "" && (partial == "" || d.IsDir(partial)) && !d.IsDir(location) {
		location += string(d)
	}
	if location == "" && (container == "" || (!d.IsDir(partial) && partial != "")) {
		entries, err := listing.Containers(ctx, e.containerSource())
		if err != nil {
			return nil, err
		}
		var out []string
		for _, c := range entries {
			if strings.HasPrefix(c.Name, container) {
				out = append(out, base+c.Name+string(d))
			}
		}
		return out, nil
	}

	head, leaf := d.Split(location)
	prefix := ""
	if head != "" && head != string(d) {
		prefix = head + string(d)
	}

	entries, err := e.directory(ctx, container, prefix)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name, leaf) {
			out = append(out, base+entry.DisplayName(d))
		}
	}
	return out, nil
}
