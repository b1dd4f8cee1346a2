// Package output renders listings and object metadata for the shell.
package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dorkyrobot/cftp/internal/listing"
	"github.com/dorkyrobot/cftp/internal/store"
	"github.com/dorkyrobot/cftp/internal/vpath"
)

// IsTTY returns true if the given file is a terminal.
func IsTTY(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// FormatSize returns a human-readable size string in binary units.
func FormatSize(bytes uint64) string {
	return humanize.IBytes(bytes)
}

// Options controls how a listing is rendered.
type Options struct {
	// Long renders one aligned row per entry instead of a single line of
	// names.
	Long bool

	// Human renders sizes with FormatSize. Only meaningful with Long.
	Human bool

	// Header prints column titles. Only meaningful with Long.
	Header bool

	Delimiter vpath.Delimiter
}

// Write renders entries to w. An empty listing writes nothing.
//
// Container rows have the columns count, bytes and name; object rows have
// etag, content type, bytes, last modified and name.
func Write(w io.Writer, entries []listing.Entry, opts Options) error {
	if len(entries) == 0 {
		return nil
	}
	d := opts.Delimiter
	if d == "" {
		d = vpath.Default
	}

	if !opts.Long {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.DisplayName(d)
		}
		_, err := fmt.Fprintln(w, strings.Join(names, "  "))
		return err
	}

	containers := entries[0].IsContainer
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if opts.Header {
		if containers {
			fmt.Fprintln(tw, "COUNT\tBYTES\tNAME")
		} else {
			fmt.Fprintln(tw, "ETAG\tCONTENT TYPE\tBYTES\tLAST MODIFIED\tNAME")
		}
	}
	for _, e := range entries {
		size := formatBytes(e.Size, opts.Human)
		if e.IsContainer {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", formatCount(e.Count), size, e.DisplayName(d))
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			orDash(e.ETag),
			orDash(e.ContentType),
			size,
			formatDate(e.LastModified),
			e.DisplayName(d),
		)
	}
	return tw.Flush()
}

// FormatStat writes object metadata to w.
func FormatStat(w io.Writer, path string, obj *store.ObjectAttrs, tty bool) {
	if tty {
		fmt.Fprintf(w, "       Key: %s\n", path)
		fmt.Fprintf(w, "      Size: %s (%d bytes)\n", FormatSize(obj.Size), obj.Size)
		if obj.StorageClass != "" {
			fmt.Fprintf(w, "     Class: %s\n", obj.StorageClass)
		}
		fmt.Fprintf(w, "  Modified: %s\n", formatDate(obj.LastModified))
		fmt.Fprintf(w, "      Type: %s\n", obj.ContentType)
		fmt.Fprintf(w, "      ETag: %s\n", obj.ETag)
		if obj.RestoreStatus != "" {
			fmt.Fprintf(w, "   Restore: %s\n", obj.RestoreStatus)
		}
	} else {
		fmt.Fprintf(w, "key=%s\n", path)
		fmt.Fprintf(w, "size=%d\n", obj.Size)
		if obj.StorageClass != "" {
			fmt.Fprintf(w, "class=%s\n", obj.StorageClass)
		}
		fmt.Fprintf(w, "modified=%s\n", formatDate(obj.LastModified))
		fmt.Fprintf(w, "type=%s\n", obj.ContentType)
		fmt.Fprintf(w, "etag=%s\n", obj.ETag)
		if obj.RestoreStatus != "" {
			fmt.Fprintf(w, "restore=%s\n", obj.RestoreStatus)
		}
	}
}

func formatBytes(n *uint64, human bool) string {
	switch {
	case n == nil:
		return "-"
	case human:
		return FormatSize(*n)
	default:
		return strconv.FormatUint(*n, 10)
	}
}

func formatCount(n *uint64) string {
	if n == nil {
		return "-"
	}
	return strconv.FormatUint(*n, 10)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
