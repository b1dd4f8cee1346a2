// Package tui holds the terminal pieces of the shell: the prompt, the line
// editor and transfer progress.
package tui

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/dorkyrobot/cftp/internal/output"
)

// ProgressFunc is called as bytes are transferred. total is negative when
// the size is unknown.
type ProgressFunc func(transferred, total int64)

// NewProgressFunc returns a ProgressFunc that renders a progress bar to stderr.
// If stderr is not a TTY, returns nil (no progress output).
func NewProgressFunc(label string) ProgressFunc {
	return newProgressFunc(os.Stderr, label, output.IsTTY(os.Stderr))
}

func newProgressFunc(w io.Writer, label string, tty bool) ProgressFunc {
	if !tty {
		return nil
	}

	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(30),
		progress.WithoutPercentage(),
	)

	return func(transferred, total int64) {
		if total <= 0 {
			fmt.Fprintf(w, "\r%s: %s", label, output.FormatSize(uint64(transferred)))
			return
		}

		pct := float64(transferred) / float64(total)
		if pct > 1 {
			pct = 1
		}

		fmt.Fprintf(w, "\r%s: %s %3.0f%% %s/%s",
			label, bar.ViewAs(pct), pct*100,
			output.FormatSize(uint64(transferred)),
			output.FormatSize(uint64(total)),
		)

		if transferred >= total {
			fmt.Fprintln(w)
		}
	}
}

// CopyWithProgress copies r to w in chunks of up to size bytes, reporting
// progress after each write and stopping early when ctx is cancelled.
func CopyWithProgress(ctx context.Context, w io.Writer, r io.Reader, total int64, size int, fn ProgressFunc) (int64, error) {
	if size <= 0 {
		size = 32 * 1024
	}
	buf := make([]byte, size)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		n, rerr := r.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
			if m < n {
				return written, io.ErrShortWrite
			}
			if fn != nil {
				fn(written, total)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
