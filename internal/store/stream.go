package store

import (
	"bufio"
	"io"
)

type chunkReader struct {
	*bufio.Reader
	body io.Closer
}

// NewChunkReader buffers body so that reads are served in chunkSize pieces
// regardless of how the transport frames it.
func NewChunkReader(body io.ReadCloser, chunkSize int) io.ReadCloser {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &chunkReader{Reader: bufio.NewReaderSize(body, chunkSize), body: body}
}

func (r *chunkReader) Close() error {
	return r.body.Close()
}
