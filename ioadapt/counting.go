// Package ioadapt provides the byte-oriented stream adapters the archive
// engine is built from: counting wrappers, a seekable memory reader, a
// growable memory buffer, and a block-chunked reader with one-byte
// lookahead.
//
// These compose by embedding, not inheritance, over the stdlib io.Reader,
// io.Writer, and io.Seeker interfaces, which stand in directly for the
// format's Reader/Writer/Seeker capability contracts.
package ioadapt

import "io"

// CountingReader wraps an io.Reader and tracks the cumulative number of
// bytes read through it.
type CountingReader struct {
	R     io.Reader
	Count uint64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{R: r}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.Count += uint64(n)
	return n, err
}

// CountingWriter wraps an io.Writer and tracks the cumulative number of
// bytes written through it.
type CountingWriter struct {
	W     io.Writer
	Count uint64
}

// NewCountingWriter wraps w.
func NewCountingWriter(w io.Writer) *CountingWriter {
	return &CountingWriter{W: w}
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.W.Write(p)
	c.Count += uint64(n)
	return n, err
}
