package ioadapt

import "io"

// BlockSize is the fixed chunk size BlockReader pulls from its inner
// reader, matching the format's 512-byte header block size.
const BlockSize = 512

// BlockReader pulls fixed-size chunks from an inner reader into an internal
// buffer and exposes one-byte lookahead (Peek/Consume) plus bulk Read and
// Skip. Every text parser in this module (PAX extended-header syntax, the
// index and checkpoint row grammars) is built on this lookahead, since all
// three grammars are self-delimiting records that must be parsed without
// overreading into the next one.
type BlockReader struct {
	r        io.Reader
	buf      []byte
	pos, end int
	eof      bool
}

// NewBlockReader wraps r.
func NewBlockReader(r io.Reader) *BlockReader {
	return &BlockReader{r: r, buf: make([]byte, BlockSize)}
}

// fill pulls one more chunk into buf if the buffer is exhausted and the
// inner reader has not yet signaled EOF.
func (b *BlockReader) fill() error {
	if b.pos < b.end || b.eof {
		return nil
	}
	n, err := io.ReadFull(b.r, b.buf)
	if n > 0 {
		b.pos, b.end = 0, n
	}
	switch {
	case err == nil:
		return nil
	case err == io.ErrUnexpectedEOF:
		b.eof = true
		return nil
	case err == io.EOF:
		b.eof = true
		return nil
	default:
		return err
	}
}

// Peek returns the next unconsumed byte without advancing. ok is false at
// end of stream.
func (b *BlockReader) Peek() (byte, bool, error) {
	if err := b.fill(); err != nil {
		return 0, false, err
	}
	if b.pos >= b.end {
		return 0, false, nil
	}
	return b.buf[b.pos], true, nil
}

// Consume advances past the byte last returned by Peek.
func (b *BlockReader) Consume() {
	if b.pos < b.end {
		b.pos++
	}
}

// Read implements io.Reader, draining the internal buffer before pulling
// more from the inner reader directly (bypassing re-chunking once the
// lookahead buffer is empty, since bulk copies need not go one block at a
// time).
func (b *BlockReader) Read(p []byte) (int, error) {
	if b.pos < b.end {
		n := copy(p, b.buf[b.pos:b.end])
		b.pos += n
		return n, nil
	}
	if b.eof {
		return 0, io.EOF
	}
	return b.r.Read(p)
}

// Skip discards exactly n bytes, erroring on short input.
func (b *BlockReader) Skip(n int64) error {
	var tmp [BlockSize]byte
	for n > 0 {
		chunk := int64(len(tmp))
		if n < chunk {
			chunk = n
		}
		nr, err := io.ReadFull(b, tmp[:chunk])
		n -= int64(nr)
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadByte reads and consumes exactly one byte, erroring at EOF. It
// satisfies io.ByteReader.
func (b *BlockReader) ReadByte() (byte, error) {
	c, ok, err := b.Peek()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, io.EOF
	}
	b.Consume()
	return c, nil
}

// ReadUntil reads and consumes bytes up to and including the first
// occurrence of delim, returning the bytes excluding delim. It errors with
// io.EOF if the stream ends before delim is found.
func (b *BlockReader) ReadUntil(delim byte) ([]byte, error) {
	var out []byte
	for {
		c, ok, err := b.Peek()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, io.EOF
		}
		b.Consume()
		if c == delim {
			return out, nil
		}
		out = append(out, c)
	}
}

// ReadExact reads and consumes exactly n bytes.
func (b *BlockReader) ReadExact(n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(b, out); err != nil {
		return nil, err
	}
	return out, nil
}
