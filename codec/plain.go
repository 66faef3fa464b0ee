package codec

import "io"

func init() {
	register(plainCodec{})
}

// plainCodec is the identity codec: every byte passes through untouched,
// so Flush is a no-op and every byte offset is already a resync point.
//
// There is no third-party "null compressor" to reach for here; an identity
// codec is a handful of lines that only ever calls through to the
// underlying reader or writer.
type plainCodec struct{}

func (plainCodec) Name() string { return "plain" }

// Magic is the literal tail-stream header, since plain has no header bytes
// of its own to scan for; the tail block's own prefix doubles as the
// codec's magic.
func (plainCodec) Magic() []byte { return []byte("SCAR-TAIL\n") }

func (plainCodec) EOFMarker() []byte { return []byte("SCAR-EOF\n") }

func (plainCodec) NewCompressor(sink io.Writer, level int) (Compressor, error) {
	return &plainCompressor{sink: sink}, nil
}

func (plainCodec) NewDecompressor(source io.Reader) (Decompressor, error) {
	return source, nil
}

type plainCompressor struct {
	sink io.Writer
}

func (c *plainCompressor) Write(p []byte) (int, error) { return c.sink.Write(p) }
func (c *plainCompressor) Flush() error                { return nil }
func (c *plainCompressor) Finish() error               { return nil }
