package codec

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/gzip"
)

func init() {
	register(gzipCodec{})
}

// gzipCodec implements Codec over github.com/klauspost/compress/gzip,
// using the multi-member trick for resync: Flush closes the current gzip
// member and opens a new one at the same position in the sink, so a fresh
// [gzip.Reader] pointed at that byte offset decodes independently, and
// (thanks to the reader's default multistream behavior) keeps decoding
// transparently through every member written after it.
type gzipCodec struct{}

func (gzipCodec) Name() string { return "gzip" }

// Magic is the two leading bytes of every gzip member (RFC 1952 §2.3.1),
// used to find candidate member boundaries when scanning for the trailer.
func (gzipCodec) Magic() []byte { return []byte{0x1f, 0x8b} }

var gzipEOFMarker = sync.OnceValue(func() []byte {
	var b bytes.Buffer
	w, err := gzip.NewWriterLevel(&b, gzip.BestSpeed)
	if err != nil {
		panic(err)
	}
	if err := w.Close(); err != nil {
		panic(err)
	}
	return b.Bytes()
})

// EOFMarker is the codec's minimum well-formed empty encoding: an empty
// gzip member. Its exact bytes depend on the compressor's header and
// deflate-of-nothing encoding, so they are computed once (not hardcoded)
// and cached, rather than guessed at as a fixed byte literal.
func (gzipCodec) EOFMarker() []byte { return gzipEOFMarker() }

func (gzipCodec) NewCompressor(sink io.Writer, level int) (Compressor, error) {
	w, err := gzip.NewWriterLevel(sink, level)
	if err != nil {
		return nil, err
	}
	return &gzipCompressor{sink: sink, level: level, w: w}, nil
}

func (gzipCodec) NewDecompressor(source io.Reader) (Decompressor, error) {
	r, err := gzip.NewReader(source)
	if err != nil {
		return nil, err
	}
	r.Multistream(true)
	return r, nil
}

type gzipCompressor struct {
	sink  io.Writer
	level int
	w     *gzip.Writer
}

func (c *gzipCompressor) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

// Flush closes the current gzip member and opens a fresh one, so the byte
// offset immediately after this call is a valid member boundary.
func (c *gzipCompressor) Flush() error {
	if err := c.w.Close(); err != nil {
		return err
	}
	w, err := gzip.NewWriterLevel(c.sink, c.level)
	if err != nil {
		return err
	}
	c.w = w
	return nil
}

func (c *gzipCompressor) Finish() error {
	return c.w.Close()
}
