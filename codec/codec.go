// Package codec implements the archive's compressor/decompressor
// abstraction: a byte-stream codec with explicit flush (resync point) and
// finish semantics, plus magic/EOF-marker based format sniffing.
package codec

import "io"

// Compressor writes a compressed byte stream.
//
// Flush produces a resync point: after Flush returns, the bytes written so
// far form a self-contained decodable prefix, and a fresh Decompressor
// created to read any subsequent byte can resume decoding correctly. Finish
// closes the stream, emitting any trailer the format requires; no further
// Write or Flush may follow.
type Compressor interface {
	io.Writer
	Flush() error
	Finish() error
}

// Decompressor reads a compressed byte stream. A Decompressor created at a
// compressed-stream position that was the post-Flush position of some
// Compressor must produce exactly the uncompressed bytes written after that
// flush.
type Decompressor interface {
	io.Reader
}

// Codec is one compression scheme: a factory for compressors and
// decompressors, plus the two byte sequences used to identify the codec
// from the tail of a file (Magic, scanned backward for during tail
// location) and to mark a logically empty stream (EOFMarker, matched as a
// file suffix during format autodetection).
type Codec interface {
	Name() string
	NewCompressor(sink io.Writer, level int) (Compressor, error)
	NewDecompressor(source io.Reader) (Decompressor, error)
	Magic() []byte
	EOFMarker() []byte
}

// registry is populated by each codec implementation's init function.
var registry = map[string]Codec{}

func register(c Codec) {
	registry[c.Name()] = c
}

// ByName looks up a registered codec by name ("gzip", "plain", "xz").
func ByName(name string) (Codec, bool) {
	c, ok := registry[name]
	return c, ok
}

// All returns every registered codec, in no particular order. The reader
// does not use it: it picks one codec with [BySuffix] and scans only for
// that codec's magic.
func All() []Codec {
	out := make([]Codec, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	return out
}

// BySuffix returns the codec whose EOFMarker is a suffix of tail, used to
// identify the codec a file was written with from its trailing bytes. ok is
// false if no registered codec's marker matches.
func BySuffix(tail []byte) (Codec, bool) {
	for _, c := range registry {
		m := c.EOFMarker()
		if len(m) <= len(tail) && string(tail[len(tail)-len(m):]) == string(m) {
			return c, true
		}
	}
	return nil, false
}
