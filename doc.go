// Package scar implements the SCAR ("Seekable Compressed ARchive") format:
// a PAX/USTAR-compatible entry stream followed by a compressed trailer that
// lets a reader random-access any entry without decompressing the whole
// file.
//
// The engine is split across a handful of packages, leaves first:
//
//   - [github.com/scar-format/scar/ioadapt] — stream adapters shared by every parser.
//   - [github.com/scar-format/scar/codec] — the compressor/decompressor abstraction.
//   - [github.com/scar-format/scar/ustar] — the 512-byte USTAR header block.
//   - [github.com/scar-format/scar/pax] — PAX extended-header syntax and entry framing.
//   - [github.com/scar-format/scar/archive] — the writer and reader built on top of those.
//
// This root package holds the types shared across all of them: [Meta],
// [IndexEntry], [Checkpoint], and the [Error]/[ErrorKind] domain error.
package scar

// IndexEntry is one row emitted by the archive's index iterator: an
// entry's type, path, and the byte offset inside the decompressed entry
// stream at which its PAX header begins.
//
// The iterator returns an IndexEntry by value with a freshly allocated
// Path, so it stays valid across later calls to the iterator.
type IndexEntry struct {
	Type   FileType
	Path   string
	Offset uint64
}

// Checkpoint records a codec resync point: the compressed byte offset a
// fresh decompressor can start from, paired with the uncompressed byte
// offset it corresponds to.
type Checkpoint struct {
	Compressed, Uncompressed uint64
}
