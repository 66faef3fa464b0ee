package archive

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/scar-format/scar"
	"github.com/scar-format/scar/ioadapt"
	"github.com/scar-format/scar/pax"
)

// IndexIterator yields [scar.IndexEntry] values in the order they were
// written, applying any 'g' (global) rows it encounters to its own
// tracked global Meta rather than emitting them.
//
// The index stream is compressed as a single unbroken session with no
// internal flush boundaries, so unlike entry-body random access there is
// no way to resume mid-stream against an arbitrary byte offset of a real
// codec's state. Next reopens the stream and replays from the start on
// every call, discarding `consumed` decompressed bytes before parsing
// the next row. This is O(n^2) over a full iteration but keeps the
// decompressor state machine's invariants intact even when the
// underlying [io.Seeker] is shared with unrelated reads between calls,
// as the format allows.
type IndexIterator struct {
	r        *Reader
	consumed uint64
	global   *scar.Meta
	done     bool
	err      error
}

// Iterate returns an iterator positioned before the first index row.
func (r *Reader) Iterate(ctx context.Context) *IndexIterator {
	return &IndexIterator{r: r, global: scar.NewMeta()}
}

// Next advances the iterator and returns the next entry. ok is false with
// a nil error at a clean end of the index stream.
func (it *IndexIterator) Next(ctx context.Context) (entry scar.IndexEntry, ok bool, err error) {
	if it.done {
		return scar.IndexEntry{}, false, it.err
	}

	for {
		br, err := it.reopen()
		if err != nil {
			it.done, it.err = true, err
			return scar.IndexEntry{}, false, err
		}

		rowLen, rowConsumed, eof, err := readRowLen(br)
		if err != nil {
			it.done, it.err = true, err
			return scar.IndexEntry{}, false, &scar.Error{Op: "archive.IndexIterator.Next", Kind: scar.ErrMalformed, Inner: err}
		}
		if eof {
			it.done = true
			return scar.IndexEntry{}, false, nil
		}

		body, err := br.ReadExact(rowLen - rowConsumed)
		if err != nil {
			it.done, it.err = true, err
			return scar.IndexEntry{}, false, &scar.Error{Op: "archive.IndexIterator.Next", Kind: scar.ErrMalformed, Inner: err}
		}
		it.consumed += uint64(rowLen)

		if len(body) == 0 || body[len(body)-1] != '\n' {
			err := errMalformedRow
			it.done, it.err = true, err
			return scar.IndexEntry{}, false, &scar.Error{Op: "archive.IndexIterator.Next", Kind: scar.ErrMalformed, Inner: err}
		}
		typ, rest, err := splitField(body)
		if err != nil {
			it.done, it.err = true, err
			return scar.IndexEntry{}, false, &scar.Error{Op: "archive.IndexIterator.Next", Kind: scar.ErrMalformed, Inner: err}
		}

		// A 'g' row's payload is PAX records, whose final LF is part of
		// the last record.
		if typ == "g" {
			if err := pax.OverlayRecords(rest, it.global); err != nil {
				it.done, it.err = true, err
				return scar.IndexEntry{}, false, &scar.Error{Op: "archive.IndexIterator.Next", Kind: scar.ErrMalformed, Inner: err}
			}
			continue
		}
		rest = rest[:len(rest)-1]

		offsetStr, path, err := splitField(rest)
		if err != nil {
			it.done, it.err = true, err
			return scar.IndexEntry{}, false, &scar.Error{Op: "archive.IndexIterator.Next", Kind: scar.ErrMalformed, Inner: err}
		}
		offset, err := parseUint(offsetStr)
		if err != nil {
			it.done, it.err = true, err
			return scar.IndexEntry{}, false, &scar.Error{Op: "archive.IndexIterator.Next", Kind: scar.ErrMalformed, Inner: err}
		}
		ft, _ := scar.TypeflagFromByte(typ[0])

		return scar.IndexEntry{Type: ft, Path: string(path), Offset: offset}, true, nil
	}
}

// readRowLen reads the decimal "LEN " prefix of an index row. rowConsumed
// is the number of bytes already read off br for the prefix itself (the
// digits plus the space), so the caller knows how many more bytes the
// row body occupies. eof is true, with a zero-valued rowLen, at the end of
// the index (no digit available where a row would start: end of stream, or
// the first byte of the following stream).
func readRowLen(br *ioadapt.BlockReader) (rowLen, rowConsumed int, eof bool, err error) {
	var digits []byte
	for {
		c, ok, err := br.Peek()
		if err != nil {
			return 0, 0, false, err
		}
		if !ok {
			if len(digits) == 0 {
				return 0, 0, true, nil
			}
			return 0, 0, false, errMalformedRow
		}
		if c < '0' || c > '9' {
			break
		}
		digits = append(digits, c)
		br.Consume()
	}
	if len(digits) == 0 {
		// The decompressor runs on into the checkpoints stream that
		// follows the index, so a non-digit here ends the index.
		return 0, 0, true, nil
	}
	sp, err := br.ReadByte()
	if err != nil {
		return 0, 0, false, err
	}
	if sp != ' ' {
		return 0, 0, false, errMalformedRow
	}
	n, err := parseUint(string(digits))
	if err != nil {
		return 0, 0, false, err
	}
	return int(n), len(digits) + 1, false, nil
}

// Global returns a copy of the current accumulated global Meta, reflecting
// every 'g' row consumed so far. The copy can be passed to
// [Reader.ReadMeta] as is.
func (it *IndexIterator) Global() *scar.Meta { return it.global.Clone() }

// reopen seeks to the index stream's start, creates a fresh decompressor,
// verifies the stream header, and discards it.consumed previously-parsed
// bytes.
func (it *IndexIterator) reopen() (*ioadapt.BlockReader, error) {
	if _, err := it.r.src.Seek(int64(it.r.indexOffset), io.SeekStart); err != nil {
		return nil, &scar.Error{Op: "archive.IndexIterator.reopen", Kind: scar.ErrIO, Inner: err}
	}
	dec, err := it.r.codec.NewDecompressor(it.r.src)
	if err != nil {
		return nil, &scar.Error{Op: "archive.IndexIterator.reopen", Kind: scar.ErrMalformed, Inner: err}
	}
	br := ioadapt.NewBlockReader(dec)

	header, err := br.ReadExact(len(indexStreamHeader))
	if err != nil {
		return nil, &scar.Error{Op: "archive.IndexIterator.reopen", Kind: scar.ErrMalformed, Inner: err}
	}
	if string(header) != indexStreamHeader {
		return nil, &scar.Error{Op: "archive.IndexIterator.reopen", Kind: scar.ErrMalformed, Message: "bad index stream header"}
	}
	if it.consumed > 0 {
		if err := br.Skip(int64(it.consumed)); err != nil {
			return nil, &scar.Error{Op: "archive.IndexIterator.reopen", Kind: scar.ErrIO, Inner: err}
		}
	}
	return br, nil
}

// splitField splits off the next space-delimited field from b.
func splitField(b []byte) (field string, rest []byte, err error) {
	sp := bytes.IndexByte(b, ' ')
	if sp < 0 {
		return "", nil, errMalformedRow
	}
	return string(b[:sp]), b[sp+1:], nil
}

var errMalformedRow = errors.New("archive: malformed index row")
