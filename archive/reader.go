package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/quay/zlog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/scar-format/scar"
	"github.com/scar-format/scar/codec"
	"github.com/scar-format/scar/ioadapt"
	"github.com/scar-format/scar/pax"
)

// tailProbeSize is how many decompressed bytes of a tail candidate are read
// while testing it for the literal "SCAR-TAIL\n" prefix.
const tailProbeSize = 256

// Reader locates the trailer, loads checkpoints lazily, iterates the
// index, and seeks and decompresses entry bodies on demand.
//
// A Reader is not safe for concurrent use. Two independent Readers over
// independent [io.ReadSeeker]s may run on separate goroutines freely.
type Reader struct {
	src   io.ReadSeeker
	codec codec.Codec
	size  int64

	indexOffset, checkpointsOffset uint64

	checkpointsLoaded bool
	checkpoints       []scar.Checkpoint

	active *ioadapt.BlockReader
}

// NewReader locates the trailer of src and prepares a Reader over it.
func NewReader(ctx context.Context, src io.ReadSeeker) (r *Reader, err error) {
	ctx, span := tracer.Start(ctx, "NewReader")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "reader construction failed")
		}
	}()

	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, &scar.Error{Op: "archive.NewReader", Kind: scar.ErrIO, Inner: err}
	}

	tailLen := int64(ustarTailWindow)
	if size < tailLen {
		tailLen = size
	}
	if _, err := src.Seek(size-tailLen, io.SeekStart); err != nil {
		return nil, &scar.Error{Op: "archive.NewReader", Kind: scar.ErrIO, Inner: err}
	}
	suffix := make([]byte, tailLen)
	if _, err := io.ReadFull(src, suffix); err != nil {
		return nil, &scar.Error{Op: "archive.NewReader", Kind: scar.ErrIO, Inner: err}
	}

	c, ok := codec.BySuffix(suffix)
	if !ok {
		return nil, &scar.Error{Op: "archive.NewReader", Kind: scar.ErrUnsupportedCodec, Message: "no codec EOF marker matches file suffix"}
	}

	windowStart := size - tailLen
	indexOff, ckptOff, ok := findTail(src, c, windowStart, tailLen)
	if !ok {
		return nil, &scar.Error{Op: "archive.NewReader", Kind: scar.ErrMalformed, Message: "tail not locatable"}
	}

	zlog.Debug(ctx).Str("codec", c.Name()).Uint64("index_offset", indexOff).Uint64("checkpoints_offset", ckptOff).Msg("reader located trailer")
	archiveCount.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "read"), attribute.String("codec", c.Name())))

	return &Reader{src: src, codec: c, size: size, indexOffset: indexOff, checkpointsOffset: ckptOff}, nil
}

// ustarTailWindow bounds the construction-time read to the last N bytes,
// matching the format's min(512, len) rule.
const ustarTailWindow = 512

// findTail scans backward over [windowStart, windowStart+windowLen) for a
// position whose next len(magic) bytes equal the codec's magic, attempting
// to parse a tail block at each candidate. It tries the rightmost
// (closest to EOF) candidates first, since the true tail block's magic is
// the last one written.
func findTail(src io.ReadSeeker, c codec.Codec, windowStart, windowLen int64) (indexOff, ckptOff uint64, ok bool) {
	magic := c.Magic()
	for pos := windowStart + windowLen - int64(len(magic)); pos >= windowStart; pos-- {
		if _, err := src.Seek(pos, io.SeekStart); err != nil {
			continue
		}
		got := make([]byte, len(magic))
		if _, err := io.ReadFull(src, got); err != nil || !bytes.Equal(got, magic) {
			continue
		}
		if idxOff, ckOff, ok := parseTailAt(src, c, pos); ok {
			return idxOff, ckOff, true
		}
	}
	return 0, 0, false
}

// parseTailAt attempts to decode a "SCAR-TAIL\n<idx>\n<ckpt>\n" block
// starting at file offset pos.
func parseTailAt(src io.ReadSeeker, c codec.Codec, pos int64) (indexOff, ckptOff uint64, ok bool) {
	if _, err := src.Seek(pos, io.SeekStart); err != nil {
		return 0, 0, false
	}
	dec, err := c.NewDecompressor(src)
	if err != nil {
		return 0, 0, false
	}
	buf := make([]byte, tailProbeSize)
	n, err := io.ReadFull(dec, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return 0, 0, false
	}
	buf = buf[:n]
	const prefix = "SCAR-TAIL\n"
	if !bytes.HasPrefix(buf, []byte(prefix)) {
		return 0, 0, false
	}
	rest := buf[len(prefix):]
	nl1 := bytes.IndexByte(rest, '\n')
	if nl1 < 0 {
		return 0, 0, false
	}
	idx, err := parseUint(string(rest[:nl1]))
	if err != nil {
		return 0, 0, false
	}
	rest = rest[nl1+1:]
	nl2 := bytes.IndexByte(rest, '\n')
	if nl2 < 0 {
		return 0, 0, false
	}
	ck, err := parseUint(string(rest[:nl2]))
	if err != nil {
		return 0, 0, false
	}
	return idx, ck, true
}

func parseUint(s string) (uint64, error) {
	var v uint64
	if s == "" {
		return 0, fmt.Errorf("empty integer")
	}
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid digit %q", c)
		}
		v = v*10 + uint64(c-'0')
	}
	return v, nil
}

// ReadMeta finds the nearest preceding checkpoint, seeks and decompresses
// from it, discards to offset, and reads one PAX entry, using a private
// copy of global (the PAX reader mutates its global argument).
func (r *Reader) ReadMeta(ctx context.Context, offset uint64, global *scar.Meta) (*scar.Meta, error) {
	if err := r.ensureCheckpoints(ctx); err != nil {
		return nil, err
	}
	cp := r.findCheckpoint(offset)
	if offset < cp.Uncompressed {
		return nil, &scar.Error{Op: "archive.Reader.ReadMeta", Kind: scar.ErrInvalid, Message: "offset precedes synthetic checkpoint head"}
	}

	if _, err := r.src.Seek(int64(cp.Compressed), io.SeekStart); err != nil {
		return nil, &scar.Error{Op: "archive.Reader.ReadMeta", Kind: scar.ErrIO, Inner: err}
	}
	dec, err := r.codec.NewDecompressor(r.src)
	if err != nil {
		return nil, &scar.Error{Op: "archive.Reader.ReadMeta", Kind: scar.ErrMalformed, Inner: err}
	}
	br := ioadapt.NewBlockReader(dec)
	if skip := offset - cp.Uncompressed; skip > 0 {
		if err := br.Skip(int64(skip)); err != nil {
			return nil, &scar.Error{Op: "archive.Reader.ReadMeta", Kind: scar.ErrIO, Inner: err}
		}
	}

	meta, ok, err := pax.ReadEntry(br, global.Clone())
	if err != nil {
		return nil, &scar.Error{Op: "archive.Reader.ReadMeta", Kind: scar.ErrMalformed, Inner: err}
	}
	if !ok {
		return nil, &scar.Error{Op: "archive.Reader.ReadMeta", Kind: scar.ErrMalformed, Message: "no entry at offset"}
	}
	r.active = br
	return meta, nil
}

// ReadContent copies an entry's body, previously located by [Reader.ReadMeta],
// to w.
func (r *Reader) ReadContent(ctx context.Context, w io.Writer, size uint64) error {
	if r.active == nil {
		return &scar.Error{Op: "archive.Reader.ReadContent", Kind: scar.ErrInvalid, Message: "no active entry; call ReadMeta first"}
	}
	return pax.ReadContent(r.active, w, size)
}
