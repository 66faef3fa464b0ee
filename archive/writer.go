package archive

import (
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

const (
	indexStreamHeader      = "SCAR-INDEX\n"
	checkpointsStreamHeader = "SCAR-CHECKPOINTS\n"
)

// Writer drives a compressor, inserts checkpoints at bounded intervals,
// records index rows, and appends the trailer.
//
// A Writer is not safe for concurrent use; calls to [Writer.WriteEntry] must
// be strictly ordered by the caller.
type Writer struct {
	codec  codec.Codec
	level  int
	ckptInterval uint64

	sink     *ioadapt.CountingWriter
	entry    codec.Compressor
	uncount  *ioadapt.CountingWriter
	lastCkpt uint64

	indexBuf  *ioadapt.MemWriter
	indexComp codec.Compressor
	ckptBuf   *ioadapt.MemWriter
	ckptComp  codec.Compressor

	finished bool
}

// NewWriter constructs a Writer over sink using codec c. On any error,
// every sub-resource already acquired is released before returning.
func NewWriter(ctx context.Context, sink io.Writer, c codec.Codec, opts ...WriterOption) (w *Writer, err error) {
	ctx, span := tracer.Start(ctx, "NewWriter")
	defer span.End()
	cfg := writerConfig{level: DefaultLevel, checkpointInterval: DefaultCheckpointInterval}
	for _, o := range opts {
		o(&cfg)
	}

	w = &Writer{codec: c, level: cfg.level, ckptInterval: cfg.checkpointInterval}
	w.sink = ioadapt.NewCountingWriter(sink)
	partial := w // w itself is nil once an error return has run

	defer func() {
		if err == nil {
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "writer construction failed")
		partial.releasePartial()
	}()

	w.entry, err = c.NewCompressor(w.sink, w.level)
	if err != nil {
		return nil, &scar.Error{Op: "archive.NewWriter", Kind: scar.ErrIO, Inner: err}
	}
	w.uncount = ioadapt.NewCountingWriter(w.entry)

	w.indexBuf = ioadapt.NewMemWriter()
	w.indexComp, err = c.NewCompressor(w.indexBuf, w.level)
	if err != nil {
		return nil, &scar.Error{Op: "archive.NewWriter", Kind: scar.ErrIO, Inner: err}
	}
	if _, err = io.WriteString(w.indexComp, indexStreamHeader); err != nil {
		return nil, &scar.Error{Op: "archive.NewWriter", Kind: scar.ErrIO, Inner: err}
	}

	w.ckptBuf = ioadapt.NewMemWriter()
	w.ckptComp, err = c.NewCompressor(w.ckptBuf, w.level)
	if err != nil {
		return nil, &scar.Error{Op: "archive.NewWriter", Kind: scar.ErrIO, Inner: err}
	}
	if _, err = io.WriteString(w.ckptComp, checkpointsStreamHeader); err != nil {
		return nil, &scar.Error{Op: "archive.NewWriter", Kind: scar.ErrIO, Inner: err}
	}

	zlog.Debug(ctx).Str("codec", c.Name()).Msg("writer constructed")
	archiveCount.Add(ctx, 1, metric.WithAttributes(attribute.String("op", "write"), attribute.String("codec", c.Name())))
	return w, nil
}

// releasePartial finishes whichever compressors were successfully created,
// best-effort, so a failed construction does not leak codec resources.
func (w *Writer) releasePartial() {
	if w.ckptComp != nil {
		_ = w.ckptComp.Finish()
	}
	if w.indexComp != nil {
		_ = w.indexComp.Finish()
	}
	if w.entry != nil {
		_ = w.entry.Finish()
	}
}

func (w *Writer) maybeCheckpoint() error {
	if w.uncount.Count-w.lastCkpt < w.ckptInterval {
		return nil
	}
	return w.createCheckpoint()
}

func (w *Writer) createCheckpoint() error {
	if err := w.entry.Flush(); err != nil {
		return &scar.Error{Op: "archive.Writer.checkpoint", Kind: scar.ErrIO, Inner: err}
	}
	cp := scar.Checkpoint{Compressed: w.sink.Count, Uncompressed: w.uncount.Count}
	if _, err := fmt.Fprintf(w.ckptComp, "%d %d\n", cp.Compressed, cp.Uncompressed); err != nil {
		return &scar.Error{Op: "archive.Writer.checkpoint", Kind: scar.ErrIO, Inner: err}
	}
	w.lastCkpt = w.uncount.Count
	return nil
}

// indexRowLen computes the self-delimiting length of an
// "TYPE SP OFFSET SP PATH LF" index row, using the same fixed-point
// digit-count adjustment as the PAX record LEN prefix.
func indexRowLen(offsetStr, path string) int {
	const fixed = 5 // type char, three spaces, LF
	size := len(offsetStr) + len(path) + fixed
	size += len(itoaInt(size))
	for {
		next := len(offsetStr) + len(path) + fixed + len(itoaInt(size))
		if next == size {
			return size
		}
		size = next
	}
}

func itoaInt(n int) string { return fmt.Sprintf("%d", n) }

// WriteEntry writes meta and its content through the engine. body must
// yield exactly meta.Size bytes.
func (w *Writer) WriteEntry(ctx context.Context, meta *scar.Meta, body io.Reader) error {
	if w.finished {
		return &scar.Error{Op: "archive.Writer.WriteEntry", Kind: scar.ErrInvalid, Message: "writer already finished"}
	}
	if meta.Path == nil {
		return &scar.Error{Op: "archive.Writer.WriteEntry", Kind: scar.ErrInvalid, Message: "meta missing path"}
	}
	if err := w.maybeCheckpoint(); err != nil {
		return err
	}

	offset := w.uncount.Count
	offsetStr := itoa64(offset)
	path := *meta.Path
	l := indexRowLen(offsetStr, path)
	if _, err := fmt.Fprintf(w.indexComp, "%d %c %s %s\n", l, meta.Type.Byte(), offsetStr, path); err != nil {
		return &scar.Error{Op: "archive.Writer.WriteEntry", Kind: scar.ErrIO, Inner: err}
	}

	if err := pax.WriteEntry(w.uncount, meta); err != nil {
		return &scar.Error{Op: "archive.Writer.WriteEntry", Kind: scar.ErrMalformed, Inner: err}
	}
	size := meta.Size
	if size == scar.Unset {
		size = 0
	}
	if err := pax.WriteContent(w.uncount, body, size); err != nil {
		return &scar.Error{Op: "archive.Writer.WriteEntry", Kind: scar.ErrIO, Inner: err}
	}
	return nil
}

func itoa64(n uint64) string { return fmt.Sprintf("%d", n) }

// Finish terminates the entry stream, finishes every compressor, and
// appends the index, checkpoints, and tail sections plus the codec
// EOF-marker. After Finish succeeds, the sink's content is a complete,
// readable archive and the Writer must not be used again.
func (w *Writer) Finish(ctx context.Context) (err error) {
	ctx, span := tracer.Start(ctx, "Writer.Finish")
	defer span.End()
	if w.finished {
		return &scar.Error{Op: "archive.Writer.Finish", Kind: scar.ErrInvalid, Message: "writer already finished"}
	}
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "finish failed")
		}
	}()

	if err = pax.WriteEnd(w.uncount); err != nil {
		return &scar.Error{Op: "archive.Writer.Finish", Kind: scar.ErrIO, Inner: err}
	}
	if err = w.entry.Finish(); err != nil {
		return &scar.Error{Op: "archive.Writer.Finish", Kind: scar.ErrIO, Inner: err}
	}
	if err = w.indexComp.Finish(); err != nil {
		return &scar.Error{Op: "archive.Writer.Finish", Kind: scar.ErrIO, Inner: err}
	}
	if err = w.ckptComp.Finish(); err != nil {
		return &scar.Error{Op: "archive.Writer.Finish", Kind: scar.ErrIO, Inner: err}
	}

	if _, err = w.sink.Write(w.indexBuf.Bytes()); err != nil {
		return &scar.Error{Op: "archive.Writer.Finish", Kind: scar.ErrIO, Inner: err}
	}
	indexOff := w.sink.Count - uint64(w.indexBuf.Len())

	if _, err = w.sink.Write(w.ckptBuf.Bytes()); err != nil {
		return &scar.Error{Op: "archive.Writer.Finish", Kind: scar.ErrIO, Inner: err}
	}
	ckptOff := w.sink.Count - uint64(w.ckptBuf.Len())

	tailComp, err := w.codec.NewCompressor(w.sink, w.level)
	if err != nil {
		return &scar.Error{Op: "archive.Writer.Finish", Kind: scar.ErrIO, Inner: err}
	}
	if _, err = fmt.Fprintf(tailComp, "SCAR-TAIL\n%d\n%d\n", indexOff, ckptOff); err != nil {
		return &scar.Error{Op: "archive.Writer.Finish", Kind: scar.ErrIO, Inner: err}
	}
	if err = tailComp.Finish(); err != nil {
		return &scar.Error{Op: "archive.Writer.Finish", Kind: scar.ErrIO, Inner: err}
	}

	if _, err = w.sink.Write(w.codec.EOFMarker()); err != nil {
		return &scar.Error{Op: "archive.Writer.Finish", Kind: scar.ErrIO, Inner: err}
	}

	w.finished = true
	zlog.Debug(ctx).Uint64("index_offset", indexOff).Uint64("checkpoints_offset", ckptOff).Msg("archive finished")
	return nil
}
