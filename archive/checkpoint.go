package archive

import (
	"bytes"
	"context"
	"io"

	"github.com/scar-format/scar"
	"github.com/scar-format/scar/ioadapt"
)

// ensureCheckpoints loads the checkpoints stream on first use. The stream
// is small (one row per checkpoint interval) so loading it fully, once,
// is preferred over re-scanning it per lookup.
func (r *Reader) ensureCheckpoints(ctx context.Context) error {
	if r.checkpointsLoaded {
		return nil
	}
	if _, err := r.src.Seek(int64(r.checkpointsOffset), io.SeekStart); err != nil {
		return &scar.Error{Op: "archive.Reader.checkpoints", Kind: scar.ErrIO, Inner: err}
	}
	dec, err := r.codec.NewDecompressor(r.src)
	if err != nil {
		return &scar.Error{Op: "archive.Reader.checkpoints", Kind: scar.ErrMalformed, Inner: err}
	}
	br := ioadapt.NewBlockReader(dec)

	header, err := br.ReadExact(len(checkpointsStreamHeader))
	if err != nil {
		return &scar.Error{Op: "archive.Reader.checkpoints", Kind: scar.ErrMalformed, Inner: err}
	}
	if string(header) != checkpointsStreamHeader {
		return &scar.Error{Op: "archive.Reader.checkpoints", Kind: scar.ErrMalformed, Message: "bad checkpoints stream header"}
	}

	var out []scar.Checkpoint
	for {
		line, err := br.ReadUntil('\n')
		if err == io.EOF && len(line) == 0 {
			break
		}
		if err != nil {
			return &scar.Error{Op: "archive.Reader.checkpoints", Kind: scar.ErrMalformed, Inner: err}
		}
		// The decompressor runs on into the tail stream, so the table
		// ends at an empty line or at the tail's header line.
		if len(line) == 0 || bytes.HasPrefix(line, []byte("SCAR-TAIL")) {
			break
		}
		sp := bytes.IndexByte(line, ' ')
		if sp < 0 {
			return &scar.Error{Op: "archive.Reader.checkpoints", Kind: scar.ErrMalformed, Message: "malformed checkpoint row"}
		}
		compressed, err := parseUint(string(line[:sp]))
		if err != nil {
			return &scar.Error{Op: "archive.Reader.checkpoints", Kind: scar.ErrMalformed, Inner: err}
		}
		uncompressed, err := parseUint(string(bytes.TrimSuffix(line[sp+1:], []byte{'\n'})))
		if err != nil {
			return &scar.Error{Op: "archive.Reader.checkpoints", Kind: scar.ErrMalformed, Inner: err}
		}
		out = append(out, scar.Checkpoint{Compressed: compressed, Uncompressed: uncompressed})
	}

	r.checkpoints = out
	r.checkpointsLoaded = true
	return nil
}

// findCheckpoint returns the greatest checkpoint whose Uncompressed offset
// is <= offset, defaulting to the implicit (0, 0) head of the entry
// stream if offset precedes the first recorded checkpoint.
func (r *Reader) findCheckpoint(offset uint64) scar.Checkpoint {
	best := scar.Checkpoint{Compressed: 0, Uncompressed: 0}
	for _, cp := range r.checkpoints {
		if cp.Uncompressed <= offset && cp.Uncompressed >= best.Uncompressed {
			best = cp
		}
	}
	return best
}
