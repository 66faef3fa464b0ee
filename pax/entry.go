package pax

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/scar-format/scar"
	"github.com/scar-format/scar/ioadapt"
	"github.com/scar-format/scar/ustar"
)

// ReadEntry reads one logical archive entry from br. global is the
// currently-active global Meta (as built up by prior 'g' extension
// records); the returned Meta starts as a clone of global and is then
// overlaid with whatever this entry's headers specify.
//
// ok is false, with a nil error, at a clean end-of-archive (the two-block
// zero terminator).
func ReadEntry(br *ioadapt.BlockReader, global *scar.Meta) (meta *scar.Meta, ok bool, err error) {
	meta = global.Clone()
	for {
		raw, err := br.ReadExact(ustar.BlockSize)
		if err != nil {
			return nil, false, fmt.Errorf("pax: reading header block: %w", err)
		}
		var block [ustar.BlockSize]byte
		copy(block[:], raw)

		if ustar.IsZero(&block) {
			raw2, err := br.ReadExact(ustar.BlockSize)
			if err != nil {
				return nil, false, fmt.Errorf("pax: reading terminator block: %w", err)
			}
			var block2 [ustar.BlockSize]byte
			copy(block2[:], raw2)
			if ustar.IsZero(&block2) {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("pax: malformed archive: lone zero block")
		}

		typeflag := block[156]
		switch typeflag {
		case 'L', 'K', 'x', 'g':
			h, err := ustar.ReadBlock(&block)
			if err != nil {
				return nil, false, fmt.Errorf("pax: extension header: %w", err)
			}
			payload, err := readPadded(br, h.Size)
			if err != nil {
				return nil, false, fmt.Errorf("pax: extension payload: %w", err)
			}
			switch typeflag {
			case 'L':
				s := trimNUL(payload)
				meta.Path = &s
			case 'K':
				s := trimNUL(payload)
				meta.Linkpath = &s
			case 'x':
				if err := overlayRecords(payload, meta); err != nil {
					return nil, false, fmt.Errorf("pax: x record: %w", err)
				}
			case 'g':
				if err := overlayRecords(payload, global); err != nil {
					return nil, false, fmt.Errorf("pax: g record: %w", err)
				}
				meta = global.Clone()
			}
			continue
		default:
			ft, _ := scar.TypeflagFromByte(typeflag)
			h, err := ustar.ReadBlock(&block)
			if err != nil {
				return nil, false, fmt.Errorf("pax: file header: %w", err)
			}
			if meta.Type == scar.FileTypeUnknown {
				meta.Type = ft
			}
			if meta.Path == nil {
				p := h.Path()
				meta.Path = &p
			}
			if meta.Linkpath == nil && h.Linkname != "" {
				meta.Linkpath = &h.Linkname
			}
			if meta.Mode == scar.Unset {
				meta.Mode = h.Mode
			}
			if meta.UID == scar.Unset {
				meta.UID = h.UID
			}
			if meta.GID == scar.Unset {
				meta.GID = h.GID
			}
			if meta.Size == scar.Unset {
				meta.Size = h.Size
			}
			if math.IsNaN(meta.Mtime) {
				meta.Mtime = float64(h.Mtime)
			}
			if meta.Devmajor == scar.Unset {
				meta.Devmajor = h.Devmajor
			}
			if meta.Devminor == scar.Unset {
				meta.Devminor = h.Devminor
			}
			if meta.Uname == nil && h.Uname != "" {
				meta.Uname = &h.Uname
			}
			if meta.Gname == nil && h.Gname != "" {
				meta.Gname = &h.Gname
			}
			return meta, true, nil
		}
	}
}

func trimNUL(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// readPadded reads size bytes then discards the padding up to the next
// 512-byte boundary.
func readPadded(br *ioadapt.BlockReader, size uint64) ([]byte, error) {
	payload, err := br.ReadExact(int(size))
	if err != nil {
		return nil, err
	}
	if pad := padLen(size); pad > 0 {
		if err := br.Skip(pad); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

func padLen(size uint64) int64 {
	r := size % ustar.BlockSize
	if r == 0 {
		return 0
	}
	return int64(ustar.BlockSize - r)
}

// OverlayRecords runs the PAX syntax parser over exactly len(payload) bytes
// and applies every recognized record onto m. Exported for the archive
// package's index-stream global ('g' typed) rows, which carry the same
// record payload format as an entry stream 'g' extension block.
func OverlayRecords(payload []byte, m *scar.Meta) error {
	return overlayRecords(payload, m)
}

func overlayRecords(payload []byte, m *scar.Meta) error {
	br := ioadapt.NewBlockReader(bytes.NewReader(payload))
	var consumed uint64
	total := uint64(len(payload))
	for consumed < total {
		key, value, n, err := ReadRecord(br)
		if err != nil {
			return err
		}
		consumed += n
		applyRecord(key, value, m)
	}
	return nil
}

func applyRecord(key, value string, m *scar.Meta) {
	switch key {
	case keyPath:
		v := value
		m.Path = &v
	case keyLinkpath:
		v := value
		m.Linkpath = &v
	case keyUname:
		v := value
		m.Uname = &v
	case keyGname:
		v := value
		m.Gname = &v
	case keyCharset:
		v := value
		m.Charset = &v
	case keyComment:
		v := value
		m.Comment = &v
	case keyHdrcharset:
		v := value
		m.Hdrcharset = &v
	case keyUID:
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			m.UID = v
		}
	case keyGID:
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			m.GID = v
		}
	case keySize:
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			m.Size = v
		}
	case keyMtime:
		if v, err := ParseTime(value); err == nil {
			m.Mtime = v
		}
	case keyAtime:
		if v, err := ParseTime(value); err == nil {
			m.Atime = v
		}
	default:
		// Unrecognized key: silently skipped, per the format's PAX syntax rule.
	}
}

// ReadContent copies exactly size bytes from r to w, then discards the
// padding bytes that round size up to the next 512-byte boundary. A short
// read is an error.
func ReadContent(r io.Reader, w io.Writer, size uint64) error {
	if _, err := io.CopyN(w, r, int64(size)); err != nil {
		return fmt.Errorf("pax: reading content: %w", err)
	}
	if pad := padLen(size); pad > 0 {
		if _, err := io.CopyN(io.Discard, r, pad); err != nil {
			return fmt.Errorf("pax: reading content padding: %w", err)
		}
	}
	return nil
}
