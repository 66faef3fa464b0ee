package pax

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/scar-format/scar"
	"github.com/scar-format/scar/ustar"
)

// Overflow thresholds a USTAR field cannot represent without a PAX
// x-record, per the format's entry writer rules.
const (
	maxPathLen  = 100
	maxNameLen  = 32 // uname/gname
	maxUIDGID   = 0o7777777
	maxMtime    = 0o777777777777
)

// WriteEntry writes one logical archive entry: an optional PAX x-record
// (for attributes that overflow USTAR or have no USTAR slot at all)
// followed by the main USTAR header block. It does not write the entry's
// content; call [WriteContent] afterward with the same size.
func WriteEntry(w io.Writer, m *scar.Meta) error {
	var rec bytes.Buffer
	needsRecord := false

	path := ""
	if m.Path != nil {
		path = *m.Path
	} else {
		return &scar.Error{Op: "pax.WriteEntry", Kind: scar.ErrInvalid, Message: "meta missing path"}
	}
	if len(path) > maxPathLen {
		if err := WriteRecord(&rec, keyPath, path); err != nil {
			return err
		}
		needsRecord = true
	}

	linkpath := ""
	if m.Linkpath != nil {
		linkpath = *m.Linkpath
		if len(linkpath) > maxPathLen {
			if err := WriteRecord(&rec, keyLinkpath, linkpath); err != nil {
				return err
			}
			needsRecord = true
		}
	}

	uname, gname := "", ""
	if m.Uname != nil {
		uname = *m.Uname
		if len(uname) > maxNameLen {
			if err := WriteRecord(&rec, keyUname, uname); err != nil {
				return err
			}
			needsRecord = true
		}
	}
	if m.Gname != nil {
		gname = *m.Gname
		if len(gname) > maxNameLen {
			if err := WriteRecord(&rec, keyGname, gname); err != nil {
				return err
			}
			needsRecord = true
		}
	}

	uid, gid, size := m.UID, m.GID, m.Size
	if uid != scar.Unset && uid > maxUIDGID {
		if err := WriteRecord(&rec, keyUID, fmt.Sprintf("%d", uid)); err != nil {
			return err
		}
		needsRecord = true
	}
	if gid != scar.Unset && gid > maxUIDGID {
		if err := WriteRecord(&rec, keyGID, fmt.Sprintf("%d", gid)); err != nil {
			return err
		}
		needsRecord = true
	}
	if size != scar.Unset && size > ustar.MaxOctal(12) {
		if err := WriteRecord(&rec, keySize, fmt.Sprintf("%d", size)); err != nil {
			return err
		}
		needsRecord = true
	}

	mtime := m.Mtime
	mtimeOverflow := !math.IsNaN(mtime) &&
		(mtime < 0 || mtime != math.Trunc(mtime) || uint64(mtime) > maxMtime)
	if mtimeOverflow {
		if err := WriteRecord(&rec, keyMtime, FormatTime(mtime)); err != nil {
			return err
		}
		needsRecord = true
	}

	if !math.IsNaN(m.Atime) {
		if err := WriteRecord(&rec, keyAtime, FormatTime(m.Atime)); err != nil {
			return err
		}
		needsRecord = true
	}
	if m.Charset != nil {
		if err := WriteRecord(&rec, keyCharset, *m.Charset); err != nil {
			return err
		}
		needsRecord = true
	}
	if m.Comment != nil {
		if err := WriteRecord(&rec, keyComment, *m.Comment); err != nil {
			return err
		}
		needsRecord = true
	}
	if m.Hdrcharset != nil {
		if err := WriteRecord(&rec, keyHdrcharset, *m.Hdrcharset); err != nil {
			return err
		}
		needsRecord = true
	}

	if needsRecord {
		if err := writeExtensionBlock(w, 'x', rec.Bytes()); err != nil {
			return err
		}
	}

	h := &ustar.Header{
		Name:     truncate(path, maxPathLen),
		Mode:     orZero(m.Mode),
		UID:      clampUIDGID(uid),
		GID:      clampUIDGID(gid),
		Size:     orZero(size),
		Mtime:    clampMtime(mtime),
		Typeflag: m.Type.Byte(),
		Linkname: truncate(linkpath, maxPathLen),
		Uname:    truncate(uname, maxNameLen),
		Gname:    truncate(gname, maxNameLen),
		Devmajor: orZero(m.Devmajor),
		Devminor: orZero(m.Devminor),
	}
	block, err := h.WriteBlock()
	if err != nil {
		return fmt.Errorf("pax: writing header block: %w", err)
	}
	_, err = w.Write(block[:])
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func orZero(v uint64) uint64 {
	if v == scar.Unset {
		return 0
	}
	return v
}

func clampUIDGID(v uint64) uint64 {
	if v == scar.Unset {
		return 0
	}
	if v > maxUIDGID {
		return maxUIDGID
	}
	return v
}

func clampMtime(t float64) uint64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	v := uint64(math.Trunc(t))
	if v > maxMtime {
		return maxMtime
	}
	return v
}

// writeExtensionBlock writes one GNU/PAX extension header (typeflag L, K,
// x, or g) followed by payload, padded to the next 512-byte boundary.
func writeExtensionBlock(w io.Writer, typeflag byte, payload []byte) error {
	h := &ustar.Header{
		Name:     "PaxHeader",
		Size:     uint64(len(payload)),
		Typeflag: typeflag,
	}
	block, err := h.WriteBlock()
	if err != nil {
		return err
	}
	if _, err := w.Write(block[:]); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	if pad := padLen(uint64(len(payload))); pad > 0 {
		var zeros [ustar.BlockSize]byte
		if _, err := w.Write(zeros[:pad]); err != nil {
			return err
		}
	}
	return nil
}

// WriteContent writes size bytes copied from body to w, then pads to the
// next 512-byte boundary with zeros.
func WriteContent(w io.Writer, body io.Reader, size uint64) error {
	if _, err := io.CopyN(w, body, int64(size)); err != nil {
		return fmt.Errorf("pax: writing content: %w", err)
	}
	if pad := padLen(size); pad > 0 {
		var zeros [ustar.BlockSize]byte
		if _, err := w.Write(zeros[:pad]); err != nil {
			return err
		}
	}
	return nil
}

// WriteEnd writes the two-block all-zero end-of-archive terminator.
func WriteEnd(w io.Writer) error {
	var zeros [2 * ustar.BlockSize]byte
	_, err := w.Write(zeros[:])
	return err
}
