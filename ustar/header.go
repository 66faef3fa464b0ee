package ustar

import "fmt"

// ReadBlock decodes a USTAR header out of b. The all-zero terminator block
// is not handled here; callers check [IsZero] first.
//
// Checksum is verified against the field table's convention: the sum over
// every byte of b, with the checksum field itself read as eight spaces.
func ReadBlock(b *[BlockSize]byte) (*Header, error) {
	chksum, err := readOctal(field(b, offChksum, lenChksum))
	if err != nil {
		return nil, fmt.Errorf("ustar: bad checksum field: %w", err)
	}
	if got := Checksum(b); got != chksum {
		return nil, fmt.Errorf("ustar: checksum mismatch: header says %d, computed %d", chksum, got)
	}

	h := &Header{}
	h.Name = readCString(field(b, offName, lenName))
	if h.Mode, err = readOctal(field(b, offMode, lenMode)); err != nil {
		return nil, fmt.Errorf("ustar: mode: %w", err)
	}
	if h.UID, err = readOctal(field(b, offUID, lenUID)); err != nil {
		return nil, fmt.Errorf("ustar: uid: %w", err)
	}
	if h.GID, err = readOctal(field(b, offGID, lenGID)); err != nil {
		return nil, fmt.Errorf("ustar: gid: %w", err)
	}
	if h.Size, err = readSize(field(b, offSize, lenSize)); err != nil {
		return nil, fmt.Errorf("ustar: size: %w", err)
	}
	if h.Mtime, err = readOctal(field(b, offMtime, lenMtime)); err != nil {
		return nil, fmt.Errorf("ustar: mtime: %w", err)
	}
	h.Typeflag = b[offTypeflag]
	h.Linkname = readCString(field(b, offLinkname, lenLinkname))
	h.Uname = readCString(field(b, offUname, lenUname))
	h.Gname = readCString(field(b, offGname, lenGname))
	if h.Devmajor, err = readOctal(field(b, offDevmajor, lenDevmajor)); err != nil {
		return nil, fmt.Errorf("ustar: devmajor: %w", err)
	}
	if h.Devminor, err = readOctal(field(b, offDevminor, lenDevminor)); err != nil {
		return nil, fmt.Errorf("ustar: devminor: %w", err)
	}
	h.Prefix = readCString(field(b, offPrefix, lenPrefix))
	return h, nil
}

// Path returns the effective path, honoring the prefix field when present:
// "prefix/name".
func (h *Header) Path() string {
	if h.Prefix == "" {
		return h.Name
	}
	return h.Prefix + "/" + h.Name
}

// WriteBlock encodes h into a fresh 512-byte block, filling magic, version,
// and checksum. Name and Prefix are written as-is; callers are responsible
// for truncating or sidestepping fields that do not fit (this module's
// writer always represents an overflowing path via a PAX x-record and
// writes a best-effort truncated Name here, never populating Prefix, per
// the format's writer-side design note).
func (h *Header) WriteBlock() (*[BlockSize]byte, error) {
	var b [BlockSize]byte
	writeCString(field(&b, offName, lenName), h.Name)
	if err := writeOctal(field(&b, offMode, lenMode), h.Mode); err != nil {
		return nil, err
	}
	if err := writeOctal(field(&b, offUID, lenUID), h.UID); err != nil {
		return nil, err
	}
	if err := writeOctal(field(&b, offGID, lenGID), h.GID); err != nil {
		return nil, err
	}
	if err := writeSize(field(&b, offSize, lenSize), h.Size); err != nil {
		return nil, err
	}
	if err := writeOctalFull(field(&b, offMtime, lenMtime), h.Mtime); err != nil {
		return nil, err
	}
	b[offTypeflag] = h.Typeflag
	writeCString(field(&b, offLinkname, lenLinkname), h.Linkname)
	copy(field(&b, offMagic, lenMagic), Magic[:])
	copy(field(&b, offVersion, lenVersion), Version[:])
	writeCString(field(&b, offUname, lenUname), h.Uname)
	writeCString(field(&b, offGname, lenGname), h.Gname)
	if err := writeOctal(field(&b, offDevmajor, lenDevmajor), h.Devmajor); err != nil {
		return nil, err
	}
	if err := writeOctal(field(&b, offDevminor, lenDevminor), h.Devminor); err != nil {
		return nil, err
	}
	writeCString(field(&b, offPrefix, lenPrefix), h.Prefix)

	sum := Checksum(&b)
	// chksum: six octal digits, NUL, space.
	cf := field(&b, offChksum, lenChksum)
	s := []byte(fmt.Sprintf("%06o", sum&0o777777))
	copy(cf, s)
	cf[6] = 0
	cf[7] = ' '
	return &b, nil
}
