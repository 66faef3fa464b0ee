package ustar

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestChecksumRoundTrip(t *testing.T) {
	h := &Header{
		Name:     "hello.txt",
		Mode:     0o644,
		UID:      1000,
		GID:      1000,
		Size:     42,
		Mtime:    1700000000,
		Typeflag: '0',
		Uname:    "root",
		Gname:    "root",
	}
	b, err := h.WriteBlock()
	if err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	got, err := ReadBlock(b)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	// Prefix/Devmajor/Devminor are left zero in h and read back as zero;
	// they are ignored so the diff covers only the fields set here.
	if diff := cmp.Diff(h, got, cmpopts.IgnoreFields(Header{}, "Prefix", "Devmajor", "Devminor")); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestChecksumMismatchRejected(t *testing.T) {
	h := &Header{Name: "a", Typeflag: '0'}
	b, err := h.WriteBlock()
	if err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	b[0] ^= 0xFF // corrupt a byte outside the checksum field
	if _, err := ReadBlock(b); err == nil {
		t.Fatal("expected checksum mismatch error, got nil")
	}
}

func TestIsZero(t *testing.T) {
	var b [BlockSize]byte
	if !IsZero(&b) {
		t.Fatal("all-zero block reported non-zero")
	}
	b[10] = 1
	if IsZero(&b) {
		t.Fatal("non-zero block reported zero")
	}
}

func TestOctalRoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 0o7654321, MaxOctal(lenMode)}
	for _, v := range cases {
		var buf [lenMode]byte
		if err := writeOctal(buf[:], v); err != nil {
			t.Fatalf("writeOctal(%d): %v", v, err)
		}
		got, err := readOctal(buf[:])
		if err != nil {
			t.Fatalf("readOctal: %v", err)
		}
		if got != v {
			t.Fatalf("octal round trip: got %d, want %d", got, v)
		}
	}
}

func TestOctalOverflow(t *testing.T) {
	var buf [lenMode]byte
	if err := writeOctal(buf[:], MaxOctal(lenMode)+1); err == nil {
		t.Fatal("expected overflow error")
	}
}

func TestSizeBinaryFallback(t *testing.T) {
	var buf [lenSize]byte
	v := MaxOctal(lenSize) + 1
	if err := writeSize(buf[:], v); err != nil {
		t.Fatalf("writeSize: %v", err)
	}
	if buf[0]&0x80 == 0 {
		t.Fatal("expected high bit set for binary fallback encoding")
	}
	got, err := readSize(buf[:])
	if err != nil {
		t.Fatalf("readSize: %v", err)
	}
	if got != v {
		t.Fatalf("size round trip: got %d, want %d", got, v)
	}
}

func TestMtimeFullWidthEncoding(t *testing.T) {
	var buf [lenMtime]byte
	v := MaxOctalFull(lenMtime)
	if err := writeOctalFull(buf[:], v); err != nil {
		t.Fatalf("writeOctalFull: %v", err)
	}
	for _, c := range buf {
		if c < '0' || c > '7' {
			t.Fatalf("mtime field has non-digit byte %q at max value", c)
		}
	}
}

func TestPathPrefixJoin(t *testing.T) {
	h := &Header{Name: "b.txt", Prefix: "a"}
	if got, want := h.Path(), "a/b.txt"; got != want {
		t.Fatalf("Path() = %q, want %q", got, want)
	}
	h2 := &Header{Name: "b.txt"}
	if got, want := h2.Path(), "b.txt"; got != want {
		t.Fatalf("Path() = %q, want %q", got, want)
	}
}
