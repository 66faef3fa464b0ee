package pax

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/scar-format/scar/ioadapt"
)

func TestRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecord(&buf, "path", "a/b/c.txt"); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	br := ioadapt.NewBlockReader(bytes.NewReader(buf.Bytes()))
	key, value, total, err := ReadRecord(br)
	if err != nil {
		t.Fatalf("ReadRecord: %v", err)
	}
	if key != "path" || value != "a/b/c.txt" {
		t.Fatalf("got key=%q value=%q", key, value)
	}
	if int(total) != buf.Len() {
		t.Fatalf("total = %d, want %d", total, buf.Len())
	}
}

func TestRecordLenIdempotence(t *testing.T) {
	// These values give LEN prefixes of one, two and three digits. The last
	// one (94 bytes) is 98 bytes before its prefix; two digits would make it
	// 100, so LEN becomes 101, exercising the fixed-point adjustment in
	// encodedLen.
	for _, value := range []string{"", "x", "0123456789", "a very long value indeed, long enough to push the length prefix's own digit count up by one", strings.Repeat("v", 94)} {
		l := encodedLen("k", value)
		encoded := strconv.Itoa(l) + " k=" + value + "\n"
		if len(encoded) != l {
			t.Fatalf("value %q: encodedLen=%d but actual encoding is %d bytes", value, l, len(encoded))
		}
	}
}

func TestFormatParseTimeRoundTrip(t *testing.T) {
	cases := []float64{0, 1700000000, 1700000000.5, 1700000000.123456789, -5}
	for _, v := range cases {
		s := FormatTime(v)
		got, err := ParseTime(s)
		if err != nil {
			t.Fatalf("ParseTime(%q): %v", s, err)
		}
		if diff := got - v; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("round trip %v -> %q -> %v", v, s, got)
		}
	}
}

func TestFormatTimeTrimsTrailingZeros(t *testing.T) {
	if got, want := FormatTime(5), "5"; got != want {
		t.Fatalf("FormatTime(5) = %q, want %q", got, want)
	}
	if got, want := FormatTime(5.5), "5.5"; got != want {
		t.Fatalf("FormatTime(5.5) = %q, want %q", got, want)
	}
}
