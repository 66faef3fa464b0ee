package codec

import (
	"bytes"
	"io"
	"testing"
)

func allCodecs(t *testing.T) []Codec {
	t.Helper()
	cs := All()
	if len(cs) != 3 {
		t.Fatalf("expected 3 registered codecs, got %d", len(cs))
	}
	return cs
}

func TestByName(t *testing.T) {
	for _, name := range []string{"gzip", "plain", "xz"} {
		if _, ok := ByName(name); !ok {
			t.Fatalf("ByName(%q) not found", name)
		}
	}
	if _, ok := ByName("nonexistent"); ok {
		t.Fatal("ByName(nonexistent) unexpectedly found a codec")
	}
}

func TestRoundTrip(t *testing.T) {
	for _, c := range allCodecs(t) {
		t.Run(c.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := c.NewCompressor(&buf, 6)
			if err != nil {
				t.Fatalf("NewCompressor: %v", err)
			}
			want := []byte("the quick brown fox jumps over the lazy dog")
			if _, err := w.Write(want); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := w.Finish(); err != nil {
				t.Fatalf("Finish: %v", err)
			}

			r, err := c.NewDecompressor(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("NewDecompressor: %v", err)
			}
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if string(got) != string(want) {
				t.Fatalf("got %q, want %q", got, want)
			}
		})
	}
}

// TestCodecResync verifies the core property random access depends on: a
// Flush followed by more writes produces a stream where a fresh
// decompressor, started at the post-Flush byte offset, decodes exactly the
// bytes written after the flush — without needing anything written before
// it.
func TestCodecResync(t *testing.T) {
	for _, c := range allCodecs(t) {
		t.Run(c.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := c.NewCompressor(&buf, 6)
			if err != nil {
				t.Fatalf("NewCompressor: %v", err)
			}
			if _, err := w.Write([]byte("first segment")); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := w.Flush(); err != nil {
				t.Fatalf("Flush: %v", err)
			}
			resyncPoint := buf.Len()

			want := []byte("second segment, after the flush boundary")
			if _, err := w.Write(want); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := w.Finish(); err != nil {
				t.Fatalf("Finish: %v", err)
			}

			r, err := c.NewDecompressor(bytes.NewReader(buf.Bytes()[resyncPoint:]))
			if err != nil {
				t.Fatalf("NewDecompressor at resync point: %v", err)
			}
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if string(got) != string(want) {
				t.Fatalf("resync decode = %q, want %q", got, want)
			}
		})
	}
}

func TestBySuffixMatchesEOFMarker(t *testing.T) {
	for _, c := range allCodecs(t) {
		t.Run(c.Name(), func(t *testing.T) {
			tail := append([]byte("some preceding bytes"), c.EOFMarker()...)
			got, ok := BySuffix(tail)
			if !ok {
				t.Fatal("BySuffix did not match")
			}
			if got.Name() != c.Name() {
				t.Fatalf("BySuffix matched %q, want %q", got.Name(), c.Name())
			}
		})
	}
}

func TestEmptyStreamDecodesToEmpty(t *testing.T) {
	for _, c := range allCodecs(t) {
		t.Run(c.Name(), func(t *testing.T) {
			r, err := c.NewDecompressor(bytes.NewReader(c.EOFMarker()))
			if err != nil {
				t.Fatalf("NewDecompressor(EOFMarker): %v", err)
			}
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			// gzip's and xz's markers are empty streams. plain's marker is
			// a literal line, which the identity decompressor passes through.
			want := []byte{}
			if c.Name() == "plain" {
				want = c.EOFMarker()
			}
			if !bytes.Equal(got, want) {
				t.Fatalf("decode of EOF marker = %q, want %q", got, want)
			}
		})
	}
}
