package pax

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/scar-format/scar"
	"github.com/scar-format/scar/ioadapt"
)

func writeOneEntry(t *testing.T, m *scar.Meta, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteEntry(&buf, m); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if err := WriteContent(&buf, strings.NewReader(body), uint64(len(body))); err != nil {
		t.Fatalf("WriteContent: %v", err)
	}
	return buf.Bytes()
}

func TestEntryRoundTripPlainFields(t *testing.T) {
	m := scar.NewFileMeta("short/path.txt", 0o644, 5, 1700000000)
	m.UID, m.GID = 1000, 1000

	raw := writeOneEntry(t, m, "hello")
	br := ioadapt.NewBlockReader(bytes.NewReader(raw))
	got, ok, err := ReadEntry(br, scar.NewMeta())
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if !ok {
		t.Fatal("ReadEntry reported no entry")
	}
	if got.Path == nil || *got.Path != "short/path.txt" {
		t.Fatalf("Path = %v, want short/path.txt", got.Path)
	}
	if got.Mode != m.Mode || got.UID != m.UID || got.GID != m.GID {
		t.Fatalf("got %+v, want mode/uid/gid %d/%d/%d", got, m.Mode, m.UID, m.GID)
	}
	if got.Mtime != m.Mtime {
		t.Fatalf("Mtime = %v, want %v", got.Mtime, m.Mtime)
	}

	var content bytes.Buffer
	if err := ReadContent(br, &content, 5); err != nil {
		t.Fatalf("ReadContent: %v", err)
	}
	if content.String() != "hello" {
		t.Fatalf("content = %q, want %q", content.String(), "hello")
	}
}

func TestEntryRoundTripOverflowingPath(t *testing.T) {
	longPath := strings.Repeat("a/", 60) + "file.txt" // far past the 100-byte USTAR name field
	m := scar.NewFileMeta(longPath, 0o644, 0, 0)

	raw := writeOneEntry(t, m, "")
	br := ioadapt.NewBlockReader(bytes.NewReader(raw))
	got, ok, err := ReadEntry(br, scar.NewMeta())
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if !ok {
		t.Fatal("ReadEntry reported no entry")
	}
	if got.Path == nil || *got.Path != longPath {
		t.Fatalf("Path = %v, want %q", got.Path, longPath)
	}
}

func TestEntryRoundTripOverflowingMtime(t *testing.T) {
	// Exceeds the 12-octal-digit (0o777777777777) USTAR mtime field.
	m := scar.NewFileMeta("f", 0o644, 0, float64(maxMtime)+1000)

	raw := writeOneEntry(t, m, "")
	br := ioadapt.NewBlockReader(bytes.NewReader(raw))
	got, ok, err := ReadEntry(br, scar.NewMeta())
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if !ok {
		t.Fatal("ReadEntry reported no entry")
	}
	if got.Mtime != m.Mtime {
		t.Fatalf("Mtime = %v, want %v", got.Mtime, m.Mtime)
	}
}

func TestEntryRoundTripOverflowingUIDGID(t *testing.T) {
	// Exceeds the 7-octal-digit (0o7777777) USTAR uid/gid field.
	m := scar.NewFileMeta("f", 0o644, 0, 0)
	m.UID = maxUIDGID + 12345
	m.GID = maxUIDGID + 67890

	raw := writeOneEntry(t, m, "")
	br := ioadapt.NewBlockReader(bytes.NewReader(raw))
	got, ok, err := ReadEntry(br, scar.NewMeta())
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if !ok {
		t.Fatal("ReadEntry reported no entry")
	}
	if got.UID != m.UID {
		t.Fatalf("UID = %v, want %v", got.UID, m.UID)
	}
	if got.GID != m.GID {
		t.Fatalf("GID = %v, want %v", got.GID, m.GID)
	}
}

func TestEndOfArchiveTerminator(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEnd(&buf); err != nil {
		t.Fatalf("WriteEnd: %v", err)
	}
	br := ioadapt.NewBlockReader(bytes.NewReader(buf.Bytes()))
	_, ok, err := ReadEntry(br, scar.NewMeta())
	if err != nil {
		t.Fatalf("ReadEntry at terminator: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false at end-of-archive terminator")
	}
}

func TestGlobalRecordAppliesToSubsequentEntries(t *testing.T) {
	var buf bytes.Buffer
	var recBuf bytes.Buffer
	if err := WriteRecord(&recBuf, keyUname, "globaluser"); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := writeExtensionBlock(&buf, 'g', recBuf.Bytes()); err != nil {
		t.Fatalf("writeExtensionBlock: %v", err)
	}

	m := scar.NewFileMeta("f", 0o644, 0, 0)
	buf.Write(writeOneEntry(t, m, ""))

	br := ioadapt.NewBlockReader(bytes.NewReader(buf.Bytes()))
	global := scar.NewMeta()
	got, ok, err := ReadEntry(br, global)
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if !ok {
		t.Fatal("expected an entry")
	}
	if got.Uname == nil || *got.Uname != "globaluser" {
		t.Fatalf("Uname = %v, want globaluser (from global record)", got.Uname)
	}
}

func TestMetaClonePreservesPresence(t *testing.T) {
	m := scar.NewMeta()
	c := m.Clone()
	if c.Type != m.Type || c.Mode != m.Mode || c.UID != m.UID {
		t.Fatalf("Clone() of absent Meta differs: %+v vs %+v", c, m)
	}
	if !math.IsNaN(c.Mtime) || !math.IsNaN(c.Atime) {
		t.Fatal("Clone() lost the absent-time sentinel")
	}
}
