// Package pax implements the PAX extended-header syntax (self-delimiting
// "LEN SP key=value LF" records) and composes it with the USTAR block codec
// and GNU L/K long-name extensions into the entry reader and writer.
package pax

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/scar-format/scar/ioadapt"
)

// recordKeys are the field names this format recognizes in a PAX record.
// Any other key is skipped by the reader, per the format's "unknown keys
// silently skipped" rule.
const (
	keyAtime      = "atime"
	keyCharset    = "charset"
	keyComment    = "comment"
	keyGID        = "gid"
	keyGname      = "gname"
	keyHdrcharset = "hdrcharset"
	keyLinkpath   = "linkpath"
	keyMtime      = "mtime"
	keyPath       = "path"
	keySize       = "size"
	keyUID        = "uid"
	keyUname      = "uname"
)

// ReadRecord parses exactly one self-delimiting record from br: it reads
// the decimal LEN prefix (computed, not assumed), a space, the key up to
// '=', and consumes exactly the remaining value bytes plus the trailing LF.
// It returns the record's key, value, and its total encoded length in
// bytes (equal to the parsed LEN).
func ReadRecord(br *ioadapt.BlockReader) (key, value string, total uint64, err error) {
	var digits []byte
	for {
		c, ok, err := br.Peek()
		if err != nil {
			return "", "", 0, err
		}
		if !ok {
			return "", "", 0, fmt.Errorf("pax: eof reading record length")
		}
		if c < '0' || c > '9' {
			break
		}
		digits = append(digits, c)
		br.Consume()
	}
	if len(digits) == 0 {
		return "", "", 0, fmt.Errorf("pax: malformed record: missing length")
	}
	sp, err := br.ReadByte()
	if err != nil {
		return "", "", 0, err
	}
	if sp != ' ' {
		return "", "", 0, fmt.Errorf("pax: malformed record: expected space after length")
	}
	total, err = strconv.ParseUint(string(digits), 10, 64)
	if err != nil {
		return "", "", 0, fmt.Errorf("pax: bad record length: %w", err)
	}
	consumed := uint64(len(digits)) + 1
	if total < consumed+1 {
		return "", "", 0, fmt.Errorf("pax: record length too short")
	}
	rest, err := br.ReadExact(int(total - consumed))
	if err != nil {
		return "", "", 0, err
	}
	if rest[len(rest)-1] != '\n' {
		return "", "", 0, fmt.Errorf("pax: record not newline-terminated")
	}
	rest = rest[:len(rest)-1]
	eq := strings.IndexByte(string(rest), '=')
	if eq < 0 {
		return "", "", 0, fmt.Errorf("pax: record missing '='")
	}
	return string(rest[:eq]), string(rest[eq+1:]), total, nil
}

// encodedLen computes the self-delimiting record length L such that
// L == digits(L) + len(" key=value\n"), the unique fixed point obtained by
// adjusting the digit count upward whenever including it would itself
// overflow into another digit.
func encodedLen(key, value string) int {
	const sep = 3 // ' ', '=', '\n'
	size := len(key) + len(value) + sep
	size += len(strconv.Itoa(size))
	for {
		next := len(key) + len(value) + sep + len(strconv.Itoa(size))
		if next == size {
			return size
		}
		size = next
	}
}

// WriteRecord writes one "LEN SP key=value LF" record to w.
func WriteRecord(w io.Writer, key, value string) error {
	l := encodedLen(key, value)
	_, err := fmt.Fprintf(w, "%d %s=%s\n", l, key, value)
	return err
}

// FormatTime renders a Meta time value the way the writer emits it: a
// signed decimal with up to nine fractional digits, trailing zero
// fraction digits suppressed, and the decimal point omitted entirely when
// there is no fraction.
func FormatTime(t float64) string {
	neg := t < 0
	if neg {
		t = -t
	}
	sec := int64(t)
	nanos := int64(math.Round((t - float64(sec)) * 1e9))
	if nanos >= 1_000_000_000 {
		sec++
		nanos -= 1_000_000_000
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(strconv.FormatInt(sec, 10))
	if nanos > 0 {
		frac := fmt.Sprintf("%09d", nanos)
		frac = strings.TrimRight(frac, "0")
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// ParseTime parses a PAX time value, a signed decimal with an optional
// fractional part.
func ParseTime(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
