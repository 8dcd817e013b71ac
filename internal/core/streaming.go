package core

// streaming.go holds the readers used when pulling a dataset body:
//
//   - SkipBOM drops the UTF-8 BOM (0xEF 0xBB 0xBF) of spreadsheet exports
//   - CountingReader tracks bytes read for logging
//   - ReadAllLimited reads a body with a size cap
//   - ToUTF8 decodes Windows-1252 text when the bytes are not valid UTF-8
//   - SniffDelimiter guesses the separator of delimited text

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkipBOM returns a reader over r without its leading UTF-8 BOM. A read
// error met while looking for the BOM is returned by the first Read.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return br
}

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
}

// NewCountingReader creates a counting reader.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{reader: r}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// ReadAllLimited reads r to the end. When max is positive and the body is
// longer, it fails with ErrTooLarge.
func ReadAllLimited(r io.Reader, max int64) ([]byte, error) {
	if max <= 0 {
		return io.ReadAll(r)
	}
	b, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > max {
		return nil, fmt.Errorf("body %w of %d bytes", ErrTooLarge, max)
	}
	return b, nil
}

// ToUTF8 returns b as UTF-8 text. Input that is not valid UTF-8 is decoded
// as Windows-1252, the default encoding of French spreadsheet exports. The
// BOM is removed earlier, by SkipBOM, when the body is read.
func ToUTF8(b []byte) []byte {
	if utf8.Valid(b) {
		return b
	}
	out, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return bytes.ToValidUTF8(b, []byte("\uFFFD"))
	}
	return out
}

// SniffDelimiter picks the most frequent of ; , tab and | on the first line.
// Ties go to the earlier candidate, so French exports default to ';'.
func SniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, n := ',', 0
	for _, c := range []rune{';', ',', '\t', '|'} {
		if k := bytes.Count(line, []byte(string(c))); k > n {
			best, n = c, k
		}
	}
	return best
}
