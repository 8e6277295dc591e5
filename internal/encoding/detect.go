// Package encoding normalizes uploaded statement files to UTF-8 before
// parsing; bank exports arrive in a mix of UTF-8, UTF-16 and legacy
// single-byte charsets.
package encoding

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const sniffLen = 4096

// NewUTF8Reader wraps r with whatever decoding is needed to read its
// content as UTF-8. A UTF-8 BOM is stripped; UTF-16 is detected by BOM;
// other inputs are sniffed with chardet and fall back to Windows-1252.
func NewUTF8Reader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)

	buf, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("peek: %w", err)
	}

	if bytes.HasPrefix(buf, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
		return br, nil
	}

	if bytes.HasPrefix(buf, []byte{0xFF, 0xFE}) {
		return decoded(br, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)), nil
	}

	if bytes.HasPrefix(buf, []byte{0xFE, 0xFF}) {
		return decoded(br, unicode.UTF16(unicode.BigEndian, unicode.UseBOM)), nil
	}

	if utf8.Valid(buf) {
		return br, nil
	}

	if result, err := chardet.NewTextDetector().DetectBest(buf); err == nil {
		switch result.Charset {
		case "UTF-8":
			return br, nil
		case "ISO-8859-1", "windows-1252":
			return decoded(br, charmap.Windows1252), nil
		case "ISO-8859-9":
			return decoded(br, charmap.ISO8859_9), nil
		}
	}

	return decoded(br, charmap.Windows1252), nil
}

func decoded(r io.Reader, enc encoding.Encoding) io.Reader {
	return transform.NewReader(r, enc.NewDecoder())
}
