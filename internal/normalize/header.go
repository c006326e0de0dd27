package normalize

import (
	"io"
	"mime"
	"strings"

	"github.com/emersion/go-message/charset"
)

// wordDecoder decodes RFC 2047 encoded-words. Unknown or unsupported
// charsets fall back to passing the raw bytes through with invalid
// UTF-8 sequences replaced, rather than failing the whole header.
var wordDecoder = mime.WordDecoder{CharsetReader: tolerantCharsetReader}

func tolerantCharsetReader(label string, input io.Reader) (io.Reader, error) {
	r, err := charset.Reader(label, input)
	if err == nil {
		return r, nil
	}
	data, readErr := io.ReadAll(input)
	if readErr != nil {
		return strings.NewReader(""), nil
	}
	return strings.NewReader(strings.ToValidUTF8(string(data), "�")), nil
}

// DecodeHeader decodes a raw header value into a plain string. It
// tries an ordered list of strategies: RFC 2047 decoding with charset
// fallback first, then the raw value with undecodable bytes replaced
// by the Unicode substitution character. Decoding an already-decoded
// plain string returns it unchanged.
func DecodeHeader(raw string) string {
	if !strings.Contains(raw, "=?") {
		return strings.ToValidUTF8(raw, "�")
	}
	decoded, err := wordDecoder.DecodeHeader(raw)
	if err != nil {
		return strings.ToValidUTF8(raw, "�")
	}
	return strings.ToValidUTF8(decoded, "�")
}
