package normalize

import (
	"io"
	"unicode/utf8"
)

// Clip reads from r and returns at most ceiling bytes. It buffers at
// most ceiling+1 bytes while detecting overflow, then counts (but
// does not store) the remainder so the caller learns the declared
// size. Read errors terminate the capture early and are swallowed:
// the bytes obtained so far are returned as a best-effort payload.
func Clip(r io.Reader, ceiling int) (data []byte, declared int64, truncated bool) {
	if ceiling < 0 {
		ceiling = 0
	}
	data, err := io.ReadAll(io.LimitReader(r, int64(ceiling)+1))
	if len(data) > ceiling {
		data = data[:ceiling]
		truncated = true
	}
	declared = int64(len(data))
	if truncated {
		declared++
		if err == nil {
			n, _ := io.Copy(io.Discard, r)
			declared += n
		}
	}
	return data, declared, truncated
}

// ClipString cuts s at ceiling bytes, backing off a partial trailing
// rune so the result stays valid UTF-8. Charset recovery can expand a
// payload past the ceiling it was captured under; this restores the
// invariant.
func ClipString(s string, ceiling int) string {
	if ceiling < 0 {
		ceiling = 0
	}
	if len(s) <= ceiling {
		return s
	}
	s = s[:ceiling]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// ClipBytes applies a hard byte cut at the ceiling to an in-memory
// payload.
func ClipBytes(b []byte, ceiling int) ([]byte, bool) {
	if ceiling < 0 {
		ceiling = 0
	}
	if len(b) > ceiling {
		return b[:ceiling], true
	}
	return b, false
}
