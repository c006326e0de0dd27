package normalize

import "testing"

func TestDecodeHeader(t *testing.T) {
	check := func(raw, want string) {
		t.Helper()
		if got := DecodeHeader(raw); got != want {
			t.Fatalf("DecodeHeader(%q) = %q, want %q", raw, got, want)
		}
	}

	// Plain values pass through untouched.
	check("", "")
	check("Hello world", "Hello world")
	check("Re: meeting notes", "Re: meeting notes")

	// RFC 2047 Q and B encodings.
	check("=?utf-8?q?caf=C3=A9?=", "café")
	check("=?UTF-8?B?Z3LDvG7DqQ==?=", "grüné")
	check("=?iso-8859-1?q?caf=E9?=", "café")

	// Adjacent encoded-words with plain text around them.
	check("Fwd: =?utf-8?q?=C3=BCber?= budget", "Fwd: über budget")

	// Unknown charsets degrade to the raw bytes, invalid sequences
	// replaced rather than dropped.
	check("=?x-no-such-charset?q?caf=E9?=", "caf�")

	// Undecodable garbage keeps the raw value.
	check("=?utf-8?x?broken?=", "=?utf-8?x?broken?=")
}

func TestDecodeHeaderIdempotent(t *testing.T) {
	inputs := []string{
		"plain subject",
		"café already decoded",
		"Fwd: über budget",
	}
	for _, in := range inputs {
		once := DecodeHeader(in)
		twice := DecodeHeader(once)
		if once != twice {
			t.Fatalf("DecodeHeader not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
