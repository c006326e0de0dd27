package normalize

import "testing"

func TestResolveDate(t *testing.T) {
	good := func(raw, want string) {
		t.Helper()
		got, ok := ResolveDate(raw)
		if !ok {
			t.Fatalf("ResolveDate(%q): not resolved", raw)
		}
		if got != want {
			t.Fatalf("ResolveDate(%q) = %q, want %q", raw, got, want)
		}
	}
	bad := func(raw string) {
		t.Helper()
		got, ok := ResolveDate(raw)
		if ok || got != TimestampSentinel {
			t.Fatalf("ResolveDate(%q) = (%q, %v), want sentinel", raw, got, ok)
		}
	}

	// Strict RFC 5322.
	good("Mon, 2 Jan 2006 15:04:05 -0700", "2006-01-02T22:04:05Z")
	good("Tue, 10 Feb 2026 08:30:00 +0000", "2026-02-10T08:30:00Z")

	// Common malformed variants handled by the fallback layouts.
	good("2 Jan 2006 15:04:05 -0700", "2006-01-02T22:04:05Z")
	good("Mon, 2 Jan 2006 15:04:05", "2006-01-02T15:04:05Z")
	good("2006-01-02T15:04:05Z", "2006-01-02T15:04:05Z")
	good("2006-01-02 15:04:05", "2006-01-02T15:04:05Z")
	good("2006-01-02", "2006-01-02T00:00:00Z")

	// Unresolvable values yield the sentinel, never an error.
	bad("")
	bad("   ")
	bad("not-a-date")
	bad("yesterday at noon")
	bad("32 Jan 2006 15:04:05")
}
