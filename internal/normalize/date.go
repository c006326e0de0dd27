package normalize

import (
	"net/mail"
	"strings"
	"time"
)

// TimestampSentinel is the documented value returned when a Date
// header cannot be resolved by any strategy.
const TimestampSentinel = ""

// dateLayouts are the fallback layouts tried, in order, after strict
// RFC 5322 parsing fails. They cover the common malformed variants:
// missing timezone, two-digit year, missing weekday, and a few
// non-standard renderings seen in the wild.
var dateLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05",
	"Mon, 2 Jan 06 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.ANSIC,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ResolveDate converts a raw Date header value into a canonical UTC
// timestamp in RFC 3339 form. Strategies are tried in order with the
// first success short-circuiting; if all fail the sentinel is
// returned with ok=false. It never fails the caller.
func ResolveDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TimestampSentinel, false
	}
	if t, err := mail.ParseDate(raw); err == nil {
		return t.UTC().Format(time.RFC3339), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(time.RFC3339), true
		}
	}
	return TimestampSentinel, false
}
