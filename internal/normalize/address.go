package normalize

import (
	"net/mail"
	"strings"

	"github.com/nhle/mailbridge/internal/model"
)

// addressParser parses well-formed RFC 5322 addresses, decoding
// encoded-words in display names through the shared word decoder.
var addressParser = mail.AddressParser{WordDecoder: &wordDecoder}

// ParseAddressList parses a raw address-list header value into an
// ordered list of addresses. Malformed entries are preserved: when a
// fragment does not parse as local@domain, the fragment's address
// portion is kept verbatim as the Email value so callers can see that
// something was present. An empty or entirely unparseable header
// yields an empty list, never an error.
func ParseAddressList(raw string) []model.Address {
	addrs := []model.Address{}
	for _, fragment := range splitAddressList(raw) {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}
		if parsed, err := addressParser.Parse(fragment); err == nil {
			addrs = append(addrs, model.Address{
				Name:  DecodeHeader(parsed.Name),
				Email: parsed.Address,
			})
			continue
		}
		addrs = append(addrs, fallbackAddress(fragment))
	}
	return addrs
}

// ParseAddress parses a single-address header such as From, returning
// the first entry or a zero Address if the header is empty.
func ParseAddress(raw string) model.Address {
	addrs := ParseAddressList(raw)
	if len(addrs) == 0 {
		return model.Address{}
	}
	return addrs[0]
}

// splitAddressList splits on top-level commas, respecting quoted
// strings, nested comments, and angle brackets so commas inside a
// display name do not split addresses.
func splitAddressList(raw string) []string {
	var (
		parts    []string
		start    int
		quoted   bool
		escaped  bool
		comments int
		angles   int
	)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			quoted = !quoted
		case '(':
			if !quoted {
				comments++
			}
		case ')':
			if !quoted && comments > 0 {
				comments--
			}
		case '<':
			if !quoted && comments == 0 {
				angles++
			}
		case '>':
			if !quoted && comments == 0 && angles > 0 {
				angles--
			}
		case ',':
			if !quoted && comments == 0 && angles == 0 {
				parts = append(parts, raw[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, raw[start:])
	return parts
}

// fallbackAddress extracts a best-effort name and address from a
// fragment that failed strict parsing. The address portion is kept
// verbatim rather than discarded.
func fallbackAddress(fragment string) model.Address {
	open := strings.LastIndexByte(fragment, '<')
	end := strings.LastIndexByte(fragment, '>')
	if open >= 0 && end > open {
		name := strings.TrimSpace(fragment[:open])
		name = strings.Trim(name, `"`)
		return model.Address{
			Name:  DecodeHeader(name),
			Email: strings.TrimSpace(fragment[open+1 : end]),
		}
	}
	return model.Address{Email: fragment}
}
