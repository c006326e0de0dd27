package normalize

import (
	"reflect"
	"testing"

	"github.com/nhle/mailbridge/internal/model"
)

func TestParseAddressList(t *testing.T) {
	check := func(raw string, want []model.Address) {
		t.Helper()
		got := ParseAddressList(raw)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("ParseAddressList(%q) = %+v, want %+v", raw, got, want)
		}
	}

	check("", []model.Address{})
	check(" , ,", []model.Address{})

	check("alice@example.com", []model.Address{
		{Email: "alice@example.com"},
	})
	check("Alice Smith <alice@example.com>", []model.Address{
		{Name: "Alice Smith", Email: "alice@example.com"},
	})
	check("alice@example.com, bob@example.com", []model.Address{
		{Email: "alice@example.com"},
		{Email: "bob@example.com"},
	})

	// Commas inside quoted display names must not split the list.
	check(`"Smith, Alice" <alice@example.com>, bob@example.com`, []model.Address{
		{Name: "Smith, Alice", Email: "alice@example.com"},
		{Email: "bob@example.com"},
	})

	// Encoded-word display names are decoded.
	check("=?utf-8?q?J=C3=BCrgen?= <j@example.com>", []model.Address{
		{Name: "Jürgen", Email: "j@example.com"},
	})

	// Malformed fragments are preserved, not dropped: the address
	// portion survives verbatim so the caller can see what was there.
	check("not-an-address", []model.Address{
		{Email: "not-an-address"},
	})
	check("Broken Name <>, bob@example.com", []model.Address{
		{Name: "Broken Name", Email: ""},
		{Email: "bob@example.com"},
	})
	check("weird <no-domain>", []model.Address{
		{Name: "weird", Email: "no-domain"},
	})
}

func TestParseAddress(t *testing.T) {
	got := ParseAddress("Alice <alice@example.com>, bob@example.com")
	want := model.Address{Name: "Alice", Email: "alice@example.com"}
	if got != want {
		t.Fatalf("ParseAddress first entry = %+v, want %+v", got, want)
	}

	if got := ParseAddress(""); got != (model.Address{}) {
		t.Fatalf("ParseAddress(\"\") = %+v, want zero address", got)
	}
}

func TestSplitAddressList(t *testing.T) {
	check := func(raw string, want []string) {
		t.Helper()
		got := splitAddressList(raw)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("splitAddressList(%q) = %q, want %q", raw, got, want)
		}
	}

	check("a, b", []string{"a", " b"})
	check(`"x, y" <a@b>, c@d`, []string{`"x, y" <a@b>`, " c@d"})
	check("a (comma, inside) <a@b>, c@d", []string{"a (comma, inside) <a@b>", " c@d"})
	check(`escaped \" quote, next`, []string{`escaped \" quote`, " next"})
}
