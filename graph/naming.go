package graph

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NamingConvention maps client property names to the names used by a
// data service, and back.
type NamingConvention interface {
	ServerName(client string) string
	ClientName(server string) string
}

// NamingFunc adapts a pair of functions to NamingConvention.
type NamingFunc struct {
	ToServer func(string) string
	ToClient func(string) string
}

// ServerName implements NamingConvention.
func (f NamingFunc) ServerName(s string) string { return f.ToServer(s) }

// ClientName implements NamingConvention.
func (f NamingFunc) ClientName(s string) string { return f.ToClient(s) }

var (
	// Identity leaves names untouched.
	Identity NamingConvention = NamingFunc{ToServer: same, ToClient: same}

	// CamelCase maps camelCase client names to PascalCase server names,
	// e.g. "companyName" <-> "CompanyName".
	CamelCase NamingConvention = NamingFunc{ToServer: pascal, ToClient: camel}
)

func same(s string) string { return s }

func pascal(s string) string {
	return mapFirst(s, cases.Upper(language.Und))
}

func camel(s string) string {
	// Leading acronyms are lowered as a unit: "IDNumber" -> "idNumber".
	n := 0
	for n < len(s) && 'A' <= s[n] && s[n] <= 'Z' {
		n++
	}
	switch {
	case n == 0:
		return s
	case n == len(s):
		return cases.Lower(language.Und).String(s)
	case n > 1:
		n--
	}
	return cases.Lower(language.Und).String(s[:n]) + s[n:]
}

// mapFirst applies c to the first rune of s. Casers are stateful, callers
// pass a fresh one.
func mapFirst(s string, c cases.Caser) string {
	if s == "" {
		return s
	}
	_, size := utf8.DecodeRuneInString(s)
	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(c.String(s[:size]))
	b.WriteString(s[size:])
	return b.String()
}
