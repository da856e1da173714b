package gen

import (
	"unicode/utf8"

	"github.com/go-openapi/inflect"
	"github.com/jinzhu/inflection"
)

// Singularizer derives the element name of a collection field.
type Singularizer func(plural string) string

// NaiveSingular strips exactly one trailing character. A one-character
// name yields the empty string.
func NaiveSingular(plural string) string {
	if plural == "" {
		return ""
	}
	_, size := utf8.DecodeLastRuneInString(plural)
	return plural[:len(plural)-size]
}

// InflectSingular singularizes with English inflection rules.
func InflectSingular(plural string) string {
	return inflect.Singularize(plural)
}

// InflectionSingular singularizes with the rule set of
// github.com/jinzhu/inflection, which keeps uncountable words as is.
func InflectionSingular(plural string) string {
	return inflection.Singular(plural)
}

// ParseSingularizer returns the singularizer for a name.
func ParseSingularizer(name string) (Singularizer, error) {
	switch name {
	case "", "naive":
		return NaiveSingular, nil
	case "inflect":
		return InflectSingular, nil
	case "inflection":
		return InflectionSingular, nil
	}
	return nil, NewConfigError("Singularize", name, "unsupported singularizer; use naive, inflect or inflection")
}

// Ucfirst upper-cases the first byte of s when it is an ASCII letter.
func Ucfirst(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// accessor builds a method name from a verb and a field name.
func accessor(verb, name string) string {
	return verb + Ucfirst(name)
}
