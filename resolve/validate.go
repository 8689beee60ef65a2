package resolve

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/match"
)

var (
	spaceSeparators = strings.NewReplacer(",", " ", "-", " ", "_", " ")
	dropSeparators  = strings.NewReplacer(",", "", "-", "", "_", "")
)

// Validate normalizes a triplet and applies the lexical checks that run
// before mapping. Commas, hyphens and underscores become spaces in head and
// tail and are removed from the relation. Head, tail and relation must start
// with a letter or digit, head and tail must be longer than three runes, the
// relation longer than one, and the relation must not start in upper case.
func Validate(t match.Triplet) (match.Triplet, error) {
	if len(t.Relations) == 0 {
		return t, errors.Wrap(errors.ErrRejected, "no relation")
	}

	out := t
	out.Head = strings.TrimSpace(spaceSeparators.Replace(t.Head))
	out.Tail = strings.TrimSpace(spaceSeparators.Replace(t.Tail))
	out.Relations = append([]string(nil), t.Relations...)
	out.Relations[0] = strings.TrimSpace(dropSeparators.Replace(t.Relations[0]))

	h, tail, r := out.Head, out.Tail, out.Relations[0]
	if !startsWithWord(h) || !startsWithWord(tail) || !startsWithWord(r) {
		return out, errors.Wrapf(errors.ErrRejected, "non-word start in (%q, %q, %q)", h, r, tail)
	}
	if utf8.RuneCountInString(h) <= 3 || utf8.RuneCountInString(tail) <= 3 {
		return out, errors.Wrapf(errors.ErrRejected, "short head or tail (%q, %q)", h, tail)
	}
	if utf8.RuneCountInString(r) <= 1 {
		return out, errors.Wrapf(errors.ErrRejected, "short relation %q", r)
	}
	if first, _ := utf8.DecodeRuneInString(r); unicode.IsUpper(first) {
		return out, errors.Wrapf(errors.ErrRejected, "relation %q starts upper case", r)
	}
	return out, nil
}

func startsWithWord(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return false
	}
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
