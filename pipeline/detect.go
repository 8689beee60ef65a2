package pipeline

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// LanguageDetector names the language of a sentence as an ISO 639-1 code
type LanguageDetector interface {
	Detect(text string) (string, bool)
}

// supportedLanguages are the languages with parser, encoder and stopword
// models behind them.
var supportedLanguages = map[string]whatlanggo.Lang{
	"en": whatlanggo.Eng,
	"es": whatlanggo.Spa,
}

// Detector classifies text with whatlanggo, restricted to a whitelist
type Detector struct {
	options whatlanggo.Options
	allowed map[string]bool
}

// NewDetector creates a detector for the given ISO 639-1 codes. Unknown codes
// are ignored; an empty list means every supported language.
func NewDetector(langs ...string) *Detector {
	if len(langs) == 0 {
		langs = []string{"en", "es"}
	}
	d := &Detector{
		options: whatlanggo.Options{Whitelist: make(map[whatlanggo.Lang]bool)},
		allowed: make(map[string]bool),
	}
	for _, code := range langs {
		code = strings.ToLower(strings.TrimSpace(code))
		if lang, ok := supportedLanguages[code]; ok {
			d.options.Whitelist[lang] = true
			d.allowed[code] = true
		}
	}
	return d
}

// Detect returns the language of text, or false when it is not whitelisted
// or cannot be told.
func (d *Detector) Detect(text string) (string, bool) {
	if strings.TrimSpace(text) == "" || len(d.allowed) == 0 {
		return "", false
	}
	info := whatlanggo.DetectWithOptions(text, d.options)
	code := info.Lang.Iso6391()
	return code, d.allowed[code]
}

// Languages lists the whitelisted codes
func (d *Detector) Languages() []string {
	var out []string
	for _, code := range []string{"en", "es"} {
		if d.allowed[code] {
			out = append(out, code)
		}
	}
	return out
}

// SplitSentences cuts text on periods and newlines, dropping fragments of one
// character or less.
func SplitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == '.' || r == '\n' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); len([]rune(p)) > 1 {
			out = append(out, p)
		}
	}
	return out
}
