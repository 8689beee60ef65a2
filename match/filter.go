package match

import (
	"bufio"
	"context"
	"embed"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/teranos/ontomap/errors"
)

//go:embed stopwords/*.txt
var stopwordFiles embed.FS

// Stopwords is a case-folded word set
type Stopwords map[string]struct{}

// Contains reports whether w (case-folded) is a stopword
func (s Stopwords) Contains(w string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(w))]
	return ok
}

// LoadStopwords returns the built-in set for lang ("en" or "es")
func LoadStopwords(lang string) (Stopwords, error) {
	f, err := stopwordFiles.Open("stopwords/" + lang + ".txt")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUnsupportedLanguage, "no stopwords for %q", lang)
	}
	defer f.Close()

	set := make(Stopwords)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || (strings.HasPrefix(line, "#") && len(line) > 1) {
			continue
		}
		set[strings.ToLower(line)] = struct{}{}
	}
	return set, errors.Wrap(sc.Err(), "read stopwords")
}

// Filter turns candidate paths into triplets, rejecting the ones whose
// relation is not lexically meaningful.
type Filter struct {
	lemmatizer Lemmatizer
	stopwords  map[string]Stopwords
	logger     *zap.SugaredLogger
}

// NewFilter loads the stopword set of every language in langs
func NewFilter(lemmatizer Lemmatizer, langs []string, logger *zap.SugaredLogger) (*Filter, error) {
	f := &Filter{lemmatizer: lemmatizer, stopwords: make(map[string]Stopwords), logger: logger}
	for _, lang := range langs {
		set, err := LoadStopwords(lang)
		if err != nil {
			return nil, err
		}
		f.stopwords[lang] = set
	}
	return f, nil
}

// Apply maps path back to text and validates it. The bool is false when the
// path is rejected.
func (f *Filter) Apply(ctx context.Context, path Path, words Words, lang string) (Triplet, bool) {
	stop, ok := f.stopwords[lang]
	if !ok || len(path.Nodes) < 2 {
		return Triplet{}, false
	}

	head, okHead := words.Text(path.Nodes[0])
	tail, okTail := words.Text(path.Nodes[len(path.Nodes)-1])
	if !okHead || !okTail {
		return Triplet{}, false
	}

	var relations []string
	for _, id := range path.Nodes[1 : len(path.Nodes)-1] {
		token, ok := words.Text(id)
		if !ok {
			continue
		}
		lemma, err := f.lemmatizer.Lemma(ctx, token, lang)
		if err != nil {
			f.logger.Warnw("Lemmatizer failed, dropping path", "token", token, "error", err)
			return Triplet{}, false
		}
		relations = append(relations, lemma)
	}

	if len(relations) == 0 {
		return Triplet{}, false
	}
	for _, r := range relations {
		if stop.Contains(r) || isNumeric(r) {
			return Triplet{}, false
		}
	}
	if stop.Contains(head) || stop.Contains(tail) {
		return Triplet{}, false
	}

	return Triplet{Head: head, Tail: tail, Relations: relations, Confidence: path.Confidence}, true
}

// isNumeric matches strings made only of numeric runes
func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
