// Package match builds word-level attention graphs from sentences and
// searches them for candidate (head, relation, tail) triplets.
package match

import "context"

// Triplet is a candidate fact extracted from one sentence
type Triplet struct {
	Head       string   `json:"h"`
	Tail       string   `json:"t"`
	Relations  []string `json:"r"`
	Confidence float64  `json:"c"`
}

// Path is a head-to-tail walk through the attention graph. Confidence is the
// sum of the traversed edge weights.
type Path struct {
	Nodes      []int
	Confidence float64
}

// Span is a noun chunk over token positions [Start, End)
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Doc is a parsed sentence
type Doc struct {
	Tokens []string `json:"tokens"`
	Chunks []Span   `json:"noun_chunks"`
}

// Encoding is the encoder output for a word sequence. Attentions is indexed
// [layer][head][from][to] over sub-tokens including the boundary tokens;
// WordIDs maps each sub-token (boundaries excluded) to its word index.
type Encoding struct {
	Attentions [][][][]float64 `json:"attentions"`
	WordIDs    []int           `json:"word_ids"`
}

// Encoder runs the transformer over a word sequence
type Encoder interface {
	Encode(ctx context.Context, words []string) (Encoding, error)
}

// Parser tokenizes a sentence and finds its noun chunks
type Parser interface {
	Parse(ctx context.Context, sentence, lang string) (Doc, error)
}

// Lemmatizer returns the dictionary form of a token
type Lemmatizer interface {
	Lemma(ctx context.Context, token, lang string) (string, error)
}
