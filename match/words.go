package match

// Words is a sentence as graph nodes: every noun chunk collapses into one
// word, every other token is its own word. Node ids are positions in Texts.
type Words struct {
	Texts  []string
	Chunks []int // positions of noun-chunk words
}

// BuildWords collapses the noun chunks of doc
func BuildWords(doc Doc) Words {
	starts := make(map[int]Span, len(doc.Chunks))
	for _, c := range doc.Chunks {
		if c.Start >= 0 && c.End > c.Start && c.End <= len(doc.Tokens) {
			starts[c.Start] = c
		}
	}

	var w Words
	for i := 0; i < len(doc.Tokens); {
		if c, ok := starts[i]; ok {
			w.Chunks = append(w.Chunks, len(w.Texts))
			w.Texts = append(w.Texts, c.Text)
			i = c.End
			continue
		}
		w.Texts = append(w.Texts, doc.Tokens[i])
		i++
	}
	return w
}

// Text returns the word at node id, or false when out of range
func (w Words) Text(id int) (string, bool) {
	if id < 0 || id >= len(w.Texts) {
		return "", false
	}
	return w.Texts[id], true
}

// Pairs returns every ordered (head, tail) pair of chunk nodes with distinct
// text, in chunk order.
func (w Words) Pairs() []Pair {
	var out []Pair
	for _, h := range w.Chunks {
		for _, t := range w.Chunks {
			if w.Texts[h] != w.Texts[t] {
				out = append(out, Pair{Head: h, Tail: t})
			}
		}
	}
	return out
}

// Blacklist returns the chunk node set; a path whose first relation node is a
// chunk is not a relation.
func (w Words) Blacklist() map[int]bool {
	out := make(map[int]bool, len(w.Chunks))
	for _, c := range w.Chunks {
		out[c] = true
	}
	return out
}
