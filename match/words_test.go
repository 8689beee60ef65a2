package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildWords(t *testing.T) {
	doc := Doc{
		Tokens: []string{"The", "big", "dog", "chased", "a", "cat"},
		Chunks: []Span{{Start: 0, End: 3, Text: "The big dog"}, {Start: 4, End: 6, Text: "a cat"}},
	}
	w := BuildWords(doc)

	assert.Equal(t, []string{"The big dog", "chased", "a cat"}, w.Texts)
	assert.Equal(t, []int{0, 2}, w.Chunks)
	assert.Equal(t, []Pair{{Head: 0, Tail: 2}, {Head: 2, Tail: 0}}, w.Pairs())
	assert.Equal(t, map[int]bool{0: true, 2: true}, w.Blacklist())
}

func TestBuildWordsAdjacentChunks(t *testing.T) {
	doc := Doc{
		Tokens: []string{"Paris", "France", "Paris"},
		Chunks: []Span{{0, 1, "Paris"}, {1, 2, "France"}, {2, 3, "Paris"}, {5, 9, "bogus"}},
	}
	w := BuildWords(doc)

	assert.Equal(t, []string{"Paris", "France", "Paris"}, w.Texts)
	assert.Equal(t, []int{0, 1, 2}, w.Chunks)
	assert.Equal(t, []Pair{
		{Head: 0, Tail: 1},
		{Head: 1, Tail: 0},
		{Head: 1, Tail: 2},
		{Head: 2, Tail: 1},
	}, w.Pairs(), "chunks with equal text are not paired")

	_, ok := w.Text(3)
	assert.False(t, ok)
}
