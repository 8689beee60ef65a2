package match

import (
	"github.com/teranos/ontomap/errors"
	"github.com/teranos/ontomap/internal/util"
)

// LayerOptions selects the attention matrix used for a sentence
type LayerOptions struct {
	LayerIndex int  // negative counts from the last layer
	AvgHeads   bool // mean over heads, otherwise Head is used
	Head       int
	Trim       bool // drop the boundary tokens
}

// SelectLayer picks one sub-token×sub-token matrix out of the encoder output
func SelectLayer(attentions [][][][]float64, opts LayerOptions) ([][]float64, error) {
	if len(attentions) == 0 {
		return nil, errors.NewInvalidInputError("no attention layers")
	}
	idx := opts.LayerIndex
	if idx < 0 {
		idx += len(attentions)
	}
	if idx < 0 || idx >= len(attentions) {
		return nil, errors.NewInvalidInputError("layer %d out of range (%d layers)", opts.LayerIndex, len(attentions))
	}
	heads := attentions[idx]
	if len(heads) == 0 {
		return nil, errors.NewInvalidInputError("layer %d has no heads", idx)
	}

	var m [][]float64
	if opts.AvgHeads {
		var err error
		if m, err = meanHeads(heads); err != nil {
			return nil, err
		}
	} else {
		if opts.Head < 0 || opts.Head >= len(heads) {
			return nil, errors.NewInvalidInputError("head %d out of range (%d heads)", opts.Head, len(heads))
		}
		m = copyMatrix(heads[opts.Head])
	}
	if err := checkSquare(m); err != nil {
		return nil, err
	}

	if opts.Trim {
		if len(m) < 2 {
			return nil, errors.NewInvalidInputError("cannot trim a %dx%d matrix", len(m), len(m))
		}
		m = m[1 : len(m)-1]
		for i := range m {
			m[i] = m[i][1 : len(m[i])-1]
		}
	}
	return m, nil
}

// Compress reduces a sub-token attention matrix to word level. Consecutive
// rows with the same word id are averaged, then the same is done to the
// columns by transposing, compressing and transposing back. The result is
// W×W for W runs of word ids.
func Compress(attention [][]float64, wordIDs []int) ([][]float64, error) {
	if len(wordIDs) != len(attention) {
		return nil, errors.NewInvalidInputError("word map has %d entries, matrix has %d rows", len(wordIDs), len(attention))
	}
	if err := checkSquare(attention); err != nil {
		return nil, err
	}
	rows := compressRows(attention, wordIDs)
	cols := compressRows(transpose(rows), wordIDs)
	return transpose(cols), nil
}

func compressRows(m [][]float64, wordIDs []int) [][]float64 {
	var out [][]float64
	for start := 0; start < len(m); {
		end := start + 1
		for end < len(m) && wordIDs[end] == wordIDs[start] {
			end++
		}
		out = append(out, meanRows(m[start:end]))
		start = end
	}
	return out
}

func meanRows(rows [][]float64) []float64 {
	out := make([]float64, len(rows[0]))
	col := make([]float64, len(rows))
	for j := range out {
		for i, r := range rows {
			col[i] = r[j]
		}
		out[j] = util.Mean(col)
	}
	return out
}

func meanHeads(heads [][][]float64) ([][]float64, error) {
	n := len(heads[0])
	for k, h := range heads {
		if len(h) != n {
			return nil, errors.NewInvalidInputError("head %d has %d rows, want %d", k, len(h), n)
		}
		if err := checkSquare(h); err != nil {
			return nil, errors.Wrapf(err, "head %d", k)
		}
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, len(heads[0][i]))
		for j := range out[i] {
			var sum float64
			for _, h := range heads {
				sum += h[i][j]
			}
			out[i][j] = sum / float64(len(heads))
		}
	}
	return out, nil
}

func transpose(m [][]float64) [][]float64 {
	if len(m) == 0 {
		return nil
	}
	out := make([][]float64, len(m[0]))
	for j := range out {
		out[j] = make([]float64, len(m))
		for i := range m {
			out[j][i] = m[i][j]
		}
	}
	return out
}

func copyMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, r := range m {
		out[i] = append([]float64(nil), r...)
	}
	return out
}

func checkSquare(m [][]float64) error {
	for i, r := range m {
		if len(r) != len(m) {
			return errors.NewInvalidInputError("row %d has %d columns, want %d", i, len(r), len(m))
		}
	}
	return nil
}

// Edge is a forward edge of the attention graph
type Edge struct {
	To     int
	Weight float64
}

// Graph is the word-level attention graph. Edges only go forward (i<j) in
// increasing order of j, so it is acyclic. Immutable after BuildGraph.
type Graph struct {
	adj [][]Edge
}

// BuildGraph creates adj[i] = [(j, A[i][j]) for j > i]
func BuildGraph(a [][]float64) *Graph {
	g := &Graph{adj: make([][]Edge, len(a))}
	for i := range a {
		for j := i + 1; j < len(a); j++ {
			g.adj[i] = append(g.adj[i], Edge{To: j, Weight: a[i][j]})
		}
	}
	return g
}

// Size returns the number of nodes
func (g *Graph) Size() int { return len(g.adj) }

// Successors returns the outgoing edges of node
func (g *Graph) Successors(node int) []Edge {
	if node < 0 || node >= len(g.adj) {
		return nil
	}
	return g.adj[node]
}
