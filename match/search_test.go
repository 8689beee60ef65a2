package match

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// uniform returns an n×n matrix filled with w
func uniform(n int, w float64) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		for j := range m[i] {
			m[i][j] = w
		}
	}
	return m
}

func nodes(paths []Path) [][]int {
	out := make([][]int, len(paths))
	for i, p := range paths {
		out[i] = p.Nodes
	}
	return out
}

func TestBFSDiscoveryOrder(t *testing.T) {
	m := indexMatrix(4)
	g := BuildGraph(m)

	paths := g.BFS(0, 3)
	assert.Equal(t, [][]int{{0, 3}, {0, 1, 3}, {0, 2, 3}}, nodes(paths))
	assert.Equal(t, m[0][3], paths[0].Confidence)
	assert.Equal(t, m[0][1]+m[1][3], paths[1].Confidence, "confidence is the exact edge sum")
	assert.Equal(t, m[0][2]+m[2][3], paths[2].Confidence)
}

func TestBFSStopsScanAtTarget(t *testing.T) {
	g := BuildGraph(uniform(4, 0.1))

	// node 3 comes after the target in 0's successors, so it is never queued
	paths := g.BFS(0, 2)
	assert.Equal(t, [][]int{{0, 2}, {0, 1, 2}}, nodes(paths))
}

func TestBFSVisitsEachNodeOnce(t *testing.T) {
	g := BuildGraph(uniform(6, 0.2))

	paths := g.BFS(0, 5)
	require.Len(t, paths, 5)
	seen := make(map[int]int)
	for _, p := range paths {
		for _, n := range p.Nodes[1 : len(p.Nodes)-1] {
			seen[n]++
		}
	}
	for n, count := range seen {
		assert.Equal(t, 1, count, "node %d expanded more than once", n)
	}
	assert.Empty(t, g.BFS(5, 0), "edges only go forward")
	assert.Empty(t, g.BFS(9, 0))
}

func TestCandidatePathsFilters(t *testing.T) {
	g := BuildGraph(indexMatrix(5))

	all := g.CandidatePaths(0, 4, 3, nil)
	for _, p := range all {
		assert.GreaterOrEqual(t, len(p.Nodes), 3)
	}
	assert.Equal(t, [][]int{{0, 3, 4}, {0, 2, 4}, {0, 1, 4}}, nodes(all), "sorted by descending confidence")

	filtered := g.CandidatePaths(0, 4, 3, map[int]bool{2: true})
	assert.Equal(t, [][]int{{0, 3, 4}, {0, 1, 4}}, nodes(filtered))

	assert.Empty(t, g.CandidatePaths(0, 4, 4, nil))
	assert.Len(t, g.CandidatePaths(0, 4, 1, nil), 3, "minimum length never drops below 3")
}

func TestCandidatePathsStableTies(t *testing.T) {
	g := BuildGraph(uniform(5, 0.5))

	paths := g.CandidatePaths(0, 4, 3, nil)
	assert.Equal(t, [][]int{{0, 1, 4}, {0, 2, 4}, {0, 3, 4}}, nodes(paths), "ties keep discovery order")
}

func TestSearcherMergesPairs(t *testing.T) {
	m := uniform(5, 0.1)
	m[1][4] = 0.9 // strongest relation into 4
	m[0][2] = 0.3
	g := BuildGraph(m)

	for _, workers := range []int{1, 4} {
		s := NewSearcher(workers, 3, zaptest.NewLogger(t).Sugar())
		paths, err := s.Search(context.Background(), g, []Pair{{Head: 0, Tail: 4}, {Head: 0, Tail: 3}}, nil)
		require.NoError(t, err)

		assert.Equal(t, [][]int{
			{0, 1, 4}, // 1.0
			{0, 2, 4}, // 0.4
			{0, 2, 3}, // 0.4, second pair
			{0, 3, 4}, // 0.2
			{0, 1, 3}, // 0.2, second pair
		}, nodes(paths))
	}
}

func TestSearcherCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSearcher(2, 3, zaptest.NewLogger(t).Sugar())
	_, err := s.Search(ctx, BuildGraph(uniform(4, 0.1)), []Pair{{Head: 0, Tail: 3}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
