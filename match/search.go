package match

import (
	"context"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultMinPathLength is head, one relation node and tail
const DefaultMinPathLength = 3

// Pair is a (head, tail) search request over chunk nodes
type Pair struct {
	Head int
	Tail int
}

type step struct {
	node   int
	weight float64
}

// BFS walks forward edges from source toward target. The source is marked
// visited up front; every other node is marked when first enqueued. Scanning
// a node's successors stops at the first edge into target, after recording
// that path. The target itself is never marked, so it can be reached from
// every explored node. Paths are returned in discovery order.
func (g *Graph) BFS(source, target int) []Path {
	if source < 0 || source >= g.Size() {
		return nil
	}

	visited := make([]bool, g.Size())
	visited[source] = true

	type item struct {
		node int
		path []step
	}
	queue := []item{{node: source, path: []step{{node: source}}}}

	var found [][]step
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, e := range g.adj[cur.node] {
			if e.To == target {
				found = append(found, extend(cur.path, step{node: e.To, weight: e.Weight}))
				break
			}
			if !visited[e.To] {
				visited[e.To] = true
				queue = append(queue, item{node: e.To, path: extend(cur.path, step{node: e.To, weight: e.Weight})})
			}
		}
	}

	out := make([]Path, 0, len(found))
	for _, steps := range found {
		p := Path{Nodes: make([]int, len(steps))}
		for i, s := range steps {
			p.Nodes[i] = s.node
			p.Confidence += s.weight
		}
		out = append(out, p)
	}
	return out
}

func extend(path []step, s step) []step {
	next := make([]step, len(path), len(path)+1)
	copy(next, path)
	return append(next, s)
}

// CandidatePaths runs BFS and keeps paths of at least minLen nodes whose
// first relation node is not blacklisted, sorted by descending confidence.
// Ties keep discovery order.
func (g *Graph) CandidatePaths(source, target, minLen int, blacklist map[int]bool) []Path {
	if minLen < DefaultMinPathLength {
		minLen = DefaultMinPathLength
	}
	var out []Path
	for _, p := range g.BFS(source, target) {
		if len(p.Nodes) < minLen {
			continue
		}
		if blacklist[p.Nodes[1]] {
			continue
		}
		out = append(out, p)
	}
	sortPaths(out)
	return out
}

func sortPaths(paths []Path) {
	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].Confidence > paths[j].Confidence
	})
}

// Searcher runs one BFS per pair on a bounded pool of goroutines. Workers
// only read the graph, which is immutable.
type Searcher struct {
	workers int
	minLen  int
	logger  *zap.SugaredLogger
}

// NewSearcher creates a searcher. workers < 1 means one worker.
func NewSearcher(workers, minLen int, logger *zap.SugaredLogger) *Searcher {
	if workers < 1 {
		workers = 1
	}
	if minLen < DefaultMinPathLength {
		minLen = DefaultMinPathLength
	}
	return &Searcher{workers: workers, minLen: minLen, logger: logger}
}

// Search returns the candidate paths of every pair. Results are concatenated
// in pair order and then stably sorted by descending confidence.
func (s *Searcher) Search(ctx context.Context, g *Graph, pairs []Pair, blacklist map[int]bool) ([]Path, error) {
	results := make([][]Path, len(pairs))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.workers)
	for i, pair := range pairs {
		i, pair := i, pair
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = g.CandidatePaths(pair.Head, pair.Tail, s.minLen, blacklist)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var all []Path
	for _, r := range results {
		all = append(all, r...)
	}
	sortPaths(all)

	s.logger.Debugw("Relation search complete",
		"pairs", len(pairs),
		"paths", len(all),
		"workers", s.workers)
	return all, nil
}
