package maxflow

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
)

// Epsilon is the residual capacity below which an arc counts as saturated.
const Epsilon = 1e-12

// EdmondsKarp finds maximum flows by repeatedly augmenting along a shortest
// path found with breadth-first search.
//
// Ties are broken deterministically. Nodes are indexed in ascending ID order
// and residual arcs are created node by node, each node's out-edges in
// ascending target ID order. Every search explores arcs in creation order
// and augments the first shortest path it finds.
type EdmondsKarp struct{}

// NewEdmondsKarp returns an Edmonds-Karp solver.
func NewEdmondsKarp() *EdmondsKarp {
	return &EdmondsKarp{}
}

// residual is a compact arc list: arc a and a^1 are each other's reverse.
type residual struct {
	head []int // first arc of every node, -1 when none
	tail []int // last arc of every node
	next []int
	to   []int
	cap  []float64
}

func newResidual(n int) *residual {
	r := &residual{head: make([]int, n), tail: make([]int, n)}
	for i := range r.head {
		r.head[i] = -1
	}
	return r
}

// addArc appends arc u->v to the end of u's chain.
func (r *residual) addArc(u, v int, c float64) {
	a := len(r.to)
	r.to = append(r.to, v)
	r.cap = append(r.cap, c)
	r.next = append(r.next, -1)
	if r.head[u] < 0 {
		r.head[u] = a
	} else {
		r.next[r.tail[u]] = a
	}
	r.tail[u] = a
}

// link adds arc u->v with capacity c and its zero-capacity reverse.
func (r *residual) link(u, v int, c float64) {
	r.addArc(u, v, c)
	r.addArc(v, u, 0)
}

// MaxFlow computes the maximum flow from source to sink. The context is
// checked between augmentations.
func (ek *EdmondsKarp) MaxFlow(ctx context.Context, g graph.WeightedDirected, source, sink int64) (*Result, error) {
	if err := checkTerminals(g, source, sink); err != nil {
		return nil, err
	}

	ids := sortedNodes(g.Nodes())
	index := make(map[int64]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	res := newResidual(len(ids))
	for u, id := range ids {
		for _, vid := range sortedNodes(g.From(id)) {
			w, _ := g.Weight(id, vid)
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, errors.Wrapf(ErrInvalidCapacity, "edge %d->%d has capacity %v", id, vid, w)
			}
			res.link(u, index[vid], w)
		}
	}

	s, t := index[source], index[sink]
	parent := make([]int, len(ids))
	queue := make([]int, 0, len(ids))
	var value float64
	for {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "max flow interrupted")
		}
		if !res.bfs(s, t, parent, queue) {
			break
		}

		bottleneck := math.Inf(1)
		for v := t; v != s; v = res.to[parent[v]^1] {
			bottleneck = math.Min(bottleneck, res.cap[parent[v]])
		}
		for v := t; v != s; v = res.to[parent[v]^1] {
			a := parent[v]
			res.cap[a] -= bottleneck
			res.cap[a^1] += bottleneck
		}
		value += bottleneck
	}

	// After the last search, parent marks everything reachable from s.
	reachable := make([]bool, len(ids))
	for i := range reachable {
		reachable[i] = parent[i] != -1
	}
	return &Result{Value: value, ids: ids, index: index, reachable: reachable}, nil
}

// bfs searches for a shortest augmenting path, recording the arc used to
// reach every visited node in parent. The source is marked with -2 and
// unvisited nodes with -1.
func (r *residual) bfs(s, t int, parent, queue []int) bool {
	for i := range parent {
		parent[i] = -1
	}
	parent[s] = -2
	queue = append(queue[:0], s)
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for a := r.head[u]; a >= 0; a = r.next[a] {
			v := r.to[a]
			if parent[v] != -1 || r.cap[a] <= Epsilon {
				continue
			}
			parent[v] = a
			if v == t {
				return true
			}
			queue = append(queue, v)
		}
	}
	return false
}
