// Package maxflow computes maximum flows and minimum cuts on directed
// weighted graphs.
package maxflow

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"
)

var (
	// ErrDisconnectedGraph is returned when the sink cannot be reached from
	// the source before any flow is pushed.
	ErrDisconnectedGraph = errors.New("source and sink are disconnected")

	// ErrInvalidCapacity is returned for negative, NaN or infinite edge weights.
	ErrInvalidCapacity = errors.New("invalid edge capacity")

	// ErrUnknownNode is returned when a terminal is not part of the graph.
	ErrUnknownNode = errors.New("unknown node")
)

// Solver computes a maximum flow from source to sink.
type Solver interface {
	MaxFlow(ctx context.Context, g graph.WeightedDirected, source, sink int64) (*Result, error)
}

// Result holds the flow value and the minimum cut it certifies.
type Result struct {
	// Value is the total flow leaving the source
	Value float64

	ids       []int64
	index     map[int64]int
	reachable []bool
}

// InSourceSet reports whether node id is reachable from the source in the
// residual graph, i.e. lies on the source side of the minimum cut.
func (r *Result) InSourceSet(id int64) bool {
	i, ok := r.index[id]
	return ok && r.reachable[i]
}

// NodeCount returns the number of nodes covered by the partition.
func (r *Result) NodeCount() int {
	return len(r.ids)
}

// SourceSet returns the IDs on the source side in ascending order.
func (r *Result) SourceSet() []int64 {
	var out []int64
	for i, id := range r.ids {
		if r.reachable[i] {
			out = append(out, id)
		}
	}
	return out
}

// CutCapacity sums the capacities of g's edges leaving the source set.
// For a maximum flow it equals Value.
func (r *Result) CutCapacity(g graph.WeightedDirected) float64 {
	var total float64
	for i, id := range r.ids {
		if !r.reachable[i] {
			continue
		}
		to := g.From(id)
		for to.Next() {
			v := to.Node().ID()
			if r.InSourceSet(v) {
				continue
			}
			if w, ok := g.Weight(id, v); ok {
				total += w
			}
		}
	}
	return total
}

// checkTerminals verifies that source and sink exist and that the sink is
// reachable from the source along graph edges, ignoring their weights.
func checkTerminals(g graph.WeightedDirected, source, sink int64) error {
	if g.Node(source) == nil {
		return errors.Wrapf(ErrUnknownNode, "source %d", source)
	}
	if g.Node(sink) == nil {
		return errors.Wrapf(ErrUnknownNode, "sink %d", sink)
	}
	if source == sink {
		return errors.Wrap(ErrDisconnectedGraph, "source and sink are the same node")
	}

	var bf traverse.BreadthFirst
	found := bf.Walk(g, g.Node(source), func(n graph.Node, _ int) bool {
		return n.ID() == sink
	})
	if found == nil {
		return errors.Wrapf(ErrDisconnectedGraph, "sink %d is not reachable from source %d", sink, source)
	}
	return nil
}

// sortedNodes returns the graph's node IDs in ascending order.
func sortedNodes(nodes graph.Nodes) []int64 {
	ids := make([]int64, 0, nodes.Len())
	for nodes.Next() {
		ids = append(ids, nodes.Node().ID())
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
