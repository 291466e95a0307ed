package maxflow

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph/simple"
)

type edge struct {
	from, to int64
	weight   float64
}

// createTestGraph builds a weighted directed graph with nodes 0..n-1
func createTestGraph(n int, edges []edge) *simple.WeightedDirectedGraph {
	g := simple.NewWeightedDirectedGraph(0, 0)
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for _, e := range edges {
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(e.from), simple.Node(e.to), e.weight))
	}
	return g
}

// bruteForceMinCut enumerates every s-t cut of a small graph
func bruteForceMinCut(n int, edges []edge, s, t int64) float64 {
	best := math.Inf(1)
	for mask := 0; mask < 1<<n; mask++ {
		if mask&(1<<s) == 0 || mask&(1<<t) != 0 {
			continue
		}
		var c float64
		for _, e := range edges {
			if mask&(1<<e.from) != 0 && mask&(1<<e.to) == 0 {
				c += e.weight
			}
		}
		best = math.Min(best, c)
	}
	return best
}

func TestTextbookNetwork(t *testing.T) {
	edges := []edge{
		{0, 1, 16}, {0, 2, 13}, {1, 2, 10}, {2, 1, 4}, {1, 3, 12},
		{3, 2, 9}, {2, 4, 14}, {4, 3, 7}, {3, 5, 20}, {4, 5, 4},
	}
	g := createTestGraph(6, edges)

	res, err := NewEdmondsKarp().MaxFlow(context.Background(), g, 0, 5)
	if err != nil {
		t.Fatalf("Failed to compute max flow: %v", err)
	}
	if math.Abs(res.Value-23) > 1e-9 {
		t.Errorf("Expected max flow 23, got %f", res.Value)
	}

	expected := map[int64]bool{0: true, 1: true, 2: true, 3: false, 4: true, 5: false}
	for id, want := range expected {
		if res.InSourceSet(id) != want {
			t.Errorf("Node %d: expected source side %v, got %v", id, want, res.InSourceSet(id))
		}
	}
	if c := res.CutCapacity(g); math.Abs(c-res.Value) > 1e-9 {
		t.Errorf("Expected cut capacity %f to equal flow %f", c, res.Value)
	}
	if res.NodeCount() != 6 {
		t.Errorf("Expected 6 partitioned nodes, got %d", res.NodeCount())
	}
}

func TestChainBottleneck(t *testing.T) {
	g := createTestGraph(4, []edge{{0, 1, 5}, {1, 2, 0.25}, {2, 3, 7}})
	res, err := NewEdmondsKarp().MaxFlow(context.Background(), g, 0, 3)
	if err != nil {
		t.Fatalf("Failed to compute max flow: %v", err)
	}
	if res.Value != 0.25 {
		t.Errorf("Expected max flow 0.25, got %f", res.Value)
	}
	got := res.SourceSet()
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("Expected source set [0 1], got %v", got)
	}
}

func TestZeroCapacityPath(t *testing.T) {
	g := createTestGraph(3, []edge{{0, 1, 0}, {1, 2, 3}})
	res, err := NewEdmondsKarp().MaxFlow(context.Background(), g, 0, 2)
	if err != nil {
		t.Fatalf("Expected structurally connected graph to solve, got %v", err)
	}
	if res.Value != 0 {
		t.Errorf("Expected zero flow, got %f", res.Value)
	}
	if res.InSourceSet(1) {
		t.Error("Expected node 1 to be on the sink side")
	}
}

func TestDualityOnRandomGraphs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n = 7
	for trial := 0; trial < 50; trial++ {
		var edges []edge
		for u := 0; u < n; u++ {
			for v := 0; v < n; v++ {
				if u != v && v != 0 && u != n-1 && rng.Float64() < 0.4 {
					edges = append(edges, edge{int64(u), int64(v), math.Round(rng.Float64()*100) / 10})
				}
			}
		}
		// Guarantee connectivity through a weak path
		edges = append(edges, edge{0, n - 1, 0.05})
		g := createTestGraph(n, dedupe(edges))

		res, err := NewEdmondsKarp().MaxFlow(context.Background(), g, 0, n-1)
		if err != nil {
			t.Fatalf("Trial %d: failed to compute max flow: %v", trial, err)
		}
		want := bruteForceMinCut(n, dedupe(edges), 0, n-1)
		if math.Abs(res.Value-want) > 1e-9 {
			t.Errorf("Trial %d: expected max flow %f, got %f", trial, want, res.Value)
		}
		if c := res.CutCapacity(g); math.Abs(c-res.Value) > 1e-9 {
			t.Errorf("Trial %d: cut capacity %f differs from flow %f", trial, c, res.Value)
		}
	}
}

// dedupe keeps the last weight given to each ordered pair, as SetWeightedEdge does
func dedupe(edges []edge) []edge {
	seen := make(map[[2]int64]int)
	var out []edge
	for _, e := range edges {
		key := [2]int64{e.from, e.to}
		if i, ok := seen[key]; ok {
			out[i] = e
			continue
		}
		seen[key] = len(out)
		out = append(out, e)
	}
	return out
}

func TestDeterministicPartition(t *testing.T) {
	// Two equally cheap cuts; the result must not change between runs
	edges := []edge{{0, 1, 1}, {1, 2, 1}, {0, 3, 2}, {3, 2, 2}}
	g := createTestGraph(4, edges)

	first, err := NewEdmondsKarp().MaxFlow(context.Background(), g, 0, 2)
	if err != nil {
		t.Fatalf("Failed to compute max flow: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := NewEdmondsKarp().MaxFlow(context.Background(), g, 0, 2)
		if err != nil {
			t.Fatalf("Failed to compute max flow: %v", err)
		}
		if again.Value != first.Value {
			t.Errorf("Run %d: expected flow %f, got %f", i, first.Value, again.Value)
		}
		for id := int64(0); id < 4; id++ {
			if again.InSourceSet(id) != first.InSourceSet(id) {
				t.Errorf("Run %d: node %d changed sides", i, id)
			}
		}
	}
	// Both paths saturate, so only the source is reachable
	if got := first.SourceSet(); len(got) != 1 || got[0] != 0 {
		t.Errorf("Expected source set [0], got %v", got)
	}
}

func TestErrors(t *testing.T) {
	solver := NewEdmondsKarp()
	ctx := context.Background()

	t.Run("Disconnected", func(t *testing.T) {
		g := createTestGraph(4, []edge{{0, 1, 3}, {2, 3, 3}})
		if _, err := solver.MaxFlow(ctx, g, 0, 3); !errors.Is(err, ErrDisconnectedGraph) {
			t.Errorf("Expected ErrDisconnectedGraph, got %v", err)
		}
	})

	t.Run("ReverseOnly", func(t *testing.T) {
		g := createTestGraph(2, []edge{{1, 0, 3}})
		if _, err := solver.MaxFlow(ctx, g, 0, 1); !errors.Is(err, ErrDisconnectedGraph) {
			t.Errorf("Expected ErrDisconnectedGraph, got %v", err)
		}
	})

	t.Run("SameTerminal", func(t *testing.T) {
		g := createTestGraph(2, []edge{{0, 1, 3}})
		if _, err := solver.MaxFlow(ctx, g, 1, 1); !errors.Is(err, ErrDisconnectedGraph) {
			t.Errorf("Expected ErrDisconnectedGraph, got %v", err)
		}
	})

	t.Run("UnknownNode", func(t *testing.T) {
		g := createTestGraph(2, []edge{{0, 1, 3}})
		if _, err := solver.MaxFlow(ctx, g, 0, 9); !errors.Is(err, ErrUnknownNode) {
			t.Errorf("Expected ErrUnknownNode, got %v", err)
		}
	})

	t.Run("NegativeCapacity", func(t *testing.T) {
		g := createTestGraph(3, []edge{{0, 1, 3}, {1, 2, -1}})
		if _, err := solver.MaxFlow(ctx, g, 0, 2); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("Expected ErrInvalidCapacity, got %v", err)
		}
	})

	t.Run("InfiniteCapacity", func(t *testing.T) {
		g := createTestGraph(2, []edge{{0, 1, math.Inf(1)}})
		if _, err := solver.MaxFlow(ctx, g, 0, 1); !errors.Is(err, ErrInvalidCapacity) {
			t.Errorf("Expected ErrInvalidCapacity, got %v", err)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		g := createTestGraph(2, []edge{{0, 1, 3}})
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := solver.MaxFlow(canceled, g, 0, 1); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	})
}
