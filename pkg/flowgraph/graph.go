// Package flowgraph builds the pixel flow network used for graph-cut
// segmentation.
//
// Every pixel becomes a node. Two terminal nodes are appended: the source,
// standing for the foreground, and the sink, standing for the background.
// Each pixel is joined to both terminals by edges weighted with its class
// posteriors, and to its 4-neighbours by edges weighted with colour affinity.
package flowgraph

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Graph is a directed weighted flow network over the pixels of one image.
// Pixel i has node ID i; the source and sink have IDs Width*Height and
// Width*Height+1.
type Graph struct {
	*simple.WeightedDirectedGraph

	// Width and Height are the spatial dimensions of the image
	Width, Height int

	// Source and Sink are the terminal node IDs
	Source, Sink int64

	pairs int
}

func newGraph(width, height int) *Graph {
	n := width * height
	g := &Graph{
		WeightedDirectedGraph: simple.NewWeightedDirectedGraph(0, 0),
		Width:                 width,
		Height:                height,
		Source:                int64(n),
		Sink:                  int64(n + 1),
	}
	for id := 0; id < n+2; id++ {
		g.AddNode(simple.Node(id))
	}
	return g
}

// PixelCount returns the number of non-terminal nodes.
func (g *Graph) PixelCount() int {
	return g.Width * g.Height
}

// NeighborPairs returns the number of unordered adjacent pixel pairs that
// were joined. Each pair is backed by one edge in each direction.
func (g *Graph) NeighborPairs() int {
	return g.pairs
}

// EdgeCount returns the number of logical edges: two terminal edges per
// pixel plus one per neighbour pair.
func (g *Graph) EdgeCount() int {
	return 2*g.PixelCount() + g.pairs
}

// Capacity returns the weight of the edge from u to v, or 0 when absent.
func (g *Graph) Capacity(u, v int64) float64 {
	w, ok := g.Weight(u, v)
	if !ok || u == v {
		return 0
	}
	return w
}

// PixelNeighbors returns the pixel nodes joined to pixel id, in ascending order.
func (g *Graph) PixelNeighbors(id int64) []int64 {
	var out []int64
	x, y := int(id)%g.Width, int(id)/g.Width
	for _, n := range [][2]int{{x, y - 1}, {x - 1, y}, {x + 1, y}, {x, y + 1}} {
		if n[0] < 0 || n[1] < 0 || n[0] >= g.Width || n[1] >= g.Height {
			continue
		}
		nid := int64(n[1]*g.Width + n[0])
		if g.HasEdgeFromTo(id, nid) {
			out = append(out, nid)
		}
	}
	return out
}

func (g *Graph) setEdge(from, to int64, w float64) {
	g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(from), simple.Node(to), w))
}

var _ graph.WeightedDirected = (*Graph)(nil)
