package collaboration

import (
	"time"

	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// Weights assigns the score one co-occurrence contributes per source
type Weights map[types.SourceType]float64

// DefaultWeights ranks meeting co-attendance above review threads above chat threads
func DefaultWeights() Weights {
	return Weights{
		types.SourceCode:    3.0,
		types.SourceChat:    1.0,
		types.SourceMeeting: 5.0,
	}
}

// SourceDetail is the per-source breakdown of an edge
type SourceDetail struct {
	Source        string  `json:"source"`
	ActivityCount int     `json:"activityCount"`
	Score         float64 `json:"score"`
}

// Edge is the accumulated interaction between an unordered member pair.
// A is always the lexically smaller id.
type Edge struct {
	A, B         string
	Score        float64
	Interactions int
	BySource     map[types.SourceType]*SourceDetail
	First, Last  time.Time
}

// Other returns the member at the opposite end of the edge
func (e *Edge) Other(member string) string {
	if e.A == member {
		return e.B
	}
	return e.A
}

// Details returns the per-source breakdown in source display order
func (e *Edge) Details() []SourceDetail {
	out := make([]SourceDetail, 0, len(e.BySource))
	for _, source := range types.AllSources {
		if d, ok := e.BySource[source]; ok {
			out = append(out, *d)
		}
	}
	return out
}

type pairKey struct{ a, b string }

func orderedPair(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// Graph is a symmetric collaboration graph built per query
type Graph struct {
	edges map[pairKey]*Edge
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{edges: make(map[pairKey]*Edge)}
}

// Record adds one co-occurrence between a and b. Order of a and b is
// irrelevant; self-pairs and empty ids are ignored.
func (g *Graph) Record(a, b string, source types.SourceType, weight float64, first, last time.Time) {
	if a == "" || b == "" || a == b {
		return
	}
	if last.Before(first) {
		first, last = last, first
	}

	key := orderedPair(a, b)
	edge, ok := g.edges[key]
	if !ok {
		edge = &Edge{A: key.a, B: key.b, BySource: make(map[types.SourceType]*SourceDetail), First: first, Last: last}
		g.edges[key] = edge
	}

	edge.Score += weight
	edge.Interactions++
	if first.Before(edge.First) {
		edge.First = first
	}
	if last.After(edge.Last) {
		edge.Last = last
	}

	detail, ok := edge.BySource[source]
	if !ok {
		detail = &SourceDetail{Source: string(source)}
		edge.BySource[source] = detail
	}
	detail.ActivityCount++
	detail.Score += weight
}

// Edge returns the edge between a and b in either order
func (g *Graph) Edge(a, b string) (*Edge, bool) {
	edge, ok := g.edges[orderedPair(a, b)]
	return edge, ok
}

// Len returns the number of edges
func (g *Graph) Len() int {
	return len(g.edges)
}

// EdgesFor returns every edge touching member
func (g *Graph) EdgesFor(member string) []*Edge {
	var out []*Edge
	for key, edge := range g.edges {
		if key.a == member || key.b == member {
			out = append(out, edge)
		}
	}
	return out
}
