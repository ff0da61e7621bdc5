package collaboration

import (
	"sort"
	"time"

	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// Builder derives a graph from co-occurrence in a normalized activity set
type Builder struct {
	weights Weights
}

// NewBuilder creates a builder. A nil weight map uses DefaultWeights.
func NewBuilder(weights Weights) *Builder {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Builder{weights: weights}
}

type groupKey struct {
	source  types.SourceType
	context string
}

type span struct{ first, last time.Time }

// Build groups resolved activities by (source, context). Every distinct pair
// of members sharing a group counts as one interaction of that source's weight,
// however many activities each contributed.
func (b *Builder) Build(acts []types.Activity) *Graph {
	groups := make(map[groupKey]map[string]*span)
	for _, act := range acts {
		if act.Context == "" || !act.Resolved() {
			continue
		}
		if b.weights[act.Source] <= 0 {
			continue
		}

		key := groupKey{source: act.Source, context: act.Context}
		members := groups[key]
		if members == nil {
			members = make(map[string]*span)
			groups[key] = members
		}
		s, ok := members[act.MemberID]
		if !ok {
			members[act.MemberID] = &span{first: act.Timestamp, last: act.Timestamp}
			continue
		}
		if act.Timestamp.Before(s.first) {
			s.first = act.Timestamp
		}
		if act.Timestamp.After(s.last) {
			s.last = act.Timestamp
		}
	}

	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].source != keys[j].source {
			return keys[i].source < keys[j].source
		}
		return keys[i].context < keys[j].context
	})

	graph := NewGraph()
	for _, key := range keys {
		members := groups[key]
		ids := make([]string, 0, len(members))
		for id := range members {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		weight := b.weights[key.source]
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				si, sj := members[ids[i]], members[ids[j]]
				first, last := si.first, si.last
				if sj.first.Before(first) {
					first = sj.first
				}
				if sj.last.After(last) {
					last = sj.last
				}
				graph.Record(ids[i], ids[j], key.source, weight, first, last)
			}
		}
	}

	return graph
}
