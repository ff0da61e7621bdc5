package identity

import (
	"log/slog"

	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// Index is a read-only view of the member directory built once per request.
// Member order is the directory's insertion order and drives first-match policy.
type Index struct {
	members  []types.Member
	byID     map[string]int
	bySource map[types.SourceType]map[string][]int
}

// NewIndex builds an index over members. Members with an empty or repeated id
// are skipped.
func NewIndex(members []types.Member) *Index {
	idx := &Index{
		members:  make([]types.Member, 0, len(members)),
		byID:     make(map[string]int, len(members)),
		bySource: make(map[types.SourceType]map[string][]int),
	}

	for _, m := range members {
		if m.ID == "" {
			slog.Warn("Skipping member without id", "display_name", m.DisplayName)
			continue
		}
		if _, dup := idx.byID[m.ID]; dup {
			slog.Warn("Skipping duplicate member id", "member_id", m.ID)
			continue
		}

		pos := len(idx.members)
		idx.members = append(idx.members, m)
		idx.byID[m.ID] = pos

		for source, ident := range m.Identifiers {
			if ident == "" {
				continue
			}
			bucket := idx.bySource[source]
			if bucket == nil {
				bucket = make(map[string][]int)
				idx.bySource[source] = bucket
			}
			bucket[ident] = append(bucket[ident], pos)
		}
	}

	return idx
}

// Len returns the number of indexed members
func (i *Index) Len() int {
	return len(i.members)
}

// Members returns a copy of the members in insertion order
func (i *Index) Members() []types.Member {
	out := make([]types.Member, len(i.members))
	copy(out, i.members)
	return out
}

// Member looks a member up by canonical id
func (i *Index) Member(id string) (types.Member, bool) {
	pos, ok := i.byID[id]
	if !ok {
		return types.Member{}, false
	}
	return i.members[pos], true
}

// DisplayName returns the member's display name, or id when unknown
func (i *Index) DisplayName(id string) string {
	if m, ok := i.Member(id); ok && m.DisplayName != "" {
		return m.DisplayName
	}
	return id
}

func (i *Index) exact(source types.SourceType, raw string) []int {
	return i.bySource[source][raw]
}
