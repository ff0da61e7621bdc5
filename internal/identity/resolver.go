package identity

import (
	"fmt"
	"log/slog"

	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// Policy decides what an ambiguous resolution is attributed to
type Policy string

const (
	PolicyFirstMatch Policy = "first_match"
	PolicyUnresolved Policy = "unresolved"
)

// ParsePolicy validates a configured ambiguity policy
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyFirstMatch, PolicyUnresolved:
		return Policy(s), nil
	case "":
		return PolicyFirstMatch, nil
	}
	return "", fmt.Errorf("unknown ambiguity policy %q", s)
}

// Resolver maps raw per-source identifiers onto canonical members
type Resolver struct {
	index  *Index
	policy Policy
	logger *slog.Logger
}

// NewResolver creates a resolver over a pre-loaded index
func NewResolver(index *Index, policy Policy) *Resolver {
	if policy == "" {
		policy = PolicyFirstMatch
	}
	return &Resolver{
		index:  index,
		policy: policy,
		logger: slog.With("component", "identity"),
	}
}

// Index returns the member index the resolver reads from
func (r *Resolver) Index() *Index {
	return r.index
}

// Resolve looks up raw for source without applying the ambiguity policy.
// Exact identifier matches win; meeting sources fall back to matching the
// participant name against recording names, or display names for members
// without one.
func (r *Resolver) Resolve(source types.SourceType, raw string) Resolution {
	res := Resolution{Kind: Unresolved, Raw: raw, Source: source}
	if raw == "" || r.index == nil {
		return res
	}

	hits := r.index.exact(source, raw)
	if len(hits) == 0 && source == types.SourceMeetingSummary {
		hits = r.index.exact(types.SourceMeeting, raw)
	}
	if len(hits) == 0 && source.IsMeeting() {
		hits = r.fuzzy(raw)
	}

	switch len(hits) {
	case 0:
		return res
	case 1:
		res.Kind = Resolved
		res.MemberID = r.index.members[hits[0]].ID
	default:
		res.Kind = Ambiguous
		res.Candidates = make([]string, len(hits))
		for i, pos := range hits {
			res.Candidates[i] = r.index.members[pos].ID
		}
	}
	return res
}

func (r *Resolver) fuzzy(raw string) []int {
	var hits []int
	for pos, m := range r.index.members {
		name := m.RecordingName
		if name == "" {
			name = m.DisplayName
		}
		if participantMatches(raw, name) {
			hits = append(hits, pos)
		}
	}
	return hits
}

// MemberID resolves raw and applies the ambiguity policy. The returned id is
// empty when the identifier stays unattributed.
func (r *Resolver) MemberID(source types.SourceType, raw string) (string, Resolution) {
	res := r.Resolve(source, raw)

	switch res.Kind {
	case Resolved:
		return res.MemberID, res
	case Ambiguous:
		if r.policy == PolicyUnresolved {
			r.logger.Warn("Ambiguous identity left unresolved",
				"source", source,
				"raw_id", raw,
				"candidates", res.Candidates)
			return "", res
		}
		r.logger.Warn("Ambiguous identity, using first match",
			"source", source,
			"raw_id", raw,
			"candidates", res.Candidates,
			"member_id", res.Candidates[0])
		return res.Candidates[0], res
	default:
		r.logger.Debug("Unresolved identity", "source", source, "raw_id", raw)
		return "", res
	}
}
