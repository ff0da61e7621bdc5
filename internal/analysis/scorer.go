package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// Weights maps "source:subtype" to the score of one activity. Subtypes
// without an entry score zero.
type Weights map[string]float64

// WeightKey builds the lookup key for a source and subtype
func WeightKey(source types.SourceType, subtype string) string {
	return string(source) + ":" + subtype
}

// DefaultWeights returns the stock scoring model
func DefaultWeights() Weights {
	return Weights{
		WeightKey(types.SourceCode, types.SubtypeCommit):            1.0,
		WeightKey(types.SourceCode, types.SubtypePullRequestMerged): 2.0,
		WeightKey(types.SourceChat, types.SubtypeMessage):           0.3,
		WeightKey(types.SourceReaction, types.SubtypeReaction):      0.1,
	}
}

// ParseWeights validates configured weights and layers them over the defaults
func ParseWeights(overrides map[string]float64) (Weights, error) {
	w := DefaultWeights()
	for key, value := range overrides {
		source, subtype, ok := strings.Cut(key, ":")
		if !ok || subtype == "" {
			return nil, fmt.Errorf("score weight %q must be source:subtype", key)
		}
		if !types.SourceType(source).Valid() {
			return nil, fmt.Errorf("score weight %q has unknown source %q", key, source)
		}
		if value < 0 {
			return nil, fmt.Errorf("score weight %q must not be negative", key)
		}
		w[key] = value
	}
	return w, nil
}

// SourceScore is one source's share of a contribution score
type SourceScore struct {
	Activities int     `json:"activities"`
	Score      float64 `json:"score"`
}

// ContributionScore is a member's weighted activity total for one window
type ContributionScore struct {
	MemberID      string                 `json:"member_id"`
	Score         float64                `json:"score"`
	ScoreBySource map[string]SourceScore `json:"score_by_source"`
	CountsByType  map[string]int         `json:"counts_by_type"`
}

// Scorer applies a fixed weighted sum. It has no state beyond its weights.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer. A nil weight map uses DefaultWeights.
func NewScorer(weights Weights) *Scorer {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Weight returns the weight applied to one activity of source and subtype
func (s *Scorer) Weight(source types.SourceType, subtype string) float64 {
	return s.weights[WeightKey(source, subtype)]
}

// counts tallies activities per weight key
func counts(acts []types.Activity) map[string]int {
	c := make(map[string]int)
	for _, act := range acts {
		c[WeightKey(act.Source, act.Subtype)]++
	}
	return c
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Score returns Σ weight × count. Counts are summed in key order so the
// result does not depend on the order of acts.
func (s *Scorer) Score(acts []types.Activity) float64 {
	c := counts(acts)
	total := 0.0
	for _, key := range sortedKeys(c) {
		total += s.weights[key] * float64(c[key])
	}
	return total
}

// Contribution scores acts and breaks the result down by source and type
func (s *Scorer) Contribution(memberID string, acts []types.Activity) ContributionScore {
	cs := ContributionScore{
		MemberID:      memberID,
		ScoreBySource: make(map[string]SourceScore, len(types.AllSources)),
		CountsByType:  counts(acts),
	}
	for _, source := range types.AllSources {
		cs.ScoreBySource[string(source)] = SourceScore{}
	}

	for _, key := range sortedKeys(cs.CountsByType) {
		n := cs.CountsByType[key]
		source, _, _ := strings.Cut(key, ":")
		points := s.weights[key] * float64(n)

		entry := cs.ScoreBySource[source]
		entry.Activities += n
		entry.Score += points
		cs.ScoreBySource[source] = entry
		cs.Score += points
	}
	return cs
}
