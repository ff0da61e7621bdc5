package collaboration

import (
	"sort"
	"time"

	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// Collaborator is one ranked entry in a member's network
type Collaborator struct {
	CollaboratorID       string         `json:"collaboratorId"`
	CollaboratorName     string         `json:"collaboratorName"`
	TotalScore           float64        `json:"totalScore"`
	InteractionCount     int            `json:"interactionCount"`
	CommonProjects       []string       `json:"commonProjects"`
	CollaborationDetails []SourceDetail `json:"collaborationDetails"`
	FirstInteraction     time.Time      `json:"firstInteraction"`
	LastInteraction      time.Time      `json:"lastInteraction"`
}

// Network is a member's ranked collaborators for a window
type Network struct {
	MemberID           string         `json:"memberId"`
	TotalCollaborators int            `json:"totalCollaborators"`
	TotalScore         float64        `json:"totalScore"`
	TimeRangeDays      int            `json:"timeRangeDays"`
	TopCollaborators   []Collaborator `json:"topCollaborators"`
}

// Members resolves member ids to names and project lists
type Members interface {
	Member(id string) (types.Member, bool)
}

// Network ranks member's edges. Edges scoring below minScore are discarded;
// the rest sort by score, then most recent interaction, then collaborator id.
// TotalCollaborators and TotalScore cover every kept edge regardless of limit.
func (g *Graph) Network(member string, days, limit int, minScore float64, members Members) Network {
	net := Network{
		MemberID:         member,
		TimeRangeDays:    days,
		TopCollaborators: []Collaborator{},
	}

	var kept []*Edge
	for _, edge := range g.EdgesFor(member) {
		if edge.Score < minScore {
			continue
		}
		kept = append(kept, edge)
	}

	sort.Slice(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Last.Equal(b.Last) {
			return a.Last.After(b.Last)
		}
		return a.Other(member) < b.Other(member)
	})

	net.TotalCollaborators = len(kept)
	for _, edge := range kept {
		net.TotalScore += edge.Score
	}

	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}

	self, _ := lookup(members, member)
	for _, edge := range kept {
		otherID := edge.Other(member)
		other, ok := lookup(members, otherID)
		name := otherID
		if ok && other.DisplayName != "" {
			name = other.DisplayName
		}

		net.TopCollaborators = append(net.TopCollaborators, Collaborator{
			CollaboratorID:       otherID,
			CollaboratorName:     name,
			TotalScore:           edge.Score,
			InteractionCount:     edge.Interactions,
			CommonProjects:       commonProjects(self, other),
			CollaborationDetails: edge.Details(),
			FirstInteraction:     edge.First,
			LastInteraction:      edge.Last,
		})
	}

	return net
}

func lookup(members Members, id string) (types.Member, bool) {
	if members == nil {
		return types.Member{}, false
	}
	return members.Member(id)
}

func commonProjects(a, b types.Member) []string {
	common := []string{}
	for _, p := range a.Projects {
		if b.InProject(p) {
			common = append(common, p)
		}
	}
	sort.Strings(common)
	return common
}
