package analysis

import (
	"github.com/ZanzyTHEbar/teampulse/internal/identity"
	"github.com/ZanzyTHEbar/teampulse/internal/leaderboard"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// rank scores each listed member over acts. Members with no activity still
// get a zero entry so the board always covers the whole scope.
func (a *Analyzer) rank(index *identity.Index, memberIDs []string, acts []types.Activity) *leaderboard.Board {
	byMember := make(map[string][]types.Activity, len(memberIDs))
	for _, act := range acts {
		if act.Resolved() {
			byMember[act.MemberID] = append(byMember[act.MemberID], act)
		}
	}

	board := leaderboard.NewBoard()
	for _, id := range memberIDs {
		cs := a.scorer.Contribution(id, byMember[id])
		bySource := make(map[string]float64, len(cs.ScoreBySource))
		activities := 0
		for source, s := range cs.ScoreBySource {
			bySource[source] = s.Score
			activities += s.Activities
		}
		board.Add(leaderboard.LeaderboardEntry{
			MemberID:      id,
			DisplayName:   index.DisplayName(id),
			Score:         cs.Score,
			Activities:    activities,
			ScoreBySource: bySource,
		})
	}
	return board
}
