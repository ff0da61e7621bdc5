package leaderboard

import (
	"sort"
	"time"
)

// LeaderboardEntry is one member's ranked contribution for a window
type LeaderboardEntry struct {
	Rank          int                `json:"rank"`
	MemberID      string             `json:"member_id"`
	DisplayName   string             `json:"display_name"`
	Score         float64            `json:"score"`
	Activities    int                `json:"activities"`
	ScoreBySource map[string]float64 `json:"score_by_source,omitempty"`
}

// LeaderboardResponse represents the response for leaderboard queries
type LeaderboardResponse struct {
	Entries     []LeaderboardEntry `json:"entries"`
	Total       int                `json:"total"`
	PeriodDays  int                `json:"period_days"`
	PeriodStart time.Time          `json:"period_start"`
	PeriodEnd   time.Time          `json:"period_end"`
}

// Board collects member scores for one window and ranks them
type Board struct {
	entries []LeaderboardEntry
	seen    map[string]int
}

// NewBoard creates an empty board
func NewBoard() *Board {
	return &Board{seen: make(map[string]int)}
}

// Add records a member's score. A repeated member replaces the earlier entry.
func (b *Board) Add(entry LeaderboardEntry) {
	if pos, ok := b.seen[entry.MemberID]; ok {
		b.entries[pos] = entry
		return
	}
	b.seen[entry.MemberID] = len(b.entries)
	b.entries = append(b.entries, entry)
}

// Len returns the number of members on the board
func (b *Board) Len() int {
	return len(b.entries)
}

// Ranked returns all entries ordered by score, then activity count, then
// member id, with 1-based ranks assigned
func (b *Board) Ranked() []LeaderboardEntry {
	ranked := make([]LeaderboardEntry, len(b.entries))
	copy(ranked, b.entries)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Activities != ranked[j].Activities {
			return ranked[i].Activities > ranked[j].Activities
		}
		return ranked[i].MemberID < ranked[j].MemberID
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// Response builds the leaderboard for a window, truncated to limit when positive.
// Total always reflects the full board.
func (b *Board) Response(start, end time.Time, days, limit int) LeaderboardResponse {
	ranked := b.Ranked()
	total := len(ranked)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return LeaderboardResponse{
		Entries:     ranked,
		Total:       total,
		PeriodDays:  days,
		PeriodStart: start,
		PeriodEnd:   end,
	}
}
