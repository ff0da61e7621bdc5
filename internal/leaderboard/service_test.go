package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_Ranked(t *testing.T) {
	b := NewBoard()
	b.Add(LeaderboardEntry{MemberID: "c", Score: 3, Activities: 2})
	b.Add(LeaderboardEntry{MemberID: "a", Score: 3, Activities: 5})
	b.Add(LeaderboardEntry{MemberID: "b", Score: 3, Activities: 5})
	b.Add(LeaderboardEntry{MemberID: "d", Score: 10, Activities: 1})
	b.Add(LeaderboardEntry{MemberID: "e"})

	ranked := b.Ranked()
	require.Len(t, ranked, 5)

	var ids []string
	for i, e := range ranked {
		ids = append(ids, e.MemberID)
		assert.Equal(t, i+1, e.Rank)
	}
	assert.Equal(t, []string{"d", "a", "b", "c", "e"}, ids)
}

func TestBoard_AddReplaces(t *testing.T) {
	b := NewBoard()
	b.Add(LeaderboardEntry{MemberID: "a", Score: 1})
	b.Add(LeaderboardEntry{MemberID: "a", Score: 2})

	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 2.0, b.Ranked()[0].Score)
}

func TestBoard_Response(t *testing.T) {
	b := NewBoard()
	for _, id := range []string{"a", "b", "c"} {
		b.Add(LeaderboardEntry{MemberID: id})
	}

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	resp := b.Response(start, start.AddDate(0, 0, 7), 7, 2)
	assert.Len(t, resp.Entries, 2)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 7, resp.PeriodDays)

	empty := NewBoard().Response(start, start, 1, 10)
	assert.NotNil(t, empty.Entries)
	assert.Equal(t, 0, empty.Total)
}
