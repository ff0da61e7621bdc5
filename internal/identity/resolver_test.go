package identity

import (
	"testing"

	"github.com/ZanzyTHEbar/teampulse/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMembers() []types.Member {
	return []types.Member{
		{
			ID:          "m-alice",
			DisplayName: "Alice Park",
			Identifiers: map[types.SourceType]string{
				types.SourceCode: "alicep",
				types.SourceChat: "U100",
			},
		},
		{
			ID:            "m-zena",
			DisplayName:   "Zena",
			RecordingName: "Suah Kim",
		},
		{
			ID:          "m-bob",
			DisplayName: "Bob Lee",
			Identifiers: map[types.SourceType]string{
				types.SourceMeeting: "bob@meet",
			},
		},
	}
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(NewIndex(testMembers()), PolicyFirstMatch)

	tests := []struct {
		name   string
		source types.SourceType
		raw    string
		kind   Kind
		member string
	}{
		{"exact code handle", types.SourceCode, "alicep", Resolved, "m-alice"},
		{"exact match is case sensitive", types.SourceCode, "AliceP", Unresolved, ""},
		{"identifier of another source", types.SourceChat, "alicep", Unresolved, ""},
		{"reaction source has no identifiers", types.SourceReaction, "U100", Unresolved, ""},
		{"empty raw", types.SourceCode, "", Unresolved, ""},
		{"recording name wins over display name", types.SourceMeeting, "Suah Kim", Resolved, "m-zena"},
		{"recording name case insensitive", types.SourceMeeting, "suah kim", Resolved, "m-zena"},
		{"display name not used when recording name set", types.SourceMeeting, "Zena", Unresolved, ""},
		{"display name fallback", types.SourceMeeting, "bob lee", Resolved, "m-bob"},
		{"participant contains name", types.SourceMeeting, "Bob Lee (guest)", Resolved, "m-bob"},
		{"meeting identifier", types.SourceMeeting, "bob@meet", Resolved, "m-bob"},
		{"summary uses meeting identifiers", types.SourceMeetingSummary, "bob@meet", Resolved, "m-bob"},
		{"no fuzzy match for chat", types.SourceChat, "Alice Park", Unresolved, ""},
		{"unknown participant", types.SourceMeeting, "Carol", Unresolved, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.source, tt.raw)
			assert.Equal(t, tt.kind, res.Kind, res.String())
			assert.Equal(t, tt.member, res.MemberID)
			assert.Equal(t, tt.raw, res.Raw)
		})
	}
}

func TestResolver_OverlappingRecordingNamesAreAmbiguous(t *testing.T) {
	members := []types.Member{
		{ID: "m-1", DisplayName: "Kim One", RecordingName: "Kim"},
		{ID: "m-2", DisplayName: "Kim Two", RecordingName: "Kim Jisoo"},
	}

	first := NewResolver(NewIndex(members), PolicyFirstMatch)
	res := first.Resolve(types.SourceMeeting, "Kim Jisoo")
	require.Equal(t, Ambiguous, res.Kind)
	assert.Equal(t, []string{"m-1", "m-2"}, res.Candidates)

	id, _ := first.MemberID(types.SourceMeeting, "Kim Jisoo")
	assert.Equal(t, "m-1", id, "first match follows insertion order")

	strict := NewResolver(NewIndex(members), PolicyUnresolved)
	id, res = strict.MemberID(types.SourceMeeting, "Kim Jisoo")
	assert.Empty(t, id)
	assert.Equal(t, Ambiguous, res.Kind)
}

func TestResolver_ShortDisplayNameDoesNotCapture(t *testing.T) {
	members := []types.Member{
		{ID: "m-al", DisplayName: "Al"},
		{ID: "m-alice", DisplayName: "Alice", RecordingName: "Alice Park"},
	}
	r := NewResolver(NewIndex(members), PolicyFirstMatch)

	tests := []struct {
		name   string
		raw    string
		kind   Kind
		member string
	}{
		{"longer name containing short name", "Alice Park", Resolved, "m-alice"},
		{"short name inside another word", "Kalman", Unresolved, ""},
		{"short name as whole word", "Al (guest)", Resolved, "m-al"},
		{"participant is part of a recording name", "Park", Resolved, "m-alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(types.SourceMeeting, tt.raw)
			assert.Equal(t, tt.kind, res.Kind, res.String())
			assert.Equal(t, tt.member, res.MemberID)

			id, _ := r.MemberID(types.SourceMeeting, tt.raw)
			assert.Equal(t, tt.member, id)
		})
	}
}

func TestParticipantMatches(t *testing.T) {
	assert.True(t, participantMatches("Suah", "Suah Kim"))
	assert.True(t, participantMatches("Suah Kim (guest)", "Suah Kim"))
	assert.False(t, participantMatches("Suahkim", "Suah Kim"))
	assert.False(t, participantMatches("Kalman", "Al"))
	assert.False(t, participantMatches("(guest)", ""))
}

func TestNewIndex_SkipsInvalidMembers(t *testing.T) {
	idx := NewIndex([]types.Member{
		{ID: "a", DisplayName: "A"},
		{ID: "", DisplayName: "nobody"},
		{ID: "a", DisplayName: "A again"},
	})

	assert.Equal(t, 1, idx.Len())
	m, ok := idx.Member("a")
	require.True(t, ok)
	assert.Equal(t, "A", m.DisplayName)
	assert.Equal(t, "missing", idx.DisplayName("missing"))
}

func TestMatchesName(t *testing.T) {
	assert.True(t, MatchesName("suah", "Suah Kim"))
	assert.True(t, MatchesName("SUAH   kim", "Suah Kim"))
	assert.False(t, MatchesName("Suah Kim", "Suah"))
	assert.False(t, MatchesName("", "Suah"))
	assert.False(t, MatchesName("x", ""))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyFirstMatch, p)

	p, err = ParsePolicy("unresolved")
	require.NoError(t, err)
	assert.Equal(t, PolicyUnresolved, p)

	_, err = ParsePolicy("random")
	assert.Error(t, err)
}
