package normalize

import (
	"context"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/teampulse/internal/errors"
	"github.com/ZanzyTHEbar/teampulse/internal/identity"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testNormalizer(excludeBots bool) *Normalizer {
	members := []types.Member{
		{
			ID:          "m-x",
			DisplayName: "Xavier",
			Identifiers: map[types.SourceType]string{
				types.SourceCode:     "xav",
				types.SourceChat:     "U1",
				types.SourceReaction: "U1",
				types.SourceDocument: "x@example.com",
			},
		},
		{ID: "m-zena", DisplayName: "Zena", RecordingName: "Suah Kim"},
	}
	projects := StaticProjects{}
	projects.Add(ResourceRepository, "org/api", "api")
	projects.Add(ResourceChannel, "C-api", "api")

	resolver := identity.NewResolver(identity.NewIndex(members), identity.PolicyFirstMatch)
	return New(resolver, projects, Options{ExcludeBots: excludeBots})
}

func TestNormalize_CodeSubtypes(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := testNormalizer(false)

	tests := []struct {
		name    string
		typ     string
		meta    map[string]any
		subtype string
		context string
	}{
		{"commit", "commit", map[string]any{"repository": "org/api"}, types.SubtypeCommit, ""},
		{"reverted commit", "commit", map[string]any{"reverted": true}, types.SubtypeCommitReverted, ""},
		{"merged pr", "pull_request", map[string]any{"merged": true, "repository": "org/api", "number": float64(42)}, types.SubtypePullRequestMerged, "org/api#42"},
		{"open pr", "pull_request", map[string]any{"merged": false, "state": "open"}, types.SubtypePullRequestOpen, ""},
		{"closed unmerged pr", "pull_request", map[string]any{"state": "closed"}, types.SubtypePullRequestClosed, ""},
		{"review", "review", map[string]any{"repository": "org/api", "number": "42"}, types.SubtypePullRequestReview, "org/api#42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acts, err := n.Normalize(RawSourceEvent{
				ID:        "e1",
				Source:    types.SourceCode,
				Type:      tt.typ,
				Actor:     "xav",
				Timestamp: "2024-03-03T10:00:00Z",
				Metadata:  tt.meta,
			})
			require.NoError(t, err)
			require.Len(t, acts, 1)
			assert.Equal(t, tt.subtype, acts[0].Subtype)
			assert.Equal(t, tt.context, acts[0].Context)
			assert.Equal(t, "m-x", acts[0].MemberID)
			assert.Equal(t, tt.meta, acts[0].Metadata)
		})
	}
}

func TestNormalize_ProjectAssociation(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := testNormalizer(false)

	acts, err := n.Normalize(RawSourceEvent{
		ID: "c1", Source: types.SourceChat, Type: "message", Actor: "U1",
		Timestamp: "1709460000.000100",
		Metadata:  map[string]any{"channel": "C-api", "thread_ts": "1709450000.000000"},
	})
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "api", acts[0].ProjectKey)
	assert.Equal(t, "C-api:1709450000.000000", acts[0].Context)

	acts, err = n.Normalize(RawSourceEvent{
		ID: "d1", Source: types.SourceDocument, Actor: "x@example.com",
		Timestamp: "2024-03-03 10:00:00",
		Metadata:  map[string]any{"folder": "unmapped"},
	})
	require.NoError(t, err)
	assert.Empty(t, acts[0].ProjectKey, "unmapped resources leave the project empty")
	assert.Equal(t, "edit", acts[0].Subtype)
}

func TestNormalize_UnresolvedActorIsRetained(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := testNormalizer(false)

	acts, err := n.Normalize(RawSourceEvent{
		ID: "c2", Source: types.SourceChat, Actor: "U-unknown", Timestamp: "2024-03-03T10:00:00Z",
	})
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.False(t, acts[0].Resolved())
	assert.Equal(t, "U-unknown", acts[0].RawActor)
}

func TestNormalize_MeetingParticipants(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := testNormalizer(false)

	acts, err := n.Normalize(RawSourceEvent{
		ID:           "mt1",
		Source:       types.SourceMeeting,
		Participants: []string{"Suah Kim", "suah kim", "Guest", "guest", " "},
		Timestamp:    "2024-03-03T10:00:00+09:00",
		Metadata:     map[string]any{"meeting_id": "standup-0303"},
	})
	require.NoError(t, err)
	require.Len(t, acts, 2)

	assert.Equal(t, "m-zena", acts[0].MemberID)
	assert.Equal(t, "mt1:0", acts[0].ID)
	assert.Equal(t, types.SubtypeAttendance, acts[0].Subtype)
	assert.Equal(t, "standup-0303", acts[0].Context)
	assert.Equal(t, time.Date(2024, 3, 3, 1, 0, 0, 0, time.UTC), acts[0].Timestamp)

	assert.False(t, acts[1].Resolved())
	assert.Equal(t, "Guest", acts[1].RawActor)

	summary, err := n.Normalize(RawSourceEvent{
		ID: "ms1", Source: types.SourceMeetingSummary, Participants: []string{"Suah Kim"},
		Timestamp: "2024-03-03T12:00:00Z",
	})
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, types.SubtypeDailyAnalysis, summary[0].Subtype)
	assert.Empty(t, summary[0].Context)
}

func TestNormalize_Malformed(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := testNormalizer(false)

	tests := []struct {
		name string
		raw  RawSourceEvent
	}{
		{"bad timestamp", RawSourceEvent{ID: "1", Source: types.SourceCode, Actor: "xav", Timestamp: "yesterday"}},
		{"missing timestamp", RawSourceEvent{ID: "2", Source: types.SourceCode, Actor: "xav"}},
		{"missing actor", RawSourceEvent{ID: "3", Source: types.SourceChat, Timestamp: "2024-03-03T10:00:00Z"}},
		{"unknown source", RawSourceEvent{ID: "4", Source: "fax", Actor: "xav", Timestamp: "2024-03-03T10:00:00Z"}},
		{"meeting without participants", RawSourceEvent{ID: "5", Source: types.SourceMeeting, Timestamp: "2024-03-03T10:00:00Z"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acts, err := n.Normalize(tt.raw)
			assert.ErrorIs(t, err, errors.ErrMalformedEvent)
			assert.Empty(t, acts)
		})
	}
}

func TestNormalizeAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := testNormalizer(true)
	events := []RawSourceEvent{
		{ID: "c1", Source: types.SourceCode, Actor: "xav", Timestamp: "2024-03-03T10:00:00Z"},
		{ID: "c1", Source: types.SourceCode, Actor: "xav", Timestamp: "2024-03-03T10:00:00Z"},
		{ID: "c1", Source: types.SourceChat, Actor: "U1", Timestamp: "2024-03-03T09:00:00Z"},
		{ID: "b1", Source: types.SourceCode, Actor: "dependabot[bot]", Timestamp: "2024-03-03T11:00:00Z"},
		{ID: "b2", Source: types.SourceChat, Actor: "U9", Timestamp: "2024-03-03T11:00:00Z", Metadata: map[string]any{"is_bot": true}},
		{ID: "x1", Source: types.SourceChat, Actor: "U1", Timestamp: "not a time"},
		{ID: "m1", Source: types.SourceMeeting, Participants: []string{"Suah Kim", "Xavier"}, Timestamp: "2024-03-02T09:00:00Z"},
	}

	batch := n.NormalizeAll(context.Background(), events)

	assert.False(t, batch.Partial)
	assert.Equal(t, 1, batch.Dropped[DropDuplicate])
	assert.Equal(t, 2, batch.Dropped[DropBot])
	assert.Equal(t, 1, batch.Dropped[DropMalformed])
	require.Len(t, batch.Activities, 4)

	ids := make([]string, len(batch.Activities))
	for i, a := range batch.Activities {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"m1:0", "m1:1", "c1", "c1"}, ids)
	assert.Equal(t, types.SourceChat, batch.Activities[2].Source)

	again := n.NormalizeAll(context.Background(), events)
	assert.Equal(t, batch, again, "normalization is deterministic")
}

func TestNormalize_MissingIDIsStable(t *testing.T) {
	defer goleak.VerifyNone(t)

	n := testNormalizer(false)
	raw := RawSourceEvent{
		Source:       types.SourceMeeting,
		Participants: []string{"Suah Kim", "Guest"},
		Timestamp:    "2024-03-03T10:00:00Z",
	}

	first, err := n.Normalize(raw)
	require.NoError(t, err)
	second, err := n.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, first, second, "same record, same activity ids")
	assert.Equal(t, raw.DerivedID()+":0", first[0].ID)

	other := raw
	other.Timestamp = "2024-03-03T11:00:00Z"
	assert.NotEqual(t, raw.DerivedID(), other.DerivedID())

	batch := n.NormalizeAll(context.Background(), []RawSourceEvent{raw, other})
	again := n.NormalizeAll(context.Background(), []RawSourceEvent{raw, other})
	assert.Equal(t, batch.Activities, again.Activities)
}

func TestNormalizeAll_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := testNormalizer(false).NormalizeAll(ctx, []RawSourceEvent{
		{ID: "c1", Source: types.SourceCode, Actor: "xav", Timestamp: "2024-03-03T10:00:00Z"},
	})
	assert.True(t, batch.Partial)
	assert.Empty(t, batch.Activities)
	assert.NotNil(t, batch.Dropped)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-03-03T10:00:00Z", time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)},
		{"2024-03-03T19:00:00+09:00", time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)},
		{"2024-03-03T10:00:00.123456789Z", time.Date(2024, 3, 3, 10, 0, 0, 123456789, time.UTC)},
		{"2024-03-03 10:00:00", time.Date(2024, 3, 3, 10, 0, 0, 0, time.UTC)},
		{"1709460000", time.Unix(1709460000, 0).UTC()},
		{"1709460000.000200", time.Unix(1709460000, 200000).UTC()},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	for _, bad := range []string{"", "soon", "-5", "1709460000.x"} {
		_, err := ParseTimestamp(bad)
		assert.Error(t, err, bad)
	}
}
