package types

import (
	"sort"
	"time"
)

// SourceType identifies the collaboration source an activity came from
type SourceType string

const (
	SourceCode           SourceType = "code"
	SourceChat           SourceType = "chat"
	SourceReaction       SourceType = "reaction"
	SourceDocument       SourceType = "document"
	SourceFile           SourceType = "file"
	SourceMeeting        SourceType = "meeting"
	SourceMeetingSummary SourceType = "meeting_summary"
)

// AllSources lists every source type in display order
var AllSources = []SourceType{
	SourceCode,
	SourceChat,
	SourceReaction,
	SourceDocument,
	SourceFile,
	SourceMeeting,
	SourceMeetingSummary,
}

// Valid reports whether s is a known source type
func (s SourceType) Valid() bool {
	for _, known := range AllSources {
		if s == known {
			return true
		}
	}
	return false
}

// IsMeeting reports whether participant names from this source are free text
func (s SourceType) IsMeeting() bool {
	return s == SourceMeeting || s == SourceMeetingSummary
}

// Activity subtypes. Merge and validity state is folded into the subtype so
// scoring never has to inspect metadata.
const (
	SubtypeCommit            = "commit"
	SubtypeCommitReverted    = "commit_reverted"
	SubtypePullRequestMerged = "pull_request_merged"
	SubtypePullRequestOpen   = "pull_request_open"
	SubtypePullRequestClosed = "pull_request_closed"
	SubtypePullRequestReview = "pull_request_review"
	SubtypeMessage           = "message"
	SubtypeMessageDeleted    = "message_deleted"
	SubtypeReaction          = "reaction"
	SubtypeReactionRemoved   = "reaction_removed"
	SubtypeAttendance        = "attendance"
	SubtypeDailyAnalysis     = "daily_analysis"
)

// Member is the canonical person. Read-only to the analytics core.
type Member struct {
	ID            string                `json:"id" yaml:"id"`
	DisplayName   string                `json:"display_name" yaml:"display_name"`
	Email         string                `json:"email,omitempty" yaml:"email,omitempty"`
	Identifiers   map[SourceType]string `json:"identifiers,omitempty" yaml:"identifiers,omitempty"`
	RecordingName string                `json:"recording_name,omitempty" yaml:"recording_name,omitempty"`
	Roles         []string              `json:"roles,omitempty" yaml:"roles,omitempty"`
	Projects      []string              `json:"projects,omitempty" yaml:"projects,omitempty"`
}

// Identifier returns the member's configured identifier for a source
func (m Member) Identifier(source SourceType) (string, bool) {
	id, ok := m.Identifiers[source]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// InProject reports whether the member belongs to the given project
func (m Member) InProject(key string) bool {
	for _, p := range m.Projects {
		if p == key {
			return true
		}
	}
	return false
}

// Activity is the canonical, source-agnostic event record.
// An empty MemberID means identity resolution failed.
type Activity struct {
	ID         string         `json:"id"`
	MemberID   string         `json:"member_id,omitempty"`
	RawActor   string         `json:"raw_actor,omitempty"`
	Source     SourceType     `json:"source"`
	Subtype    string         `json:"subtype"`
	Timestamp  time.Time      `json:"timestamp"`
	ProjectKey string         `json:"project_key,omitempty"`
	Context    string         `json:"context,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Resolved reports whether the activity is attributed to a member
func (a Activity) Resolved() bool {
	return a.MemberID != ""
}

// SortRecent orders activities newest first, ties broken by id
func SortRecent(acts []Activity) {
	sort.SliceStable(acts, func(i, j int) bool {
		if !acts[i].Timestamp.Equal(acts[j].Timestamp) {
			return acts[i].Timestamp.After(acts[j].Timestamp)
		}
		return acts[i].ID < acts[j].ID
	})
}
