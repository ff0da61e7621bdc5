package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/teampulse/internal/errors"
	"github.com/ZanzyTHEbar/teampulse/internal/identity"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// Env carries the request-scoped lookups a variant needs
type Env struct {
	Resolver  *identity.Resolver
	Projects  ProjectLookup
	Timestamp time.Time
}

// Variant is one source's raw shape. Each variant turns its record into
// canonical activities.
type Variant interface {
	Activities(env Env) ([]types.Activity, error)
}

// VariantFor selects the variant for a raw event's source
func VariantFor(raw RawSourceEvent) (Variant, error) {
	switch raw.Source {
	case types.SourceCode:
		return codeEvent{raw}, nil
	case types.SourceChat:
		return chatEvent{raw}, nil
	case types.SourceReaction:
		return reactionEvent{raw}, nil
	case types.SourceDocument, types.SourceFile:
		return contentEvent{raw}, nil
	case types.SourceMeeting:
		return meetingEvent{raw: raw, subtype: types.SubtypeAttendance, collaborative: true}, nil
	case types.SourceMeetingSummary:
		return meetingEvent{raw: raw, subtype: types.SubtypeDailyAnalysis}, nil
	}
	return nil, errors.MalformedEvent(raw.ID, fmt.Sprintf("unknown source %q", raw.Source))
}

func (env Env) single(raw RawSourceEvent, subtype, context string) ([]types.Activity, error) {
	if strings.TrimSpace(raw.Actor) == "" {
		return nil, errors.MalformedEvent(raw.ID, "missing actor")
	}
	return []types.Activity{env.build(raw, raw.ID, raw.Actor, subtype, context)}, nil
}

func (env Env) build(raw RawSourceEvent, id, actor, subtype, context string) types.Activity {
	act := types.Activity{
		ID:         id,
		RawActor:   actor,
		Source:     raw.Source,
		Subtype:    subtype,
		Timestamp:  env.Timestamp,
		ProjectKey: raw.project(env.Projects),
		Context:    context,
		Metadata:   raw.Metadata,
	}
	if env.Resolver != nil {
		act.MemberID, _ = env.Resolver.MemberID(raw.Source, actor)
	}
	return act
}

func subtypeOr(raw RawSourceEvent, fallback string) string {
	t := strings.ToLower(strings.TrimSpace(raw.Type))
	if t == "" {
		return fallback
	}
	return t
}

type codeEvent struct{ raw RawSourceEvent }

func (e codeEvent) Activities(env Env) ([]types.Activity, error) {
	raw := e.raw
	subtype := subtypeOr(raw, types.SubtypeCommit)

	switch subtype {
	case types.SubtypeCommit:
		if raw.metaBool("reverted") {
			subtype = types.SubtypeCommitReverted
		}
	case "pull_request", "pr", types.SubtypePullRequestMerged, types.SubtypePullRequestOpen, types.SubtypePullRequestClosed:
		subtype = pullRequestState(raw, subtype)
	case "review", "pr_review":
		subtype = types.SubtypePullRequestReview
	}

	var context string
	if subtype != types.SubtypeCommit && subtype != types.SubtypeCommitReverted {
		repo, number := raw.metaString(ResourceRepository), raw.metaString("number")
		if repo != "" && number != "" {
			context = repo + "#" + number
		}
	}

	return env.single(raw, subtype, context)
}

// pullRequestState folds merge state into the subtype. Only merged pull
// requests carry a non-zero default weight.
func pullRequestState(raw RawSourceEvent, subtype string) string {
	if raw.metaBool("merged") || strings.EqualFold(raw.metaString("state"), "merged") {
		return types.SubtypePullRequestMerged
	}
	if _, ok := raw.Metadata["merged"]; ok || raw.metaString("state") != "" {
		if strings.EqualFold(raw.metaString("state"), "closed") {
			return types.SubtypePullRequestClosed
		}
		return types.SubtypePullRequestOpen
	}
	switch subtype {
	case types.SubtypePullRequestMerged, types.SubtypePullRequestClosed:
		return subtype
	}
	return types.SubtypePullRequestOpen
}

type chatEvent struct{ raw RawSourceEvent }

func (e chatEvent) Activities(env Env) ([]types.Activity, error) {
	raw := e.raw
	subtype := subtypeOr(raw, types.SubtypeMessage)
	if subtype == types.SubtypeMessage && raw.metaBool("deleted") {
		subtype = types.SubtypeMessageDeleted
	}

	var context string
	if channel := raw.metaString(ResourceChannel); channel != "" {
		thread := raw.metaString("thread_ts")
		if thread == "" {
			thread = raw.metaString("ts")
		}
		if thread == "" {
			thread = raw.Timestamp
		}
		context = channel + ":" + thread
	}

	return env.single(raw, subtype, context)
}

type reactionEvent struct{ raw RawSourceEvent }

func (e reactionEvent) Activities(env Env) ([]types.Activity, error) {
	subtype := subtypeOr(e.raw, types.SubtypeReaction)
	if subtype == types.SubtypeReaction && e.raw.metaBool("removed") {
		subtype = types.SubtypeReactionRemoved
	}
	return env.single(e.raw, subtype, "")
}

// contentEvent covers document edits and file activity
type contentEvent struct{ raw RawSourceEvent }

func (e contentEvent) Activities(env Env) ([]types.Activity, error) {
	return env.single(e.raw, subtypeOr(e.raw, "edit"), "")
}

// meetingEvent yields one activity per distinct participant
type meetingEvent struct {
	raw           RawSourceEvent
	subtype       string
	collaborative bool
}

func (e meetingEvent) Activities(env Env) ([]types.Activity, error) {
	raw := e.raw
	participants := raw.Participants
	if len(participants) == 0 && raw.Actor != "" {
		participants = []string{raw.Actor}
	}
	if len(participants) == 0 {
		return nil, errors.MalformedEvent(raw.ID, "meeting without participants")
	}

	var context string
	if e.collaborative {
		context = raw.metaString("meeting_id")
		if context == "" {
			context = raw.ID
		}
	}

	subtype := subtypeOr(raw, e.subtype)
	if subtype == "meeting" || subtype == "transcript" {
		subtype = e.subtype
	}

	seen := make(map[string]bool, len(participants))
	acts := make([]types.Activity, 0, len(participants))
	for i, name := range participants {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		act := env.build(raw, fmt.Sprintf("%s:%d", raw.ID, i), name, subtype, context)

		key := "member:" + act.MemberID
		if !act.Resolved() {
			key = "raw:" + strings.ToLower(name)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		acts = append(acts, act)
	}

	if len(acts) == 0 {
		return nil, errors.MalformedEvent(raw.ID, "meeting without participants")
	}
	return acts, nil
}
