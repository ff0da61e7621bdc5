package analysis

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ZanzyTHEbar/teampulse/internal/errors"
	"github.com/ZanzyTHEbar/teampulse/internal/identity"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// ActivityQuery filters an activity search. Zero fields match everything.
type ActivityQuery struct {
	MemberName string
	Source     types.SourceType
	Project    string
	Limit      int
}

// ActivitySearch is a bounded, newest-first list of matching activities
type ActivitySearch struct {
	Window      WindowInfo       `json:"window"`
	Total       int              `json:"total"`
	Activities  []types.Activity `json:"activities"`
	Diagnostics Diagnostics      `json:"diagnostics"`
}

// nameFilter matches the display name of the attributed member. Meeting
// activities also match on the member's recording name and on the raw
// participant name, which is all an unresolved participant carries.
func nameFilter(index *identity.Index, query string) Filter {
	return func(act types.Activity) bool {
		member, ok := index.Member(act.MemberID)
		if ok && identity.MatchesName(query, member.DisplayName) {
			return true
		}
		if !act.Source.IsMeeting() {
			return false
		}
		if ok && identity.MatchesName(query, member.RecordingName) {
			return true
		}
		return identity.MatchesName(query, act.RawActor)
	}
}

// SearchActivities returns activities in w matching q
func (a *Analyzer) SearchActivities(ctx context.Context, w types.Window, q ActivityQuery) (result *ActivitySearch, err error) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "analysis.search", trace.WithAttributes(
		attribute.String("query.source", string(q.Source)),
		attribute.Int("window.days", w.Days()),
	))
	var diag Diagnostics
	defer func() { a.observe(span, "search", start, err, diag) }()

	if q.Source != "" && !q.Source.Valid() {
		return nil, errors.NewValidationError("unknown source", "source", string(q.Source))
	}
	limit := a.boundLimit(q.Limit, a.cfg.RecentLimit, a.cfg.MaxCollaboratorLimit)

	req, cctx, cancel, err := a.load(ctx, w, false)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var filters []Filter
	if q.Source != "" {
		source := q.Source
		filters = append(filters, func(act types.Activity) bool { return act.Source == source })
	}
	if q.Project != "" {
		filters = append(filters, ForProject(q.Project))
	}
	if q.MemberName != "" {
		filters = append(filters, nameFilter(req.index, q.MemberName))
	}

	matched := req.inWindow(And(filters...))
	types.SortRecent(matched)

	result = &ActivitySearch{
		Window:      describe(w),
		Total:       len(matched),
		Activities:  matched,
		Diagnostics: Diagnostics{Dropped: make(map[string]int)},
	}
	if len(matched) > limit {
		result.Activities = matched[:limit]
	}
	for _, act := range matched {
		if !act.Resolved() {
			result.Diagnostics.Unresolved++
		}
	}
	for reason, n := range req.batch.Dropped {
		result.Diagnostics.Dropped[reason] = n
	}
	result.Diagnostics.Partial = req.batch.Partial || cctx.Err() != nil
	diag = result.Diagnostics
	return result, nil
}
