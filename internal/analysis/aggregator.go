package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/ZanzyTHEbar/teampulse/internal/errors"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// Diagnostics reports what a request absorbed instead of failing
type Diagnostics struct {
	Skipped    int            `json:"skipped"`
	Partial    bool           `json:"partial"`
	Unresolved int            `json:"unresolved"`
	Dropped    map[string]int `json:"dropped"`
}

// Summary is the aggregate for one scope and window. Every field is
// populated before any activity is folded, so a failed or interrupted
// fold still yields a complete object.
type Summary struct {
	TotalActivities  int                      `json:"total_activities"`
	BySource         map[string]int           `json:"by_source"`
	ByType           map[string]int           `json:"by_type"`
	DailyTrends      []types.DailyTrendPoint  `json:"daily_trends"`
	WeeklyTrends     []types.WeeklyTrendPoint `json:"weekly_trends"`
	RecentActivities []types.Activity         `json:"recent_activities"`
	Diagnostics      Diagnostics              `json:"diagnostics"`
}

// NewSummary returns the zero-valued, fully shaped summary for w
func NewSummary(w types.Window) Summary {
	s := Summary{
		BySource:         make(map[string]int, len(types.AllSources)),
		ByType:           make(map[string]int),
		DailyTrends:      types.ZeroDailyTrends(w),
		RecentActivities: []types.Activity{},
		Diagnostics:      Diagnostics{Dropped: make(map[string]int)},
	}
	for _, source := range types.AllSources {
		s.BySource[string(source)] = 0
	}
	s.WeeklyTrends = types.WeeklyTrends(s.DailyTrends)
	return s
}

// Filter scopes an aggregation. It may inspect metadata and is allowed to panic;
// a panicking filter skips only that activity.
type Filter func(types.Activity) bool

// ForMember keeps activities attributed to id
func ForMember(id string) Filter {
	return func(a types.Activity) bool { return a.MemberID == id }
}

// ForProject keeps activities associated with key
func ForProject(key string) Filter {
	return func(a types.Activity) bool { return a.ProjectKey == key }
}

// And combines filters; nil filters are ignored
func And(filters ...Filter) Filter {
	return func(a types.Activity) bool {
		for _, f := range filters {
			if f != nil && !f(a) {
				return false
			}
		}
		return true
	}
}

// Aggregator folds activities into time-bucketed summaries
type Aggregator struct {
	recentLimit int
	logger      *slog.Logger
}

// NewAggregator creates an aggregator keeping at most recentLimit recent activities
func NewAggregator(recentLimit int) *Aggregator {
	return &Aggregator{
		recentLimit: recentLimit,
		logger:      slog.With("component", "aggregator"),
	}
}

// Aggregate folds in-window activities accepted by filter. A nil filter accepts
// every activity, including unresolved ones. Records that cannot be folded are
// skipped and counted. When ctx is done the summary folded so far is returned
// with Partial set.
func (a *Aggregator) Aggregate(ctx context.Context, acts []types.Activity, w types.Window, filter Filter) (summary Summary) {
	summary = NewSummary(w)
	recent := make([]types.Activity, 0, len(acts))

	defer func() {
		if r := recover(); r != nil {
			summary.Diagnostics.Partial = true
			a.logger.Error("Aggregation aborted",
				"error", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
		summary.WeeklyTrends = types.WeeklyTrends(summary.DailyTrends)
		summary.RecentActivities = a.recent(recent)
	}()

	for i := range acts {
		if ctx.Err() != nil {
			summary.Diagnostics.Partial = true
			a.logger.Warn("Aggregation deadline exceeded",
				"error", errors.ErrAggregationTimeout,
				"folded", i,
				"remaining", len(acts)-i)
			break
		}

		folded, err := a.fold(&summary, acts[i], w, filter)
		if err != nil {
			summary.Diagnostics.Skipped++
			a.logger.Warn("Skipping activity",
				"source", acts[i].Source,
				"record_id", acts[i].ID,
				"error", err)
			continue
		}
		if folded {
			recent = append(recent, acts[i])
		}
	}

	return summary
}

// fold validates act completely before touching s, so a failure never leaves
// by_source and daily_trends out of step.
func (a *Aggregator) fold(s *Summary, act types.Activity, w types.Window, filter Filter) (folded bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			folded = false
			err = errors.FoldFailed(act.ID, r)
			a.logger.Debug("Fold panic", "record_id", act.ID, "stack", string(debug.Stack()))
		}
	}()

	if act.Timestamp.IsZero() {
		return false, errors.FoldFailed(act.ID, "missing timestamp")
	}
	if !act.Source.Valid() {
		return false, errors.FoldFailed(act.ID, fmt.Sprintf("unknown source %q", act.Source))
	}

	idx, ok := w.DayIndex(act.Timestamp)
	if !ok {
		return false, nil
	}
	if filter != nil && !filter(act) {
		return false, nil
	}

	s.DailyTrends[idx].Add(act.Source)
	s.BySource[string(act.Source)]++
	s.ByType[act.Subtype]++
	s.TotalActivities++
	if !act.Resolved() {
		s.Diagnostics.Unresolved++
	}
	return true, nil
}

func (a *Aggregator) recent(acts []types.Activity) []types.Activity {
	types.SortRecent(acts)
	if a.recentLimit >= 0 && len(acts) > a.recentLimit {
		acts = acts[:a.recentLimit]
	}
	return acts
}
