package analysis

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/teampulse/internal/collaboration"
	"github.com/ZanzyTHEbar/teampulse/internal/errors"
	"github.com/ZanzyTHEbar/teampulse/internal/identity"
	"github.com/ZanzyTHEbar/teampulse/internal/leaderboard"
	"github.com/ZanzyTHEbar/teampulse/internal/monitoring"
	"github.com/ZanzyTHEbar/teampulse/internal/normalize"
	"github.com/ZanzyTHEbar/teampulse/internal/resilience"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

const tracerName = "github.com/ZanzyTHEbar/teampulse/internal/analysis"

// Config tunes request handling
type Config struct {
	Location                 *time.Location
	DefaultWindowDays        int
	MaxWindowDays            int
	Timeout                  time.Duration
	RecentLimit              int
	DefaultCollaboratorLimit int
	MaxCollaboratorLimit     int
	DefaultMinScore          float64
	AmbiguityPolicy          identity.Policy
	ExcludeBots              bool
	ScoreWeights             Weights
	CollaborationWeights     collaboration.Weights
}

// DefaultConfig returns the stock request settings
func DefaultConfig() Config {
	return Config{
		Location:                 time.UTC,
		DefaultWindowDays:        28,
		MaxWindowDays:            366,
		Timeout:                  5 * time.Second,
		RecentLimit:              20,
		DefaultCollaboratorLimit: 10,
		MaxCollaboratorLimit:     100,
		AmbiguityPolicy:          identity.PolicyFirstMatch,
		ExcludeBots:              true,
		ScoreWeights:             DefaultWeights(),
		CollaborationWeights:     collaboration.DefaultWeights(),
	}
}

// MemberSource loads the member index for a request
type MemberSource interface {
	Load(ctx context.Context) (*identity.Index, error)
	Invalidate(ctx context.Context) error
}

// ProjectDirectory supplies resource → project mappings
type ProjectDirectory interface {
	Projects(ctx context.Context) (normalize.StaticProjects, error)
}

// EventStore supplies raw collector events for a time range
type EventStore interface {
	Events(ctx context.Context, start, end time.Time) ([]normalize.RawSourceEvent, error)
}

// Analyzer runs request-scoped analytics over the external collaborators.
// It holds no per-request state; every call loads, normalizes and folds anew.
type Analyzer struct {
	cfg        Config
	members    MemberSource
	projects   ProjectDirectory
	events     EventStore
	metrics    *monitoring.Metrics
	retry      resilience.RetryConfig
	tracer     trace.Tracer
	now        func() time.Time
	aggregator *Aggregator
	scorer     *Scorer
	builder    *collaboration.Builder
	logger     *slog.Logger
}

// NewAnalyzer creates an analyzer. metrics may be nil.
func NewAnalyzer(cfg Config, members MemberSource, projects ProjectDirectory, events EventStore, metrics *monitoring.Metrics) *Analyzer {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Analyzer{
		cfg:        cfg,
		members:    members,
		projects:   projects,
		events:     events,
		metrics:    metrics,
		retry:      resilience.DefaultRetryConfig(),
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
		aggregator: NewAggregator(cfg.RecentLimit),
		scorer:     NewScorer(cfg.ScoreWeights),
		builder:    collaboration.NewBuilder(cfg.CollaborationWeights),
		logger:     slog.With("component", "analyzer"),
	}
}

// WithClock replaces the clock used to resolve windows ending "today"
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// WithTracerProvider replaces the global tracer provider for this analyzer's spans
func (a *Analyzer) WithTracerProvider(tp trace.TracerProvider) *Analyzer {
	a.tracer = tp.Tracer(tracerName)
	return a
}

// WithRetry overrides the retry policy for event store loads
func (a *Analyzer) WithRetry(cfg resilience.RetryConfig) *Analyzer {
	a.retry = cfg
	return a
}

// Config returns the analyzer's settings
func (a *Analyzer) Config() Config {
	return a.cfg
}

// request is the immutable input shared by every stage of one call
type request struct {
	window types.Window
	index  *identity.Index
	batch  normalize.Batch
}

// load fetches the directory and events for w and normalizes them under the
// aggregation deadline. The returned context carries that deadline.
func (a *Analyzer) load(ctx context.Context, w types.Window, requireProjects bool) (*request, context.Context, context.CancelFunc, error) {
	ctx, span := a.tracer.Start(ctx, "analysis.load")
	defer span.End()

	index, err := a.members.Load(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	var projects normalize.ProjectLookup
	if a.projects != nil {
		p, err := a.projects.Projects(ctx)
		switch {
		case err != nil && requireProjects:
			return nil, nil, nil, errors.NewUnavailableError("project directory", err)
		case err != nil:
			a.logger.Warn("Project directory unavailable, activities keep no project", "error", err)
		default:
			projects = p
		}
	}

	var raw []normalize.RawSourceEvent
	err = resilience.RetryWithConfig(ctx, a.retry, "event_store", func(ctx context.Context) error {
		var err error
		raw, err = a.events.Events(ctx, w.Start(), w.End())
		return err
	})
	if err != nil {
		return nil, nil, nil, errors.NewUnavailableError("raw-event store", err)
	}

	var (
		cctx   context.Context
		cancel context.CancelFunc
	)
	if a.cfg.Timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
	} else {
		cctx, cancel = context.WithCancel(ctx)
	}

	resolver := identity.NewResolver(index, a.cfg.AmbiguityPolicy)
	normalizer := normalize.New(resolver, projects, normalize.Options{ExcludeBots: a.cfg.ExcludeBots})
	batch := normalizer.NormalizeAll(cctx, raw)

	span.SetAttributes(
		attribute.Int("analysis.members", index.Len()),
		attribute.Int("analysis.raw_events", len(raw)),
		attribute.Int("analysis.activities", len(batch.Activities)),
	)

	a.recordBatch(batch)
	return &request{window: w, index: index, batch: batch}, cctx, cancel, nil
}

func (a *Analyzer) recordBatch(batch normalize.Batch) {
	if a.metrics == nil {
		return
	}
	bySource := make(map[types.SourceType]int)
	unresolved := 0
	for _, act := range batch.Activities {
		bySource[act.Source]++
		if !act.Resolved() {
			unresolved++
		}
	}
	for source, n := range bySource {
		a.metrics.RecordNormalized(string(source), n)
	}
	for reason, n := range batch.Dropped {
		a.metrics.RecordDropped(reason, n)
	}
	a.metrics.RecordUnresolved(unresolved)
}

// finish merges normalization diagnostics into a summary
func (r *request) finish(s *Summary) {
	for reason, n := range r.batch.Dropped {
		s.Diagnostics.Dropped[reason] += n
	}
	s.Diagnostics.Partial = s.Diagnostics.Partial || r.batch.Partial
}

// inWindow returns the activities whose local date falls inside the window
// and that filter accepts
func (r *request) inWindow(filter Filter) []types.Activity {
	out := make([]types.Activity, 0, len(r.batch.Activities))
	for _, act := range r.batch.Activities {
		if !r.window.Contains(act.Timestamp) {
			continue
		}
		if filter != nil && !safeFilter(filter, act) {
			continue
		}
		out = append(out, act)
	}
	return out
}

func safeFilter(filter Filter, act types.Activity) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return filter(act)
}

func (a *Analyzer) observe(span trace.Span, operation string, start time.Time, err error, diag Diagnostics) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(
			attribute.Int("analysis.skipped", diag.Skipped),
			attribute.Bool("analysis.partial", diag.Partial),
		)
	}
	span.End()

	a.metrics.RecordAnalysis(operation, err, diag.Partial, time.Since(start))
	a.metrics.RecordSkipped(diag.Skipped)

	if err == nil {
		a.logger.Debug("Analysis completed",
			"operation", operation,
			"skipped", diag.Skipped,
			"partial", diag.Partial,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// MemberAnalytics is the per-member analytics object
type MemberAnalytics struct {
	MemberID     string            `json:"member_id"`
	DisplayName  string            `json:"display_name"`
	Window       WindowInfo        `json:"window"`
	Contribution ContributionScore `json:"contribution"`
	Summary
}

// MemberAnalytics aggregates and scores one member's activities in w
func (a *Analyzer) MemberAnalytics(ctx context.Context, memberID string, w types.Window) (result *MemberAnalytics, err error) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "analysis.member", trace.WithAttributes(
		attribute.String("member.id", memberID),
		attribute.Int("window.days", w.Days()),
	))
	var diag Diagnostics
	defer func() { a.observe(span, "member", start, err, diag) }()

	req, cctx, cancel, err := a.load(ctx, w, false)
	if err != nil {
		return nil, err
	}
	defer cancel()

	member, ok := req.index.Member(memberID)
	if !ok {
		return nil, errors.NewNotFoundError("member", memberID)
	}

	result = &MemberAnalytics{
		MemberID:    member.ID,
		DisplayName: member.DisplayName,
		Window:      describe(w),
	}

	var g errgroup.Group
	g.Go(func() error {
		result.Summary = a.aggregator.Aggregate(cctx, req.batch.Activities, w, ForMember(memberID))
		return nil
	})
	g.Go(func() error {
		result.Contribution = a.scorer.Contribution(memberID, req.inWindow(ForMember(memberID)))
		return nil
	})
	_ = g.Wait()

	req.finish(&result.Summary)
	diag = result.Diagnostics
	return result, nil
}

// ProjectAnalytics is the per-project analytics object
type ProjectAnalytics struct {
	ProjectKey   string                         `json:"project_key"`
	Window       WindowInfo                     `json:"window"`
	Members      []string                       `json:"members"`
	Contributors []leaderboard.LeaderboardEntry `json:"contributors"`
	Summary
}

// ProjectAnalytics aggregates activities associated with key in w
func (a *Analyzer) ProjectAnalytics(ctx context.Context, key string, w types.Window) (result *ProjectAnalytics, err error) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "analysis.project", trace.WithAttributes(
		attribute.String("project.key", key),
		attribute.Int("window.days", w.Days()),
	))
	var diag Diagnostics
	defer func() { a.observe(span, "project", start, err, diag) }()

	req, cctx, cancel, err := a.load(ctx, w, true)
	if err != nil {
		return nil, err
	}
	defer cancel()

	members := []string{}
	for _, m := range req.index.Members() {
		if m.InProject(key) {
			members = append(members, m.ID)
		}
	}

	scoped := req.inWindow(ForProject(key))
	if len(members) == 0 && len(scoped) == 0 {
		return nil, errors.NewNotFoundError("project", key)
	}

	result = &ProjectAnalytics{
		ProjectKey: key,
		Window:     describe(w),
		Members:    members,
	}

	var g errgroup.Group
	g.Go(func() error {
		result.Summary = a.aggregator.Aggregate(cctx, req.batch.Activities, w, ForProject(key))
		return nil
	})
	g.Go(func() error {
		result.Contributors = a.rank(req.index, members, scoped).Ranked()
		return nil
	})
	_ = g.Wait()

	req.finish(&result.Summary)
	diag = result.Diagnostics
	return result, nil
}

// CollaborationOptions narrows a collaboration query
type CollaborationOptions struct {
	Limit    int
	MinScore *float64
	Project  string
}

// CollaborationReport is a member's ranked network plus request diagnostics
type CollaborationReport struct {
	collaboration.Network
	Window      WindowInfo  `json:"window"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// CollaborationNetwork ranks memberID's collaborators in w
func (a *Analyzer) CollaborationNetwork(ctx context.Context, memberID string, w types.Window, opts CollaborationOptions) (result *CollaborationReport, err error) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "analysis.collaboration", trace.WithAttributes(
		attribute.String("member.id", memberID),
		attribute.Int("window.days", w.Days()),
	))
	var diag Diagnostics
	defer func() { a.observe(span, "collaboration", start, err, diag) }()

	limit := a.boundLimit(opts.Limit, a.cfg.DefaultCollaboratorLimit, a.cfg.MaxCollaboratorLimit)
	minScore := a.cfg.DefaultMinScore
	if opts.MinScore != nil {
		minScore = *opts.MinScore
	}

	req, cctx, cancel, err := a.load(ctx, w, opts.Project != "")
	if err != nil {
		return nil, err
	}
	defer cancel()

	if _, ok := req.index.Member(memberID); !ok {
		return nil, errors.NewNotFoundError("member", memberID)
	}

	var filter Filter
	if opts.Project != "" {
		filter = ForProject(opts.Project)
	}

	result = &CollaborationReport{
		Window:      describe(w),
		Diagnostics: Diagnostics{Dropped: make(map[string]int)},
	}

	acts := req.inWindow(filter)
	graph := a.builder.Build(acts)
	result.Network = graph.Network(memberID, w.Days(), limit, minScore, req.index)

	if cctx.Err() != nil {
		result.Diagnostics.Partial = true
	}
	for reason, n := range req.batch.Dropped {
		result.Diagnostics.Dropped[reason] += n
	}
	result.Diagnostics.Partial = result.Diagnostics.Partial || req.batch.Partial
	diag = result.Diagnostics
	return result, nil
}

// Dashboard is the global summary plus member leaderboard
type Dashboard struct {
	Window      WindowInfo                      `json:"window"`
	Leaderboard leaderboard.LeaderboardResponse `json:"leaderboard"`
	Members     int                             `json:"members"`
	Summary
}

// Dashboard aggregates every activity in w, unresolved ones included, and
// ranks members by contribution score
func (a *Analyzer) Dashboard(ctx context.Context, w types.Window, limit int) (result *Dashboard, err error) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "analysis.dashboard", trace.WithAttributes(
		attribute.Int("window.days", w.Days()),
	))
	var diag Diagnostics
	defer func() { a.observe(span, "dashboard", start, err, diag) }()

	limit = a.boundLimit(limit, a.cfg.DefaultCollaboratorLimit, a.cfg.MaxCollaboratorLimit)

	req, cctx, cancel, err := a.load(ctx, w, false)
	if err != nil {
		return nil, err
	}
	defer cancel()

	result = &Dashboard{
		Window:  describe(w),
		Members: req.index.Len(),
	}

	var g errgroup.Group
	g.Go(func() error {
		result.Summary = a.aggregator.Aggregate(cctx, req.batch.Activities, w, nil)
		return nil
	})
	g.Go(func() error {
		ids := make([]string, 0, req.index.Len())
		for _, m := range req.index.Members() {
			ids = append(ids, m.ID)
		}
		result.Leaderboard = a.rank(req.index, ids, req.inWindow(nil)).
			Response(w.Start(), w.End(), w.Days(), limit)
		return nil
	})
	_ = g.Wait()

	req.finish(&result.Summary)
	diag = result.Diagnostics
	return result, nil
}

func (a *Analyzer) boundLimit(limit, def, max int) int {
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}

// InvalidateDirectory drops the cached member index
func (a *Analyzer) InvalidateDirectory(ctx context.Context) error {
	return a.members.Invalidate(ctx)
}
