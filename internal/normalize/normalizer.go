package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ZanzyTHEbar/teampulse/internal/errors"
	"github.com/ZanzyTHEbar/teampulse/internal/identity"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// Options tunes batch normalization
type Options struct {
	ExcludeBots bool
}

// Batch is the outcome of normalizing one request's raw events
type Batch struct {
	Activities []types.Activity
	Dropped    map[string]int
	Partial    bool
}

// Normalizer converts raw collector records into canonical activities
type Normalizer struct {
	resolver *identity.Resolver
	projects ProjectLookup
	opts     Options
	logger   *slog.Logger
}

// New creates a normalizer bound to a request's resolver and project lookup
func New(resolver *identity.Resolver, projects ProjectLookup, opts Options) *Normalizer {
	return &Normalizer{
		resolver: resolver,
		projects: projects,
		opts:     opts,
		logger:   slog.With("component", "normalize"),
	}
}

// Normalize converts one raw record. Malformed records return an error
// wrapping ErrMalformedEvent and no activities.
func (n *Normalizer) Normalize(raw RawSourceEvent) (acts []types.Activity, err error) {
	defer func() {
		if r := recover(); r != nil {
			acts, err = nil, errors.MalformedEvent(raw.ID, fmt.Sprintf("panic: %v", r))
		}
	}()

	if raw.ID == "" {
		raw.ID = raw.DerivedID()
	}

	ts, err := ParseTimestamp(raw.Timestamp)
	if err != nil {
		return nil, errors.MalformedEvent(raw.ID, err.Error())
	}

	variant, err := VariantFor(raw)
	if err != nil {
		return nil, err
	}

	return variant.Activities(Env{Resolver: n.resolver, Projects: n.projects, Timestamp: ts})
}

type sourceResult struct {
	acts      []types.Activity
	malformed int
	partial   bool
}

// NormalizeAll normalizes a batch, one goroutine per source. The member index
// is read-only so sources share the resolver safely. Malformed records are
// counted, never returned as errors. A cancelled ctx yields the activities
// normalized so far with Partial set.
func (n *Normalizer) NormalizeAll(ctx context.Context, events []RawSourceEvent) Batch {
	batch := Batch{Dropped: map[string]int{
		DropMalformed: 0,
		DropDuplicate: 0,
		DropBot:       0,
	}}

	events = preprocess(events, n.opts.ExcludeBots, batch.Dropped)

	bySource := make(map[types.SourceType][]RawSourceEvent)
	var order []types.SourceType
	for _, ev := range events {
		if _, ok := bySource[ev.Source]; !ok {
			order = append(order, ev.Source)
		}
		bySource[ev.Source] = append(bySource[ev.Source], ev)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	results := make([]sourceResult, len(order))
	g := new(errgroup.Group)
	for i, source := range order {
		g.Go(func() error {
			results[i] = n.normalizeSource(ctx, source, bySource[source])
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range results {
		batch.Activities = append(batch.Activities, res.acts...)
		batch.Dropped[DropMalformed] += res.malformed
		batch.Partial = batch.Partial || res.partial
	}

	sort.SliceStable(batch.Activities, func(i, j int) bool {
		a, b := batch.Activities[i], batch.Activities[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.ID < b.ID
	})

	return batch
}

func (n *Normalizer) normalizeSource(ctx context.Context, source types.SourceType, events []RawSourceEvent) sourceResult {
	var res sourceResult
	for i, ev := range events {
		if ctx.Err() != nil {
			res.partial = true
			n.logger.Warn("Normalization cancelled", "source", source, "remaining", len(events)-i)
			return res
		}

		acts, err := n.Normalize(ev)
		if err != nil {
			res.malformed++
			n.logger.Warn("Dropping malformed event",
				"source", source,
				"record_id", ev.ID,
				"error", err)
			continue
		}
		res.acts = append(res.acts, acts...)
	}
	return res
}
