package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/teampulse/internal/analysis"
	"github.com/ZanzyTHEbar/teampulse/internal/cache"
	"github.com/ZanzyTHEbar/teampulse/internal/config"
	"github.com/ZanzyTHEbar/teampulse/internal/dataset"
	"github.com/ZanzyTHEbar/teampulse/internal/identity"
	"github.com/ZanzyTHEbar/teampulse/internal/monitoring"
)

type analyzeOptions struct {
	members string
	events  string
	member  string
	project string
	network bool
	limit   int
	days    int
	start   string
	end     string
	tz      string
}

func newAnalyzeCommand() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print an analytics report from local dataset files",
		Long: `Analyze reads a members/projects YAML file and a JSON array of raw events
and prints one report as JSON:

  --member ID             member analytics
  --member ID --network   collaboration network
  --project KEY           project analytics
  (neither)               team dashboard`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAnalyze(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.members, "members", "members.yaml", "Members and projects YAML file")
	flags.StringVar(&opts.events, "events", "events.json", "Raw events JSON file")
	flags.StringVar(&opts.member, "member", "", "Member ID to analyze")
	flags.StringVar(&opts.project, "project", "", "Project key to analyze")
	flags.BoolVar(&opts.network, "network", false, "Print the member's collaboration network")
	flags.IntVar(&opts.limit, "limit", 0, "Maximum collaborators or leaderboard entries")
	flags.IntVar(&opts.days, "days", 0, "Window length in days ending at --end")
	flags.StringVar(&opts.start, "start", "", "Window start date (YYYY-MM-DD or RFC3339)")
	flags.StringVar(&opts.end, "end", "", "Window end date (YYYY-MM-DD or RFC3339), defaults to today")
	flags.StringVar(&opts.tz, "tz", "", "IANA timezone for day bucketing")

	return cmd
}

func runAnalyze(ctx context.Context, out io.Writer, opts *analyzeOptions) error {
	if opts.member != "" && opts.project != "" {
		return errors.New("--member and --project are mutually exclusive")
	}
	if opts.network && opts.member == "" {
		return errors.New("--network requires --member")
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if _, err := setupLogging(cfg); err != nil {
		return err
	}
	acfg, err := cfg.Analysis()
	if err != nil {
		return err
	}

	files := dataset.New(opts.members, opts.events)
	store := cache.NewMemoryStore(0)
	defer store.Close()

	members := identity.NewCachedIndex(files, store, time.Minute)
	analyzer := analysis.NewAnalyzer(acfg, members, files, files, monitoring.NewMetrics())

	w, err := analyzer.ResolveWindow(analysis.WindowQuery{
		Days:     opts.days,
		Start:    opts.start,
		End:      opts.end,
		Timezone: opts.tz,
	})
	if err != nil {
		return err
	}

	var report any
	switch {
	case opts.network:
		report, err = analyzer.CollaborationNetwork(ctx, opts.member, w, analysis.CollaborationOptions{Limit: opts.limit})
	case opts.member != "":
		report, err = analyzer.MemberAnalytics(ctx, opts.member, w)
	case opts.project != "":
		report, err = analyzer.ProjectAnalytics(ctx, opts.project, w)
	default:
		report, err = analyzer.Dashboard(ctx, w, opts.limit)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
