package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/teampulse/internal/config"
	"github.com/ZanzyTHEbar/teampulse/internal/database"
	"github.com/ZanzyTHEbar/teampulse/internal/dataset"
	apperrors "github.com/ZanzyTHEbar/teampulse/internal/errors"
)

func newSeedCommand() *cobra.Command {
	var membersPath, eventsPath, dbPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load dataset files into the SQLite store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if _, err := setupLogging(cfg); err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = cfg.DatabasePath
			}

			summary, err := seed(ctx, dbPath, membersPath, eventsPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d members, %d project resources, %d events into %s\n",
				summary.members, summary.projects, summary.events, dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&membersPath, "members", "members.yaml", "Members and projects YAML file")
	cmd.Flags().StringVar(&eventsPath, "events", "", "Raw events JSON file (optional)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (defaults to database_path)")
	return cmd
}

type seedSummary struct {
	members  int
	projects int
	events   int
}

func seed(ctx context.Context, dbPath, membersPath, eventsPath string) (seedSummary, error) {
	var summary seedSummary

	dir, err := dataset.LoadDirectory(membersPath)
	if err != nil {
		return summary, err
	}

	db, err := database.NewDB(dbPath)
	if err != nil {
		return summary, fmt.Errorf("failed to initialize database: %w", err)
	}
	defer apperrors.SafeClose(db, "database")
	repo := database.NewRepository(db)

	for _, m := range dir.Members {
		if err := repo.UpsertMember(ctx, m); err != nil {
			return summary, fmt.Errorf("failed to store member %s: %w", m.ID, err)
		}
		summary.members++
	}
	for _, res := range dir.Projects {
		if err := repo.PutProjectResource(ctx, res); err != nil {
			return summary, fmt.Errorf("failed to store project resource %s: %w", res.ResourceID, err)
		}
		summary.projects++
	}

	if eventsPath != "" {
		events, err := dataset.LoadEvents(eventsPath)
		if err != nil {
			return summary, err
		}
		n, err := repo.InsertEvents(ctx, events)
		if err != nil {
			return summary, fmt.Errorf("failed to store events: %w", err)
		}
		summary.events = n
	}

	slog.Info("Dataset seeded", "db", dbPath, "members", summary.members, "projects", summary.projects, "events", summary.events)
	return summary, nil
}
