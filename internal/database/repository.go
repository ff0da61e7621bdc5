package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/teampulse/internal/normalize"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// Repository is the SQLite-backed member directory, project directory and
// raw-event store
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// UpsertMember creates or replaces a member and its source identifiers.
// Existing members keep their original insertion position.
func (r *Repository) UpsertMember(ctx context.Context, m types.Member) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}

	roles, err := encodeJSON(m.Roles)
	if err != nil {
		return err
	}
	projects, err := encodeJSON(m.Projects)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO members (id, position, display_name, email, recording_name, roles, projects, created_at, updated_at)
		VALUES (?, (SELECT COALESCE(MAX(position), -1) + 1 FROM members), ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			email = excluded.email,
			recording_name = excluded.recording_name,
			roles = excluded.roles,
			projects = excluded.projects,
			updated_at = excluded.updated_at
	`, m.ID, m.DisplayName, m.Email, m.RecordingName, roles, projects, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM member_identifiers WHERE member_id = ?`, m.ID); err != nil {
		return fmt.Errorf("failed to clear member identifiers: %w", err)
	}

	for source, ident := range m.Identifiers {
		if ident == "" {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO member_identifiers (member_id, source, identifier) VALUES (?, ?, ?)
		`, m.ID, string(source), ident)
		if err != nil {
			return fmt.Errorf("failed to store %s identifier %q: %w", source, ident, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit member: %w", err)
	}
	return nil
}

// DeleteMember removes a member and its identifiers
func (r *Repository) DeleteMember(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}

// Members returns every member in insertion order
func (r *Repository) Members(ctx context.Context) ([]types.Member, error) {
	stmt, err := r.db.GetPreparedStatement("list_members")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	members := []types.Member{}
	byID := make(map[string]int)
	for rows.Next() {
		var (
			m                             types.Member
			email, recording, roles, proj sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.DisplayName, &email, &recording, &roles, &proj); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.Email = email.String
		m.RecordingName = recording.String
		if err := decodeJSON(roles, &m.Roles); err != nil {
			return nil, err
		}
		if err := decodeJSON(proj, &m.Projects); err != nil {
			return nil, err
		}
		byID[m.ID] = len(members)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	if err := r.attachIdentifiers(ctx, members, byID); err != nil {
		return nil, err
	}
	return members, nil
}

func (r *Repository) attachIdentifiers(ctx context.Context, members []types.Member, byID map[string]int) error {
	stmt, err := r.db.GetPreparedStatement("list_identifiers")
	if err != nil {
		return err
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to query member identifiers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var memberID, source, ident string
		if err := rows.Scan(&memberID, &source, &ident); err != nil {
			return fmt.Errorf("failed to scan member identifier: %w", err)
		}
		pos, ok := byID[memberID]
		if !ok {
			continue
		}
		if members[pos].Identifiers == nil {
			members[pos].Identifiers = make(map[types.SourceType]string)
		}
		members[pos].Identifiers[types.SourceType(source)] = ident
	}
	return rows.Err()
}

// PutProjectResource maps a resource to a project, replacing any prior mapping
func (r *Repository) PutProjectResource(ctx context.Context, res ProjectResource) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_resources (kind, resource_id, project_key) VALUES (?, ?, ?)
		ON CONFLICT(kind, resource_id) DO UPDATE SET project_key = excluded.project_key
	`, res.Kind, res.ResourceID, res.ProjectKey)
	if err != nil {
		return fmt.Errorf("failed to store project resource: %w", err)
	}
	return nil
}

// Projects returns the resource → project mapping
func (r *Repository) Projects(ctx context.Context) (normalize.StaticProjects, error) {
	stmt, err := r.db.GetPreparedStatement("list_project_resources")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query project resources: %w", err)
	}
	defer rows.Close()

	projects := normalize.StaticProjects{}
	for rows.Next() {
		var res ProjectResource
		if err := rows.Scan(&res.Kind, &res.ResourceID, &res.ProjectKey); err != nil {
			return nil, fmt.Errorf("failed to scan project resource: %w", err)
		}
		projects.Add(res.Kind, res.ResourceID, res.ProjectKey)
	}
	return projects, rows.Err()
}

// InsertEvents stores raw collector events. Events without an id get one
// derived from their content so later reads are stable.
func (r *Repository) InsertEvents(ctx context.Context, events []normalize.RawSourceEvent) (int, error) {
	stmt, err := r.db.GetPreparedStatement("insert_event")
	if err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	txStmt := tx.StmtContext(ctx, stmt)
	now := time.Now().UTC()

	for _, ev := range events {
		if ev.ID == "" {
			ev.ID = ev.DerivedID()
		}
		participants, err := encodeJSON(ev.Participants)
		if err != nil {
			return 0, err
		}
		metadata, err := encodeJSON(ev.Metadata)
		if err != nil {
			return 0, err
		}

		var occurred sql.NullInt64
		if ts, err := normalize.ParseTimestamp(ev.Timestamp); err == nil {
			occurred = sql.NullInt64{Int64: ts.UnixMilli(), Valid: true}
		}

		_, err = txStmt.ExecContext(ctx,
			uuid.New().String(), ev.ID, string(ev.Source), ev.Type, ev.Actor,
			participants, ev.Timestamp, occurred, metadata, now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert event %s: %w", ev.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit events: %w", err)
	}
	return len(events), nil
}

// Events returns raw events occurring within [start, end], plus events whose
// timestamps could not be parsed so the normalizer can account for them.
func (r *Repository) Events(ctx context.Context, start, end time.Time) ([]normalize.RawSourceEvent, error) {
	stmt, err := r.db.GetPreparedStatement("events_in_range")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, start.UnixMilli(), end.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []normalize.RawSourceEvent{}
	for rows.Next() {
		var (
			ev                          normalize.RawSourceEvent
			source                      string
			typ, actor, parts, metadata sql.NullString
		)
		if err := rows.Scan(&ev.ID, &source, &typ, &actor, &parts, &ev.Timestamp, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Source = types.SourceType(source)
		ev.Type = typ.String
		ev.Actor = actor.String
		if err := decodeJSON(parts, &ev.Participants); err != nil {
			return nil, err
		}
		if err := decodeJSON(metadata, &ev.Metadata); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}
