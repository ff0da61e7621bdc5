// Package dataset serves the member directory, project directory and raw
// events from local files for offline analysis.
package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/teampulse/internal/database"
	"github.com/ZanzyTHEbar/teampulse/internal/normalize"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// Directory is the YAML document holding members and project resources
type Directory struct {
	Members  []types.Member             `yaml:"members"`
	Projects []database.ProjectResource `yaml:"projects"`
}

// Files is a file-backed member directory, project directory and event store.
// Files are re-read on every call so edits are picked up without a restart.
type Files struct {
	DirectoryPath string
	EventsPath    string
}

// New creates a file-backed dataset
func New(directoryPath, eventsPath string) *Files {
	return &Files{DirectoryPath: directoryPath, EventsPath: eventsPath}
}

// LoadDirectory parses a members/projects YAML file
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}

	var dir Directory
	if err := yaml.Unmarshal(data, &dir); err != nil {
		return nil, fmt.Errorf("failed to parse directory file %s: %w", path, err)
	}
	return &dir, nil
}

// LoadEvents parses a JSON array of raw events
func LoadEvents(path string) ([]normalize.RawSourceEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read events file: %w", err)
	}

	var events []normalize.RawSourceEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("failed to parse events file %s: %w", path, err)
	}
	return events, nil
}

// Members implements identity.Directory
func (f *Files) Members(context.Context) ([]types.Member, error) {
	dir, err := LoadDirectory(f.DirectoryPath)
	if err != nil {
		return nil, err
	}
	return dir.Members, nil
}

// Projects returns the resource → project mapping from the directory file
func (f *Files) Projects(context.Context) (normalize.StaticProjects, error) {
	dir, err := LoadDirectory(f.DirectoryPath)
	if err != nil {
		return nil, err
	}

	projects := normalize.StaticProjects{}
	for _, res := range dir.Projects {
		projects.Add(res.Kind, res.ResourceID, res.ProjectKey)
	}
	return projects, nil
}

// Events returns events within [start, end]. Events with unparseable
// timestamps are passed through for the normalizer to count.
func (f *Files) Events(_ context.Context, start, end time.Time) ([]normalize.RawSourceEvent, error) {
	all, err := LoadEvents(f.EventsPath)
	if err != nil {
		return nil, err
	}

	events := make([]normalize.RawSourceEvent, 0, len(all))
	for _, ev := range all {
		ts, err := normalize.ParseTimestamp(ev.Timestamp)
		if err == nil && (ts.Before(start) || ts.After(end)) {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
