package normalize

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// eventNamespace scopes derived event ids
var eventNamespace = uuid.MustParse("5b0f7d9e-8c1a-4e3f-9a62-d4c7e1b38f05")

// RawSourceEvent is a collector document. Only the fields needed for
// normalization are interpreted; Metadata is carried through untouched.
type RawSourceEvent struct {
	ID           string           `json:"id"`
	Source       types.SourceType `json:"source"`
	Type         string           `json:"type"`
	Actor        string           `json:"actor,omitempty"`
	Participants []string         `json:"participants,omitempty"`
	Timestamp    string           `json:"timestamp"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
}

// DerivedID returns a stable name-based UUID for a record sent without an
// id, so repeated reads of the same record yield the same activity ids.
func (e RawSourceEvent) DerivedID() string {
	key := strings.Join([]string{
		string(e.Source),
		e.Type,
		e.Actor,
		strings.Join(e.Participants, "\x1f"),
		e.Timestamp,
	}, "\x00")
	return uuid.NewSHA1(eventNamespace, []byte(key)).String()
}

func (e RawSourceEvent) metaString(key string) string {
	v, ok := e.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	default:
		return fmt.Sprint(val)
	}
}

func (e RawSourceEvent) metaBool(key string) bool {
	switch v := e.Metadata[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

// Resource kinds used for project association
const (
	ResourceRepository = "repository"
	ResourceChannel    = "channel"
	ResourceFolder     = "folder"
)

// ProjectLookup maps a repository, channel or folder to a project key
type ProjectLookup interface {
	ProjectKey(kind, id string) (string, bool)
}

// StaticProjects is an in-memory ProjectLookup keyed by "kind:id"
type StaticProjects map[string]string

// Add registers a resource mapping
func (p StaticProjects) Add(kind, id, project string) {
	p[kind+":"+id] = project
}

// ProjectKey implements ProjectLookup
func (p StaticProjects) ProjectKey(kind, id string) (string, bool) {
	key, ok := p[kind+":"+id]
	return key, ok
}

func (e RawSourceEvent) project(lookup ProjectLookup) string {
	if lookup == nil {
		return ""
	}
	for _, kind := range []string{ResourceRepository, ResourceChannel, ResourceFolder} {
		id := e.metaString(kind)
		if id == "" {
			continue
		}
		if key, ok := lookup.ProjectKey(kind, id); ok {
			return key
		}
	}
	return ""
}
