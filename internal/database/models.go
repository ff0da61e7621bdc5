package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// ProjectResource maps a repository, channel or folder to a project
type ProjectResource struct {
	Kind       string `json:"kind" yaml:"kind"`
	ResourceID string `json:"resource_id" yaml:"resource_id"`
	ProjectKey string `json:"project_key" yaml:"project_key"`
}

func encodeJSON(v any) (sql.NullString, error) {
	switch val := v.(type) {
	case []string:
		if len(val) == 0 {
			return sql.NullString{}, nil
		}
	case map[string]any:
		if len(val) == 0 {
			return sql.NullString{}, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode column: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func decodeJSON(col sql.NullString, dst any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(col.String), dst); err != nil {
		return fmt.Errorf("failed to decode column: %w", err)
	}
	return nil
}
