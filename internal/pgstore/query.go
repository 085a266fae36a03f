package pgstore

import (
	"encoding/json"
	"fmt"

	"chat-client/internal/remote"
)

// buildQuery renders a remote.Query as SQL over the documents table.
// Field names and values are always bound parameters; filter values
// travel as JSON so numbers and strings compare with jsonb semantics.
func buildQuery(q remote.Query) (string, []any, error) {
	sql := "SELECT id, data FROM documents WHERE collection = $1"
	args := []any{q.Collection}

	for _, f := range q.Filters {
		val, err := json.Marshal(f.Value)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter value for %s: %w", f.Field, err)
		}
		switch f.Op {
		case remote.OpEqual:
			sql += fmt.Sprintf(" AND data -> $%d = $%d::jsonb", len(args)+1, len(args)+2)
		case remote.OpArrayContains:
			sql += fmt.Sprintf(" AND data -> $%d @> $%d::jsonb", len(args)+1, len(args)+2)
		default:
			return "", nil, fmt.Errorf("unsupported filter op %q", f.Op)
		}
		args = append(args, f.Field, string(val))
	}

	if q.OrderBy != "" {
		sql += fmt.Sprintf(" ORDER BY data -> $%d", len(args)+1)
		args = append(args, q.OrderBy)
		if q.Descending {
			sql += " DESC"
		}
		sql += ", id"
	} else {
		sql += " ORDER BY id"
	}

	if q.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, q.Limit)
	}

	return sql, args, nil
}
