package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/doerdesk/doerdesk-backend/internal/workflow/domain"
)

// HistoryRepository reads the append-only status history. There is
// deliberately no update or delete here: the history is the compliance
// record, rows are written once by the transition commit and never
// touched again.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// List returns a project's status history in chronological order. The
// bigserial seq column breaks ties between rows written in the same
// timestamp tick.
func (r *HistoryRepository) List(ctx context.Context, projectID string) ([]domain.StatusHistoryEntry, error) {
	const q = `
SELECT id, project_id, from_status, to_status, actor_type, actor_id, metadata, created_at
FROM project_status_history
WHERE project_id = $1
ORDER BY created_at ASC, seq ASC;
`
	rows, err := r.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := make([]domain.StatusHistoryEntry, 0, 16)
	for rows.Next() {
		var e domain.StatusHistoryEntry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.FromStatus, &e.ToStatus,
			&e.ActorType, &e.ActorID, &meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				e.Metadata = nil
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
