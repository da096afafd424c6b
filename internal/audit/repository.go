package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads recorded audit events.
type Repository interface {
	TimelineWindow(ctx context.Context, q TimelineQuery) ([]TimelineRow, error)
	TimelineAll(ctx context.Context, q TimelineQuery) ([]TimelineRow, error)
}

// TimelineQuery carries resolved filter values down to SQL. Invalid
// optional fields translate to NULL so their predicates collapse.
type TimelineQuery struct {
	OrgID   int64
	From    pgtype.Timestamptz
	To      pgtype.Timestamptz
	ActorID pgtype.Int8
	Entity  pgtype.Text
	Action  pgtype.Text
	Offset  int
	Limit   int
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Repository backed by PostgreSQL.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

var _ Repository = (*repository)(nil)

const timelineSelect = `
SELECT a.occurred_at, a.actor_id, COALESCE(u.username, ''), a.action, a.entity, a.entity_id, a.meta
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_id
WHERE a.org_id = $1
  AND ($2::timestamptz IS NULL OR a.occurred_at >= $2)
  AND ($3::timestamptz IS NULL OR a.occurred_at < $3)
  AND ($4::bigint IS NULL OR a.actor_id = $4)
  AND ($5::text IS NULL OR a.entity = $5)
  AND ($6::text IS NULL OR a.action = $6)
ORDER BY a.occurred_at DESC, a.id DESC`

func (r *repository) TimelineWindow(ctx context.Context, q TimelineQuery) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineSelect+` LIMIT $7 OFFSET $8`,
		q.OrgID, q.From, q.To, q.ActorID, q.Entity, q.Action, q.Limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("query audit timeline: %w", err)
	}
	return collectTimeline(rows)
}

func (r *repository) TimelineAll(ctx context.Context, q TimelineQuery) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, timelineSelect,
		q.OrgID, q.From, q.To, q.ActorID, q.Entity, q.Action)
	if err != nil {
		return nil, fmt.Errorf("query audit timeline: %w", err)
	}
	return collectTimeline(rows)
}

func collectTimeline(rows pgx.Rows) ([]TimelineRow, error) {
	defer rows.Close()
	var result []TimelineRow
	for rows.Next() {
		var (
			row  TimelineRow
			meta []byte
		)
		if err := rows.Scan(&row.At, &row.ActorID, &row.Actor, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, fmt.Errorf("decode audit meta: %w", err)
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
