package activities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atheneum-lms/atheneum/internal/platform/db"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// ChapterRef is the slice of a chapter the activity operations need.
type ChapterRef struct {
	ID       int64
	CourseID int64
	OrgID    int64
}

// Repository persists activities and their chapter ordering links.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	ChapterRef(ctx context.Context, chapterID int64) (ChapterRef, error)
	CourseUUIDByID(ctx context.Context, courseID int64) (string, error)
	Create(ctx context.Context, activity Activity) (int64, error)
	GetByUUID(ctx context.Context, activityUUID string) (*Activity, error)
	GetByID(ctx context.Context, id int64) (*Activity, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	ListForChapter(ctx context.Context, chapterID int64, includeUnpublished bool) ([]Activity, error)
	MaxPosition(ctx context.Context, chapterID int64) (int, error)
	LinkToChapter(ctx context.Context, chapterID, activityID, courseID, orgID int64, position int) error
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) ChapterRef(ctx context.Context, chapterID int64) (ChapterRef, error) {
	var ref ChapterRef
	err := r.db.QueryRow(ctx, `SELECT id, course_id, org_id FROM chapters WHERE id = $1`, chapterID).
		Scan(&ref.ID, &ref.CourseID, &ref.OrgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ChapterRef{}, shared.ErrNotFound
		}
		return ChapterRef{}, err
	}
	return ref, nil
}

func (r *repository) CourseUUIDByID(ctx context.Context, courseID int64) (string, error) {
	var courseUUID string
	err := r.db.QueryRow(ctx, `SELECT course_uuid FROM courses WHERE id = $1`, courseID).Scan(&courseUUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return courseUUID, nil
}

const activityColumns = `a.id, a.activity_uuid, a.org_id, a.course_id, a.name, a.activity_type, a.activity_sub_type, a.content, a.details, a.published, a.created_at, a.updated_at`

func (r *repository) Create(ctx context.Context, activity Activity) (int64, error) {
	content, details, err := encodePayload(activity.Content, activity.Details)
	if err != nil {
		return 0, err
	}
	const q = `
		INSERT INTO activities (activity_uuid, org_id, course_id, name, activity_type, activity_sub_type, content, details, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	var id int64
	err = r.db.QueryRow(ctx, q,
		activity.ActivityUUID, activity.OrgID, activity.CourseID, activity.Name,
		string(activity.ActivityType), string(activity.ActivitySubType),
		content, details, activity.Published,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert activity: %w", err)
	}
	return id, nil
}

func (r *repository) GetByUUID(ctx context.Context, activityUUID string) (*Activity, error) {
	return r.get(ctx, "a.activity_uuid = $1", activityUUID)
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Activity, error) {
	return r.get(ctx, "a.id = $1", id)
}

func (r *repository) get(ctx context.Context, where string, arg any) (*Activity, error) {
	activity, err := scanActivity(r.db.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities a WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return activity, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	query := "UPDATE activities SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"name", "activity_type", "activity_sub_type", "content", "details", "published"} {
		val, ok := updates[col]
		if !ok {
			continue
		}
		if col == "content" || col == "details" {
			raw, err := json.Marshal(val)
			if err != nil {
				return fmt.Errorf("encode activity %s: %w", col, err)
			}
			val = raw
		}
		query += fmt.Sprintf(", %s = $%d", col, argPos)
		args = append(args, val)
		argPos++
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes the activity. Its chapter_activities link rows go with
// it through cascading deletes.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) ListForChapter(ctx context.Context, chapterID int64, includeUnpublished bool) ([]Activity, error) {
	q := `
		SELECT ` + activityColumns + `
		FROM activities a
		JOIN chapter_activities ca ON ca.activity_id = a.id
		WHERE ca.chapter_id = $1`
	if !includeUnpublished {
		q += ` AND a.published = TRUE`
	}
	q += ` ORDER BY ca.position ASC`

	rows, err := r.db.Query(ctx, q, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Activity
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *activity)
	}
	return items, rows.Err()
}

func (r *repository) MaxPosition(ctx context.Context, chapterID int64) (int, error) {
	var max int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(position), -1) FROM chapter_activities WHERE chapter_id = $1`, chapterID).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (r *repository) LinkToChapter(ctx context.Context, chapterID, activityID, courseID, orgID int64, position int) error {
	const q = `
		INSERT INTO chapter_activities (chapter_id, activity_id, course_id, org_id, position)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, q, chapterID, activityID, courseID, orgID, position)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*Activity, error) {
	var (
		a                Activity
		atype, subtype   string
		content, details []byte
	)
	err := row.Scan(&a.ID, &a.ActivityUUID, &a.OrgID, &a.CourseID, &a.Name,
		&atype, &subtype, &content, &details, &a.Published, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ActivityType = ActivityType(atype)
	a.ActivitySubType = ActivitySubType(subtype)
	a.Content = map[string]any{}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &a.Content); err != nil {
			return nil, fmt.Errorf("decode activity content: %w", err)
		}
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, fmt.Errorf("decode activity details: %w", err)
		}
	}
	return &a, nil
}

func encodePayload(content, details map[string]any) ([]byte, []byte, error) {
	if content == nil {
		content = map[string]any{}
	}
	rawContent, err := json.Marshal(content)
	if err != nil {
		return nil, nil, fmt.Errorf("encode activity content: %w", err)
	}
	var rawDetails []byte
	if details != nil {
		rawDetails, err = json.Marshal(details)
		if err != nil {
			return nil, nil, fmt.Errorf("encode activity details: %w", err)
		}
	}
	return rawContent, rawDetails, nil
}

var _ Repository = (*repository)(nil)
