package chapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atheneum-lms/atheneum/internal/platform/db"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// CourseRef is the slice of a course the chapter operations need.
type CourseRef struct {
	ID         int64
	CourseUUID string
	OrgID      int64
}

// ChapterLink is a course_chapters ordering row.
type ChapterLink struct {
	ID        int64
	ChapterID int64
	Position  int
}

// ActivityLink is a chapter_activities ordering row.
type ActivityLink struct {
	ID         int64
	ChapterID  int64
	ActivityID int64
	Position   int
}

// Repository persists chapters and the ordering links of a course.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	CourseRefByID(ctx context.Context, courseID int64) (CourseRef, error)
	CourseRefByUUID(ctx context.Context, courseUUID string) (CourseRef, error)
	Create(ctx context.Context, chapter Chapter) (int64, error)
	GetByUUID(ctx context.Context, chapterUUID string) (*Chapter, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	ListForCourse(ctx context.Context, courseID int64) ([]Chapter, error)
	ActivitiesForChapters(ctx context.Context, chapterIDs []int64, includeUnpublished bool) (map[int64][]ActivitySummary, error)
	MaxPosition(ctx context.Context, courseID int64) (int, error)
	LinkChapter(ctx context.Context, courseID, chapterID, orgID int64, position int) error
	CourseLinks(ctx context.Context, courseID int64) ([]ChapterLink, error)
	UpdateLinkPosition(ctx context.Context, linkID int64, position int) error
	DeleteLink(ctx context.Context, linkID int64) error
	ActivityLinks(ctx context.Context, courseID int64) ([]ActivityLink, error)
	LinkActivity(ctx context.Context, courseID, orgID, chapterID, activityID int64, position int) error
	UpdateActivityLinkPosition(ctx context.Context, linkID int64, position int) error
	DeleteActivityLink(ctx context.Context, linkID int64) error
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

func (r *repository) CourseRefByID(ctx context.Context, courseID int64) (CourseRef, error) {
	return r.courseRef(ctx, "id = $1", courseID)
}

func (r *repository) CourseRefByUUID(ctx context.Context, courseUUID string) (CourseRef, error) {
	return r.courseRef(ctx, "course_uuid = $1", courseUUID)
}

func (r *repository) courseRef(ctx context.Context, where string, arg any) (CourseRef, error) {
	var ref CourseRef
	err := r.db.QueryRow(ctx, `SELECT id, course_uuid, org_id FROM courses WHERE `+where, arg).
		Scan(&ref.ID, &ref.CourseUUID, &ref.OrgID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CourseRef{}, shared.ErrNotFound
		}
		return CourseRef{}, err
	}
	return ref, nil
}

func (r *repository) Create(ctx context.Context, chapter Chapter) (int64, error) {
	const q = `
		INSERT INTO chapters (chapter_uuid, course_id, org_id, name, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, q,
		chapter.ChapterUUID, chapter.CourseID, chapter.OrgID, chapter.Name, chapter.Description,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert chapter: %w", err)
	}
	return id, nil
}

func (r *repository) GetByUUID(ctx context.Context, chapterUUID string) (*Chapter, error) {
	const q = `
		SELECT ch.id, ch.chapter_uuid, ch.course_id, ch.org_id, ch.name, ch.description, COALESCE(cc.position, 0), ch.created_at, ch.updated_at
		FROM chapters ch
		LEFT JOIN course_chapters cc ON cc.chapter_id = ch.id
		WHERE ch.chapter_uuid = $1`
	chapter, err := scanChapter(r.db.QueryRow(ctx, q, chapterUUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return chapter, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	query := "UPDATE chapters SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"name", "description"} {
		val, ok := updates[col]
		if !ok {
			continue
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

// Delete removes the chapter. Link rows in course_chapters and
// chapter_activities go with it through cascading deletes.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM chapters WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) ListForCourse(ctx context.Context, courseID int64) ([]Chapter, error) {
	const q = `
		SELECT ch.id, ch.chapter_uuid, ch.course_id, ch.org_id, ch.name, ch.description, cc.position, ch.created_at, ch.updated_at
		FROM chapters ch
		JOIN course_chapters cc ON cc.chapter_id = ch.id
		WHERE cc.course_id = $1
		ORDER BY cc.position ASC`
	rows, err := r.db.Query(ctx, q, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Chapter
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *chapter)
	}
	return items, rows.Err()
}

func (r *repository) ActivitiesForChapters(ctx context.Context, chapterIDs []int64, includeUnpublished bool) (map[int64][]ActivitySummary, error) {
	result := make(map[int64][]ActivitySummary, len(chapterIDs))
	if len(chapterIDs) == 0 {
		return result, nil
	}
	q := `
		SELECT ca.chapter_id, a.id, a.activity_uuid, a.name, a.activity_type, a.activity_sub_type, a.published, ca.position
		FROM chapter_activities ca
		JOIN activities a ON a.id = ca.activity_id
		WHERE ca.chapter_id = ANY($1)`
	if !includeUnpublished {
		q += ` AND a.published = TRUE`
	}
	q += ` ORDER BY ca.chapter_id, ca.position ASC`

	rows, err := r.db.Query(ctx, q, chapterIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var chapterID int64
		var a ActivitySummary
		if err := rows.Scan(&chapterID, &a.ID, &a.ActivityUUID, &a.Name, &a.ActivityType, &a.ActivitySubType, &a.Published, &a.Position); err != nil {
			return nil, err
		}
		result[chapterID] = append(result[chapterID], a)
	}
	return result, rows.Err()
}

func (r *repository) MaxPosition(ctx context.Context, courseID int64) (int, error) {
	var max int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(position), -1) FROM course_chapters WHERE course_id = $1`, courseID).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max, nil
}

func (r *repository) LinkChapter(ctx context.Context, courseID, chapterID, orgID int64, position int) error {
	const q = `
		INSERT INTO course_chapters (course_id, chapter_id, org_id, position)
		VALUES ($1, $2, $3, $4)`
	_, err := r.db.Exec(ctx, q, courseID, chapterID, orgID, position)
	return err
}

func (r *repository) CourseLinks(ctx context.Context, courseID int64) ([]ChapterLink, error) {
	rows, err := r.db.Query(ctx, `SELECT id, chapter_id, position FROM course_chapters WHERE course_id = $1 ORDER BY position ASC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []ChapterLink
	for rows.Next() {
		var l ChapterLink
		if err := rows.Scan(&l.ID, &l.ChapterID, &l.Position); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (r *repository) UpdateLinkPosition(ctx context.Context, linkID int64, position int) error {
	tag, err := r.db.Exec(ctx, `UPDATE course_chapters SET position = $2, updated_at = NOW() WHERE id = $1`, linkID, position)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteLink(ctx context.Context, linkID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM course_chapters WHERE id = $1`, linkID)
	return err
}

func (r *repository) ActivityLinks(ctx context.Context, courseID int64) ([]ActivityLink, error) {
	rows, err := r.db.Query(ctx, `SELECT id, chapter_id, activity_id, position FROM chapter_activities WHERE course_id = $1 ORDER BY chapter_id, position ASC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []ActivityLink
	for rows.Next() {
		var l ActivityLink
		if err := rows.Scan(&l.ID, &l.ChapterID, &l.ActivityID, &l.Position); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (r *repository) LinkActivity(ctx context.Context, courseID, orgID, chapterID, activityID int64, position int) error {
	const q = `
		INSERT INTO chapter_activities (course_id, org_id, chapter_id, activity_id, position)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Exec(ctx, q, courseID, orgID, chapterID, activityID, position)
	return err
}

func (r *repository) UpdateActivityLinkPosition(ctx context.Context, linkID int64, position int) error {
	tag, err := r.db.Exec(ctx, `UPDATE chapter_activities SET position = $2, updated_at = NOW() WHERE id = $1`, linkID, position)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) DeleteActivityLink(ctx context.Context, linkID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chapter_activities WHERE id = $1`, linkID)
	return err
}

func scanChapter(row pgx.Row) (*Chapter, error) {
	var ch Chapter
	var description pgtype.Text
	err := row.Scan(
		&ch.ID, &ch.ChapterUUID, &ch.CourseID, &ch.OrgID, &ch.Name, &description,
		&ch.Position, &ch.CreatedAt, &ch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ch.Description = description.String
	return &ch, nil
}

var _ Repository = (*repository)(nil)
