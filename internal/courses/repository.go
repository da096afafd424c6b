package courses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atheneum-lms/atheneum/internal/platform/db"
	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// ListFilter narrows a course listing. UserID 0 means anonymous, which
// restricts the listing to public courses.
type ListFilter struct {
	OrgID   int64
	Query   string
	UserID  int64
	Page    int
	PerPage int
}

// Repository persists courses, authorship rows and announcements.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, course Course) (int64, error)
	GetByID(ctx context.Context, id int64) (*Course, error)
	GetByUUID(ctx context.Context, courseUUID string) (*Course, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]Course, int, error)
	Authors(ctx context.Context, courseUUID string) ([]Author, error)
	AuthorsForCourses(ctx context.Context, courseUUIDs []string) (map[string][]Author, error)
	Author(ctx context.Context, resourceUUID string, userID int64) (*Author, error)
	AddAuthor(ctx context.Context, resourceUUID string, userID int64, authorship rbac.Authorship, status rbac.AuthorshipStatus) error
	UpdateAuthor(ctx context.Context, resourceUUID string, userID int64, authorship rbac.Authorship, status rbac.AuthorshipStatus) error
	OrgUUIDByID(ctx context.Context, orgID int64) (string, error)
	OrgIDBySlug(ctx context.Context, slug string) (int64, error)
	CreateCourseUpdate(ctx context.Context, update CourseUpdate) (int64, error)
	ListCourseUpdates(ctx context.Context, courseID int64) ([]CourseUpdate, error)
	GetCourseUpdate(ctx context.Context, courseUpdateUUID string) (*CourseUpdate, error)
	UpdateCourseUpdate(ctx context.Context, id int64, updates map[string]any) error
	DeleteCourseUpdate(ctx context.Context, id int64) error
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

const courseColumns = `id, course_uuid, org_id, name, description, about, learnings, tags, thumbnail_image, public, open_to_contributors, created_at, updated_at`

func (r *repository) Create(ctx context.Context, course Course) (int64, error) {
	const q = `
		INSERT INTO courses (course_uuid, org_id, name, description, about, learnings, tags, thumbnail_image, public, open_to_contributors)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, q,
		course.CourseUUID, course.OrgID, course.Name, course.Description, course.About,
		course.Learnings, course.Tags, course.ThumbnailImage, course.Public, course.OpenToContributors,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert course: %w", err)
	}
	return id, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Course, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *repository) GetByUUID(ctx context.Context, courseUUID string) (*Course, error) {
	return r.getBy(ctx, "course_uuid = $1", courseUUID)
}

func (r *repository) getBy(ctx context.Context, where string, arg any) (*Course, error) {
	row := r.db.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE `+where, arg)
	course, err := scanCourse(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return course, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	query := "UPDATE courses SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"name", "description", "about", "learnings", "tags", "thumbnail_image", "public", "open_to_contributors"} {
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

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// List applies the visibility rules before pagination. Anonymous
// callers see public courses only. Authenticated callers additionally
// see courses not linked to any user group, courses linked to one of
// their groups, and courses they hold an authorship row on.
func (r *repository) List(ctx context.Context, filter ListFilter) ([]Course, int, error) {
	where := []string{"c.org_id = $1"}
	args := []any{filter.OrgID}

	if filter.Query != "" {
		args = append(args, "%"+strings.ToLower(filter.Query)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(LOWER(c.name) LIKE $%d OR LOWER(c.description) LIKE $%d OR LOWER(c.about) LIKE $%d OR LOWER(c.learnings) LIKE $%d OR LOWER(c.tags) LIKE $%d)",
			n, n, n, n, n))
	}

	if filter.UserID == 0 {
		where = append(where, "c.public = TRUE")
	} else {
		args = append(args, filter.UserID)
		n := len(args)
		where = append(where, fmt.Sprintf(`(c.public = TRUE
			OR NOT EXISTS (
				SELECT 1 FROM usergroup_resources ugr
				WHERE ugr.resource_uuid = c.course_uuid)
			OR EXISTS (
				SELECT 1 FROM usergroup_resources ugr
				JOIN usergroup_users ugu ON ugu.usergroup_id = ugr.usergroup_id
				WHERE ugr.resource_uuid = c.course_uuid AND ugu.user_id = $%d)
			OR EXISTS (
				SELECT 1 FROM resource_authors ra
				WHERE ra.resource_uuid = c.course_uuid AND ra.user_id = $%d))`, n, n))
	}

	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM courses c WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)
	query := fmt.Sprintf(`
		SELECT c.id, c.course_uuid, c.org_id, c.name, c.description, c.about, c.learnings, c.tags, c.thumbnail_image, c.public, c.open_to_contributors, c.created_at, c.updated_at
		FROM courses c
		WHERE %s
		ORDER BY c.created_at DESC
		LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *course)
	}
	return items, total, rows.Err()
}

func (r *repository) Authors(ctx context.Context, courseUUID string) ([]Author, error) {
	byCourse, err := r.AuthorsForCourses(ctx, []string{courseUUID})
	if err != nil {
		return nil, err
	}
	return byCourse[courseUUID], nil
}

func (r *repository) AuthorsForCourses(ctx context.Context, courseUUIDs []string) (map[string][]Author, error) {
	result := make(map[string][]Author, len(courseUUIDs))
	if len(courseUUIDs) == 0 {
		return result, nil
	}
	const q = `
		SELECT ra.resource_uuid, ra.user_id, u.user_uuid, u.username, u.first_name, u.last_name, u.avatar_image, u.email, ra.authorship, ra.authorship_status, ra.created_at
		FROM resource_authors ra
		JOIN users u ON u.id = ra.user_id
		WHERE ra.resource_uuid = ANY($1)
		ORDER BY ra.id ASC`
	rows, err := r.db.Query(ctx, q, courseUUIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var resourceUUID string
		author, err := scanAuthor(rows, &resourceUUID)
		if err != nil {
			return nil, err
		}
		result[resourceUUID] = append(result[resourceUUID], *author)
	}
	return result, rows.Err()
}

func (r *repository) Author(ctx context.Context, resourceUUID string, userID int64) (*Author, error) {
	const q = `
		SELECT ra.resource_uuid, ra.user_id, u.user_uuid, u.username, u.first_name, u.last_name, u.avatar_image, u.email, ra.authorship, ra.authorship_status, ra.created_at
		FROM resource_authors ra
		JOIN users u ON u.id = ra.user_id
		WHERE ra.resource_uuid = $1 AND ra.user_id = $2`
	var resourceID string
	author, err := scanAuthor(r.db.QueryRow(ctx, q, resourceUUID, userID), &resourceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return author, nil
}

func (r *repository) AddAuthor(ctx context.Context, resourceUUID string, userID int64, authorship rbac.Authorship, status rbac.AuthorshipStatus) error {
	const q = `
		INSERT INTO resource_authors (resource_uuid, user_id, authorship, authorship_status)
		VALUES ($1, $2, $3, $4)`
	if _, err := r.db.Exec(ctx, q, resourceUUID, userID, string(authorship), string(status)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: user already has an authorship role for this course", shared.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *repository) UpdateAuthor(ctx context.Context, resourceUUID string, userID int64, authorship rbac.Authorship, status rbac.AuthorshipStatus) error {
	const q = `
		UPDATE resource_authors SET authorship = $3, authorship_status = $4, updated_at = NOW()
		WHERE resource_uuid = $1 AND user_id = $2`
	tag, err := r.db.Exec(ctx, q, resourceUUID, userID, string(authorship), string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) OrgUUIDByID(ctx context.Context, orgID int64) (string, error) {
	var orgUUID string
	err := r.db.QueryRow(ctx, `SELECT org_uuid FROM organizations WHERE id = $1`, orgID).Scan(&orgUUID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return orgUUID, nil
}

func (r *repository) OrgIDBySlug(ctx context.Context, slug string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM organizations WHERE slug = $1`, slug).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

const courseUpdateColumns = `id, courseupdate_uuid, course_id, org_id, title, content, linked_activity_uuids, created_at, updated_at`

func (r *repository) CreateCourseUpdate(ctx context.Context, update CourseUpdate) (int64, error) {
	const q = `
		INSERT INTO course_updates (courseupdate_uuid, course_id, org_id, title, content, linked_activity_uuids)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, q,
		update.CourseUpdateUUID, update.CourseID, update.OrgID, update.Title, update.Content, update.LinkedActivityUUID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert course update: %w", err)
	}
	return id, nil
}

func (r *repository) ListCourseUpdates(ctx context.Context, courseID int64) ([]CourseUpdate, error) {
	rows, err := r.db.Query(ctx, `SELECT `+courseUpdateColumns+` FROM course_updates WHERE course_id = $1 ORDER BY created_at DESC`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CourseUpdate
	for rows.Next() {
		update, err := scanCourseUpdate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *update)
	}
	return items, rows.Err()
}

func (r *repository) GetCourseUpdate(ctx context.Context, courseUpdateUUID string) (*CourseUpdate, error) {
	row := r.db.QueryRow(ctx, `SELECT `+courseUpdateColumns+` FROM course_updates WHERE courseupdate_uuid = $1`, courseUpdateUUID)
	update, err := scanCourseUpdate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return update, nil
}

func (r *repository) UpdateCourseUpdate(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	query := "UPDATE course_updates SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"title", "content", "linked_activity_uuids"} {
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

func (r *repository) DeleteCourseUpdate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM course_updates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (*Course, error) {
	var c Course
	var description, about, learnings, tags, thumbnail pgtype.Text
	err := row.Scan(
		&c.ID, &c.CourseUUID, &c.OrgID, &c.Name, &description, &about, &learnings,
		&tags, &thumbnail, &c.Public, &c.OpenToContributors, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Description = description.String
	c.About = about.String
	c.Learnings = learnings.String
	c.Tags = tags.String
	c.ThumbnailImage = thumbnail.String
	return &c, nil
}

func scanAuthor(row rowScanner, resourceUUID *string) (*Author, error) {
	var a Author
	var firstName, lastName, avatar pgtype.Text
	var authorship, status string
	err := row.Scan(
		resourceUUID, &a.UserID, &a.UserUUID, &a.Username, &firstName, &lastName,
		&avatar, &a.Email, &authorship, &status, &a.Since,
	)
	if err != nil {
		return nil, err
	}
	a.FirstName = firstName.String
	a.LastName = lastName.String
	a.AvatarImage = avatar.String
	a.Authorship = rbac.Authorship(authorship)
	a.Status = rbac.AuthorshipStatus(status)
	return &a, nil
}

func scanCourseUpdate(row rowScanner) (*CourseUpdate, error) {
	var u CourseUpdate
	var linked pgtype.Text
	err := row.Scan(
		&u.ID, &u.CourseUpdateUUID, &u.CourseID, &u.OrgID, &u.Title, &u.Content,
		&linked, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.LinkedActivityUUID = linked.String
	return &u, nil
}

var _ Repository = (*repository)(nil)
