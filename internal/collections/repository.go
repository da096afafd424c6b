package collections

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
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// ListFilter selects a page of collections for an organization.
// Anonymous viewers only see public collections. Query, when set,
// matches name and description case-insensitively.
type ListFilter struct {
	OrgID     int64
	Query     string
	Anonymous bool
	Page      int
	PerPage   int
}

// Repository persists collections and their course links.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, collection Collection) (int64, error)
	GetByUUID(ctx context.Context, collectionUUID string) (*Collection, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]Collection, int, error)
	ReplaceCourses(ctx context.Context, collectionID, orgID int64, courseIDs []int64) error
	CoursesForCollections(ctx context.Context, collectionIDs []int64) (map[int64][]CourseSummary, error)
	CountCoursesInOrg(ctx context.Context, orgID int64, courseIDs []int64) (int, error)
	OrgIDBySlug(ctx context.Context, slug string) (int64, error)
	OrgUUIDByID(ctx context.Context, orgID int64) (string, error)
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

const collectionColumns = `c.id, c.collection_uuid, c.org_id, c.name, c.description, c.public, c.created_at, c.updated_at`

func (r *repository) Create(ctx context.Context, collection Collection) (int64, error) {
	const q = `
		INSERT INTO collections (collection_uuid, org_id, name, description, public)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, q,
		collection.CollectionUUID, collection.OrgID, collection.Name, collection.Description, collection.Public,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert collection: %w", err)
	}
	return id, nil
}

func (r *repository) GetByUUID(ctx context.Context, collectionUUID string) (*Collection, error) {
	collection, err := scanCollection(r.db.QueryRow(ctx, `SELECT `+collectionColumns+` FROM collections c WHERE c.collection_uuid = $1`, collectionUUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return collection, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	query := "UPDATE collections SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"name", "description", "public"} {
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

// Delete removes the collection. Its collection_courses rows go with it
// through cascading deletes.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM collections WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Collection, int, error) {
	where := " WHERE c.org_id = $1"
	args := []any{filter.OrgID}
	if filter.Query != "" {
		args = append(args, "%"+strings.ToLower(filter.Query)+"%")
		where += fmt.Sprintf(" AND (LOWER(c.name) LIKE $%d OR LOWER(c.description) LIKE $%d)", len(args), len(args))
	}
	if filter.Anonymous {
		where += " AND c.public = TRUE"
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM collections c`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + collectionColumns + ` FROM collections c` + where +
		fmt.Sprintf(" ORDER BY c.created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, filter.PerPage, (filter.Page-1)*filter.PerPage)

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Collection
	for rows.Next() {
		collection, err := scanCollection(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *collection)
	}
	return items, total, rows.Err()
}

// ReplaceCourses swaps the linked course set wholesale.
func (r *repository) ReplaceCourses(ctx context.Context, collectionID, orgID int64, courseIDs []int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM collection_courses WHERE collection_id = $1`, collectionID); err != nil {
		return err
	}
	for _, courseID := range courseIDs {
		_, err := r.db.Exec(ctx, `
			INSERT INTO collection_courses (collection_id, course_id, org_id)
			VALUES ($1, $2, $3)`, collectionID, courseID, orgID)
		if err != nil {
			return fmt.Errorf("link course %d: %w", courseID, err)
		}
	}
	return nil
}

func (r *repository) CoursesForCollections(ctx context.Context, collectionIDs []int64) (map[int64][]CourseSummary, error) {
	result := make(map[int64][]CourseSummary, len(collectionIDs))
	if len(collectionIDs) == 0 {
		return result, nil
	}
	const q = `
		SELECT cc.collection_id, co.id, co.course_uuid, co.name, co.description, co.thumbnail_image, co.public
		FROM collection_courses cc
		JOIN courses co ON co.id = cc.course_id
		WHERE cc.collection_id = ANY($1)
		ORDER BY cc.collection_id, cc.id ASC`
	rows, err := r.db.Query(ctx, q, collectionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			collectionID           int64
			course                 CourseSummary
			description, thumbnail pgtype.Text
		)
		if err := rows.Scan(&collectionID, &course.ID, &course.CourseUUID, &course.Name, &description, &thumbnail, &course.Public); err != nil {
			return nil, err
		}
		course.Description = description.String
		course.ThumbnailImage = thumbnail.String
		result[collectionID] = append(result[collectionID], course)
	}
	return result, rows.Err()
}

// CountCoursesInOrg reports how many of the given course ids exist in
// the organization, used to reject links to foreign or missing courses.
func (r *repository) CountCoursesInOrg(ctx context.Context, orgID int64, courseIDs []int64) (int, error) {
	if len(courseIDs) == 0 {
		return 0, nil
	}
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM courses WHERE org_id = $1 AND id = ANY($2)`, orgID, courseIDs).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCollection(row rowScanner) (*Collection, error) {
	var (
		c           Collection
		description pgtype.Text
	)
	err := row.Scan(&c.ID, &c.CollectionUUID, &c.OrgID, &c.Name, &description, &c.Public, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Description = description.String
	return &c, nil
}

var _ Repository = (*repository)(nil)
