package usergroups

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

// Repository persists user groups and their membership and resource
// links.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, group UserGroup) (int64, error)
	GetByID(ctx context.Context, id int64) (*UserGroup, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	ListForOrg(ctx context.Context, orgID int64) ([]UserGroup, error)
	ListForResource(ctx context.Context, resourceUUID string) ([]UserGroup, error)
	AddUsers(ctx context.Context, groupID, orgID int64, userIDs []int64) error
	RemoveUsers(ctx context.Context, groupID int64, userIDs []int64) error
	Members(ctx context.Context, groupID int64) ([]Member, error)
	LinkResources(ctx context.Context, groupID, orgID int64, resourceUUIDs []string) error
	UnlinkResources(ctx context.Context, groupID int64, resourceUUIDs []string) error
	CountUsersInOrg(ctx context.Context, orgID int64, userIDs []int64) (int, error)
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

const groupColumns = `ug.id, ug.usergroup_uuid, ug.org_id, ug.name, ug.description, ug.created_at, ug.updated_at`

func (r *repository) Create(ctx context.Context, group UserGroup) (int64, error) {
	const q = `
		INSERT INTO usergroups (usergroup_uuid, org_id, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	var id int64
	err := r.db.QueryRow(ctx, q, group.UsergroupUUID, group.OrgID, group.Name, group.Description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert usergroup: %w", err)
	}
	return id, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*UserGroup, error) {
	group, err := scanGroup(r.db.QueryRow(ctx, `SELECT `+groupColumns+` FROM usergroups ug WHERE ug.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return group, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	query := "UPDATE usergroups SET updated_at = NOW()"
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

// Delete removes the group. Its membership and resource link rows go
// with it through cascading deletes.
func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM usergroups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) ListForOrg(ctx context.Context, orgID int64) ([]UserGroup, error) {
	return r.list(ctx, `SELECT `+groupColumns+` FROM usergroups ug WHERE ug.org_id = $1 ORDER BY ug.created_at DESC`, orgID)
}

func (r *repository) ListForResource(ctx context.Context, resourceUUID string) ([]UserGroup, error) {
	const q = `
		SELECT ` + groupColumns + `
		FROM usergroups ug
		JOIN usergroup_resources ur ON ur.usergroup_id = ug.id
		WHERE ur.resource_uuid = $1
		ORDER BY ug.created_at DESC`
	return r.list(ctx, q, resourceUUID)
}

func (r *repository) list(ctx context.Context, q string, args ...any) ([]UserGroup, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []UserGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *group)
	}
	return items, rows.Err()
}

// AddUsers links users to the group. Existing memberships are left in
// place.
func (r *repository) AddUsers(ctx context.Context, groupID, orgID int64, userIDs []int64) error {
	for _, userID := range userIDs {
		_, err := r.db.Exec(ctx, `
			INSERT INTO usergroup_users (usergroup_id, user_id, org_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (usergroup_id, user_id) DO NOTHING`, groupID, userID, orgID)
		if err != nil {
			return fmt.Errorf("add user %d: %w", userID, err)
		}
	}
	return nil
}

func (r *repository) RemoveUsers(ctx context.Context, groupID int64, userIDs []int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM usergroup_users WHERE usergroup_id = $1 AND user_id = ANY($2)`, groupID, userIDs)
	return err
}

func (r *repository) Members(ctx context.Context, groupID int64) ([]Member, error) {
	const q = `
		SELECT u.id, u.user_uuid, u.username, u.first_name, u.last_name, u.avatar_image, uu.created_at
		FROM usergroup_users uu
		JOIN users u ON u.id = uu.user_id
		WHERE uu.usergroup_id = $1
		ORDER BY uu.created_at ASC`
	rows, err := r.db.Query(ctx, q, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var (
			m                   Member
			first, last, avatar pgtype.Text
		)
		if err := rows.Scan(&m.UserID, &m.UserUUID, &m.Username, &first, &last, &avatar, &m.Since); err != nil {
			return nil, err
		}
		m.FirstName = first.String
		m.LastName = last.String
		m.AvatarImage = avatar.String
		members = append(members, m)
	}
	return members, rows.Err()
}

// LinkResources attaches resource uuids to the group. Existing links
// are left in place.
func (r *repository) LinkResources(ctx context.Context, groupID, orgID int64, resourceUUIDs []string) error {
	for _, resourceUUID := range resourceUUIDs {
		_, err := r.db.Exec(ctx, `
			INSERT INTO usergroup_resources (usergroup_id, resource_uuid, org_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (usergroup_id, resource_uuid) DO NOTHING`, groupID, resourceUUID, orgID)
		if err != nil {
			return fmt.Errorf("link resource %s: %w", resourceUUID, err)
		}
	}
	return nil
}

func (r *repository) UnlinkResources(ctx context.Context, groupID int64, resourceUUIDs []string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM usergroup_resources WHERE usergroup_id = $1 AND resource_uuid = ANY($2)`, groupID, resourceUUIDs)
	return err
}

func (r *repository) CountUsersInOrg(ctx context.Context, orgID int64, userIDs []int64) (int, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	const q = `
		SELECT COUNT(*)
		FROM user_organizations uo
		WHERE uo.org_id = $1 AND uo.user_id = ANY($2)`
	var count int
	if err := r.db.QueryRow(ctx, q, orgID, userIDs).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
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

func scanGroup(row rowScanner) (*UserGroup, error) {
	var (
		g           UserGroup
		description pgtype.Text
	)
	err := row.Scan(&g.ID, &g.UsergroupUUID, &g.OrgID, &g.Name, &description, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.Description = description.String
	return &g, nil
}

var _ Repository = (*repository)(nil)
