package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Repository loads the grants and resource metadata the resolver needs.
type Repository interface {
	AuthorshipFor(ctx context.Context, resourceUUID string, userID int64) (ResourceAuthor, error)
	RoleGrants(ctx context.Context, userID, orgID int64) ([]RoleGrant, error)
	IsAdmin(ctx context.Context, userID, orgID int64) (bool, error)
	ResourceScope(ctx context.Context, rt ResourceType, resourceUUID string) (ResourceScope, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Repository backed by PostgreSQL.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) AuthorshipFor(ctx context.Context, resourceUUID string, userID int64) (ResourceAuthor, error) {
	const q = `
		SELECT id, resource_uuid, user_id, authorship, authorship_status, created_at, updated_at
		FROM resource_authors
		WHERE resource_uuid = $1 AND user_id = $2`

	var (
		ra         ResourceAuthor
		authorship string
		status     string
	)
	err := r.pool.QueryRow(ctx, q, resourceUUID, userID).Scan(
		&ra.ID, &ra.ResourceUUID, &ra.UserID, &authorship, &status, &ra.CreatedAt, &ra.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResourceAuthor{}, shared.ErrNotFound
		}
		return ResourceAuthor{}, fmt.Errorf("rbac: authorship for %s: %w", resourceUUID, err)
	}
	ra.Authorship = Authorship(authorship)
	ra.Status = AuthorshipStatus(status)
	return ra, nil
}

// RoleGrants returns the rights of every role the user holds. A positive
// orgID restricts the lookup to memberships of that organization.
func (r *repository) RoleGrants(ctx context.Context, userID, orgID int64) ([]RoleGrant, error) {
	q := `
		SELECT ro.id, ro.rights
		FROM user_organizations uo
		JOIN roles ro ON ro.id = uo.role_id
		WHERE uo.user_id = $1`
	args := []any{userID}
	if orgID > 0 {
		q += ` AND uo.org_id = $2`
		args = append(args, orgID)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("rbac: role grants: %w", err)
	}
	defer rows.Close()

	var grants []RoleGrant
	for rows.Next() {
		var (
			grant RoleGrant
			raw   []byte
		)
		if err := rows.Scan(&grant.RoleID, &raw); err != nil {
			return nil, fmt.Errorf("rbac: scan role grant: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &grant.Rights); err != nil {
				return nil, fmt.Errorf("rbac: decode rights for role %d: %w", grant.RoleID, err)
			}
		}
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}

func (r *repository) IsAdmin(ctx context.Context, userID, orgID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM user_organizations
			WHERE user_id = $1 AND org_id = $2 AND role_id IN ($3, $4)
		)`
	var ok bool
	if err := r.pool.QueryRow(ctx, q, userID, orgID, RoleAdminID, RoleMaintainerID).Scan(&ok); err != nil {
		return false, fmt.Errorf("rbac: admin check: %w", err)
	}
	return ok, nil
}

func (r *repository) ResourceScope(ctx context.Context, rt ResourceType, resourceUUID string) (ResourceScope, error) {
	var q string
	switch rt {
	case ResourceCourses:
		q = `SELECT org_id, public FROM courses WHERE course_uuid = $1`
	case ResourceCollections:
		q = `SELECT org_id, public FROM collections WHERE collection_uuid = $1`
	case ResourceActivities:
		q = `SELECT org_id, false FROM activities WHERE activity_uuid = $1`
	case ResourceChapters:
		q = `SELECT org_id, false FROM chapters WHERE chapter_uuid = $1`
	case ResourceUsergroups:
		q = `SELECT org_id, false FROM usergroups WHERE usergroup_uuid = $1`
	case ResourceOrganizations:
		q = `SELECT id, false FROM organizations WHERE org_uuid = $1`
	case ResourceRoles:
		q = `SELECT COALESCE(org_id, 0), false FROM roles WHERE role_uuid = $1`
	case ResourceUsers:
		q = `SELECT 0::bigint, false FROM users WHERE user_uuid = $1`
	default:
		return ResourceScope{}, fmt.Errorf("%w: unrecognized resource type %q", shared.ErrConflict, string(rt))
	}

	var scope ResourceScope
	if err := r.pool.QueryRow(ctx, q, resourceUUID).Scan(&scope.OrgID, &scope.Public); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ResourceScope{}, shared.ErrNotFound
		}
		return ResourceScope{}, fmt.Errorf("rbac: resource scope %s: %w", resourceUUID, err)
	}
	return scope, nil
}
