package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Repository persists roles.
type Repository interface {
	Create(ctx context.Context, role Role) (int64, error)
	GetByID(ctx context.Context, id int64) (*Role, error)
	GetByUUID(ctx context.Context, roleUUID string) (*Role, error)
	ListForOrg(ctx context.Context, orgID int64) ([]Role, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	OrgIDByUUID(ctx context.Context, orgUUID string) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const roleColumns = `id, role_uuid, org_id, name, description, role_type, rights, created_at, updated_at`

func (r *repository) Create(ctx context.Context, role Role) (int64, error) {
	rights, err := json.Marshal(role.Rights)
	if err != nil {
		return 0, fmt.Errorf("roles: encode rights: %w", err)
	}
	const q = `
		INSERT INTO roles (role_uuid, org_id, name, description, role_type, rights)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	var id int64
	err = r.pool.QueryRow(ctx, q, role.RoleUUID, role.OrgID, role.Name, role.Description, role.RoleType, rights).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Role, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *repository) GetByUUID(ctx context.Context, roleUUID string) (*Role, error) {
	return r.getBy(ctx, "role_uuid = $1", roleUUID)
}

func (r *repository) getBy(ctx context.Context, where string, arg any) (*Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE `+where, arg)
	role, err := scanRole(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return role, nil
}

// ListForOrg returns the global roles plus the organization's own.
func (r *repository) ListForOrg(ctx context.Context, orgID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE org_id IS NULL OR org_id = $1 ORDER BY id ASC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *role)
	}
	return out, rows.Err()
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	query := "UPDATE roles SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"name", "description", "rights"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) OrgIDByUUID(ctx context.Context, orgUUID string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM organizations WHERE org_uuid = $1`, orgUUID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (*Role, error) {
	var (
		role        Role
		orgID       pgtype.Int8
		description pgtype.Text
		rights      []byte
	)
	err := row.Scan(&role.ID, &role.RoleUUID, &orgID, &role.Name, &description, &role.RoleType, &rights, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if orgID.Valid {
		role.OrgID = &orgID.Int64
	}
	role.Description = description.String
	if len(rights) > 0 {
		var parsed rbac.Rights
		if err := json.Unmarshal(rights, &parsed); err != nil {
			return nil, fmt.Errorf("roles: decode rights: %w", err)
		}
		role.Rights = parsed
	}
	return &role, nil
}
