package orgs

import (
	"context"
	"encoding/json"
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

// Repository persists organizations, their config blobs and memberships.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, org Organization) (int64, error)
	GetByID(ctx context.Context, id int64) (*Organization, error)
	GetByUUID(ctx context.Context, orgUUID string) (*Organization, error)
	GetBySlug(ctx context.Context, slug string) (*Organization, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
	ListExplore(ctx context.Context, page, perPage int) ([]Organization, int, error)
	ListForUser(ctx context.Context, userID int64) ([]Organization, error)
	Config(ctx context.Context, orgID int64) (map[string]any, error)
	SaveConfig(ctx context.Context, orgID int64, config map[string]any) error
	Members(ctx context.Context, orgID int64) ([]Member, error)
	Member(ctx context.Context, orgID, userID int64) (*Member, error)
	AddMember(ctx context.Context, orgID, userID, roleID int64) error
	UpdateMemberRole(ctx context.Context, orgID, userID, roleID int64) error
	RemoveMember(ctx context.Context, orgID, userID int64) error
	CountAdmins(ctx context.Context, orgID int64) (int, error)
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

const orgColumns = `id, org_uuid, name, description, about, slug, email, logo_image, thumbnail_image, socials, links, label, explore, created_at, updated_at`

func (r *repository) Create(ctx context.Context, org Organization) (int64, error) {
	socials, err := marshalJSONMap(org.Socials)
	if err != nil {
		return 0, err
	}
	links, err := marshalJSONMap(org.Links)
	if err != nil {
		return 0, err
	}
	const q = `
		INSERT INTO organizations (org_uuid, name, description, about, slug, email, logo_image, thumbnail_image, socials, links, label, explore)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	var id int64
	err = r.db.QueryRow(ctx, q,
		org.OrgUUID, org.Name, org.Description, org.About, org.Slug, org.Email,
		org.LogoImage, org.ThumbnailImage, socials, links, org.Label, org.Explore,
	).Scan(&id)
	if err != nil {
		return 0, mapOrgUniqueViolation(err)
	}
	return id, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Organization, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *repository) GetByUUID(ctx context.Context, orgUUID string) (*Organization, error) {
	return r.getBy(ctx, "org_uuid = $1", orgUUID)
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	return r.getBy(ctx, "slug = $1", slug)
}

func (r *repository) getBy(ctx context.Context, where string, arg any) (*Organization, error) {
	row := r.db.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE `+where, arg)
	org, err := scanOrg(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return org, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	query := "UPDATE organizations SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"name", "description", "about", "slug", "email", "label", "explore", "socials", "links", "logo_image", "thumbnail_image"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return mapOrgUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListExplore pages through organizations flagged for public discovery.
func (r *repository) ListExplore(ctx context.Context, page, perPage int) ([]Organization, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM organizations WHERE explore = TRUE`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + orgColumns + ` FROM organizations WHERE explore = TRUE ORDER BY created_at DESC`
	args := []any{}
	if perPage > 0 {
		offset := (page - 1) * perPage
		if offset < 0 {
			offset = 0
		}
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, perPage, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Organization
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *org)
	}
	return out, total, rows.Err()
}

func (r *repository) ListForUser(ctx context.Context, userID int64) ([]Organization, error) {
	const q = `
		SELECT o.id, o.org_uuid, o.name, o.description, o.about, o.slug, o.email, o.logo_image,
		       o.thumbnail_image, o.socials, o.links, o.label, o.explore, o.created_at, o.updated_at
		FROM organizations o
		JOIN user_organizations uo ON uo.org_id = o.id
		WHERE uo.user_id = $1
		ORDER BY o.name ASC`
	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Organization
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *org)
	}
	return out, rows.Err()
}

func (r *repository) Config(ctx context.Context, orgID int64) (map[string]any, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT config FROM organization_configs WHERE org_id = $1`, orgID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	var config map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &config); err != nil {
			return nil, fmt.Errorf("orgs: decode config: %w", err)
		}
	}
	return config, nil
}

func (r *repository) SaveConfig(ctx context.Context, orgID int64, config map[string]any) error {
	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("orgs: encode config: %w", err)
	}
	const q = `
		INSERT INTO organization_configs (org_id, config)
		VALUES ($1, $2)
		ON CONFLICT (org_id) DO UPDATE SET config = EXCLUDED.config, updated_at = NOW()`
	_, err = r.db.Exec(ctx, q, orgID, raw)
	return err
}

const memberColumns = `u.id, u.user_uuid, u.username, u.email, u.first_name, u.last_name, u.avatar_image, ro.id, ro.name, uo.created_at`

func (r *repository) Members(ctx context.Context, orgID int64) ([]Member, error) {
	q := `SELECT ` + memberColumns + `
		FROM user_organizations uo
		JOIN users u ON u.id = uo.user_id
		JOIN roles ro ON ro.id = uo.role_id
		WHERE uo.org_id = $1
		ORDER BY uo.created_at ASC`
	rows, err := r.db.Query(ctx, q, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func (r *repository) Member(ctx context.Context, orgID, userID int64) (*Member, error) {
	q := `SELECT ` + memberColumns + `
		FROM user_organizations uo
		JOIN users u ON u.id = uo.user_id
		JOIN roles ro ON ro.id = uo.role_id
		WHERE uo.org_id = $1 AND uo.user_id = $2`
	m, err := scanMember(r.db.QueryRow(ctx, q, orgID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *repository) AddMember(ctx context.Context, orgID, userID, roleID int64) error {
	const q = `
		INSERT INTO user_organizations (user_id, org_id, role_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, org_id) DO UPDATE SET role_id = EXCLUDED.role_id, updated_at = NOW()`
	_, err := r.db.Exec(ctx, q, userID, orgID, roleID)
	return err
}

func (r *repository) UpdateMemberRole(ctx context.Context, orgID, userID, roleID int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE user_organizations SET role_id = $1, updated_at = NOW() WHERE org_id = $2 AND user_id = $3`,
		roleID, orgID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) RemoveMember(ctx context.Context, orgID, userID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_organizations WHERE org_id = $1 AND user_id = $2`, orgID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) CountAdmins(ctx context.Context, orgID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_organizations WHERE org_id = $1 AND role_id IN ($2, $3)`,
		orgID, rbac.RoleAdminID, rbac.RoleMaintainerID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrg(row rowScanner) (*Organization, error) {
	var (
		o           Organization
		description pgtype.Text
		about       pgtype.Text
		email       pgtype.Text
		logo        pgtype.Text
		thumbnail   pgtype.Text
		label       pgtype.Text
		socials     []byte
		links       []byte
	)
	err := row.Scan(
		&o.ID, &o.OrgUUID, &o.Name, &description, &about, &o.Slug, &email,
		&logo, &thumbnail, &socials, &links, &label, &o.Explore,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Description = description.String
	o.About = about.String
	o.Email = email.String
	o.LogoImage = logo.String
	o.ThumbnailImage = thumbnail.String
	o.Label = label.String
	if err := unmarshalJSONMap(socials, &o.Socials); err != nil {
		return nil, err
	}
	if err := unmarshalJSONMap(links, &o.Links); err != nil {
		return nil, err
	}
	return &o, nil
}

func scanMember(row rowScanner) (*Member, error) {
	var (
		m         Member
		firstName pgtype.Text
		lastName  pgtype.Text
		avatar    pgtype.Text
	)
	err := row.Scan(&m.UserID, &m.UserUUID, &m.Username, &m.Email, &firstName, &lastName, &avatar, &m.RoleID, &m.RoleName, &m.Since)
	if err != nil {
		return nil, err
	}
	m.FirstName = firstName.String
	m.LastName = lastName.String
	m.AvatarImage = avatar.String
	return &m, nil
}

func marshalJSONMap(m map[string]string) ([]byte, error) {
	if m == nil {
		return []byte(`{}`), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("orgs: encode json column: %w", err)
	}
	return data, nil
}

func unmarshalJSONMap(raw []byte, dst *map[string]string) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("orgs: decode json column: %w", err)
	}
	if len(*dst) == 0 {
		*dst = nil
	}
	return nil
}

func mapOrgUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "slug") {
			return fmt.Errorf("%w: slug already in use", shared.ErrConflict)
		}
		return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
