package users

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
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Repository persists users and their organization memberships.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Create(ctx context.Context, user User) (int64, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUUID(ctx context.Context, userUUID string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	Delete(ctx context.Context, id int64) error
	AddToOrg(ctx context.Context, userID, orgID, roleID int64) error
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

const userColumns = `id, user_uuid, username, email, first_name, last_name, password_hash, email_verified, avatar_image, bio, details, created_at, updated_at`

func (r *repository) Create(ctx context.Context, user User) (int64, error) {
	details, err := marshalDetails(user.Details)
	if err != nil {
		return 0, err
	}
	const q = `
		INSERT INTO users (user_uuid, username, email, first_name, last_name, password_hash, email_verified, avatar_image, bio, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	var id int64
	err = r.db.QueryRow(ctx, q,
		user.UserUUID, user.Username, user.Email, user.FirstName, user.LastName,
		user.PasswordHash, user.EmailVerified, user.AvatarImage, user.Bio, details,
	).Scan(&id)
	if err != nil {
		return 0, mapUserUniqueViolation(err)
	}
	return id, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *repository) GetByUUID(ctx context.Context, userUUID string) (*User, error) {
	return r.getBy(ctx, "user_uuid = $1", userUUID)
}

func (r *repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getBy(ctx, "username = $1", username)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getBy(ctx, "email = $1", email)
}

func (r *repository) getBy(ctx context.Context, where string, arg any) (*User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	return scanUser(row)
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	query := "UPDATE users SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range []string{"username", "email", "first_name", "last_name", "bio", "avatar_image", "email_verified", "details"} {
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
		return mapUserUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, passwordHash, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AddToOrg links the user to an organization, replacing the role on an
// existing membership.
func (r *repository) AddToOrg(ctx context.Context, userID, orgID, roleID int64) error {
	const q = `
		INSERT INTO user_organizations (user_id, org_id, role_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, org_id) DO UPDATE SET role_id = EXCLUDED.role_id, updated_at = NOW()`
	_, err := r.db.Exec(ctx, q, userID, orgID, roleID)
	return err
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		u           User
		firstName   pgtype.Text
		lastName    pgtype.Text
		avatarImage pgtype.Text
		bio         pgtype.Text
		details     []byte
	)
	err := row.Scan(
		&u.ID, &u.UserUUID, &u.Username, &u.Email, &firstName, &lastName,
		&u.PasswordHash, &u.EmailVerified, &avatarImage, &bio, &details,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	u.FirstName = firstName.String
	u.LastName = lastName.String
	u.AvatarImage = avatarImage.String
	u.Bio = bio.String
	if len(details) > 0 {
		if err := json.Unmarshal(details, &u.Details); err != nil {
			return nil, fmt.Errorf("users: decode details: %w", err)
		}
	}
	return &u, nil
}

func marshalDetails(details map[string]any) ([]byte, error) {
	if details == nil {
		return []byte(`{}`), nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("users: encode details: %w", err)
	}
	return data, nil
}

func mapUserUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "username"):
			return fmt.Errorf("%w: username already taken", shared.ErrConflict)
		case strings.Contains(pgErr.ConstraintName, "email"):
			return fmt.Errorf("%w: email already registered", shared.ErrConflict)
		default:
			return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.ConstraintName)
		}
	}
	return err
}
