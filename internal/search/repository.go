package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// UserResult is a user row surfaced by search.
type UserResult struct {
	ID          int64  `json:"id"`
	UserUUID    string `json:"user_uuid"`
	Username    string `json:"username"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	AvatarImage string `json:"avatar_image"`
	Bio         string `json:"bio"`
}

// Repository runs the search queries that have no home in a domain
// package.
type Repository interface {
	SearchUsers(ctx context.Context, orgID int64, query string, limit, offset int) ([]UserResult, error)
	OrgIDBySlug(ctx context.Context, slug string) (int64, error)
}

type dbtx interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository constructs a PostgreSQL-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

// SearchUsers matches organization members on username, names and bio.
func (r *repository) SearchUsers(ctx context.Context, orgID int64, query string, limit, offset int) ([]UserResult, error) {
	const q = `
		SELECT u.id, u.user_uuid, u.username, u.first_name, u.last_name, u.avatar_image, u.bio
		FROM users u
		JOIN user_organizations uo ON uo.user_id = u.id AND uo.org_id = $1
		WHERE LOWER(u.username) LIKE $2
		   OR LOWER(u.first_name) LIKE $2
		   OR LOWER(u.last_name) LIKE $2
		   OR LOWER(u.bio) LIKE $2
		ORDER BY u.username ASC
		LIMIT $3 OFFSET $4`
	pattern := "%" + strings.ToLower(query) + "%"
	rows, err := r.db.Query(ctx, q, orgID, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var items []UserResult
	for rows.Next() {
		var (
			u                        UserResult
			first, last, avatar, bio pgtype.Text
		)
		if err := rows.Scan(&u.ID, &u.UserUUID, &u.Username, &first, &last, &avatar, &bio); err != nil {
			return nil, err
		}
		u.FirstName = first.String
		u.LastName = last.String
		u.AvatarImage = avatar.String
		u.Bio = bio.String
		items = append(items, u)
	}
	return items, rows.Err()
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

var _ Repository = (*repository)(nil)
