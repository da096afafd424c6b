package users

import "time"

// User represents an account row.
type User struct {
	ID            int64          `json:"id"`
	UserUUID      string         `json:"user_uuid"`
	Username      string         `json:"username"`
	Email         string         `json:"email"`
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	PasswordHash  string         `json:"-"`
	EmailVerified bool           `json:"email_verified"`
	AvatarImage   string         `json:"avatar_image,omitempty"`
	Bio           string         `json:"bio,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
