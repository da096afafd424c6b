package auth

import "time"

// Account is the slice of a user record the auth flows need.
type Account struct {
	ID            int64     `json:"id"`
	UserUUID      string    `json:"user_uuid"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
