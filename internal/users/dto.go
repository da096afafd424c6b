package users

// CreateUserRequest is the registration payload. OrgID optionally joins the
// new user to an organization with the standard user role.
type CreateUserRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=40"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"max=60"`
	LastName  string `json:"last_name" validate:"max=60"`
	Bio       string `json:"bio" validate:"max=500"`
	OrgID     *int64 `json:"org_id" validate:"omitempty,gt=0"`
}

// UpdateUserRequest patches profile fields. Nil pointers leave the stored
// value untouched.
type UpdateUserRequest struct {
	Username  *string        `json:"username" validate:"omitempty,min=3,max=40"`
	Email     *string        `json:"email" validate:"omitempty,email"`
	FirstName *string        `json:"first_name"`
	LastName  *string        `json:"last_name"`
	Bio       *string        `json:"bio" validate:"omitempty,max=500"`
	Details   map[string]any `json:"details"`
}

// ChangePasswordRequest carries the old and new password for a self-service
// change. OldPassword is ignored when an authorized admin resets another
// user's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}
