package roles

import "github.com/atheneum-lms/atheneum/internal/rbac"

// CreateRoleRequest creates an organization-scoped role.
type CreateRoleRequest struct {
	OrgUUID     string      `json:"org_uuid" validate:"required"`
	Name        string      `json:"name" validate:"required,min=2,max=60"`
	Description string      `json:"description" validate:"max=500"`
	Rights      rbac.Rights `json:"rights"`
}

// UpdateRoleRequest patches a role. Nil pointers leave the stored value
// untouched.
type UpdateRoleRequest struct {
	Name        *string      `json:"name" validate:"omitempty,min=2,max=60"`
	Description *string      `json:"description" validate:"omitempty,max=500"`
	Rights      *rbac.Rights `json:"rights"`
}
