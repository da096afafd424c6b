package roles

import (
	"time"

	"github.com/atheneum-lms/atheneum/internal/rbac"
)

// Role types. Global roles ship with the installation and apply across
// organizations; organization roles are created by org admins.
const (
	TypeGlobal       = "TYPE_GLOBAL"
	TypeOrganization = "TYPE_ORGANIZATION"
)

// Role is a named permission matrix, optionally scoped to an organization.
type Role struct {
	ID          int64       `json:"id"`
	RoleUUID    string      `json:"role_uuid"`
	OrgID       *int64      `json:"org_id,omitempty"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	RoleType    string      `json:"role_type"`
	Rights      rbac.Rights `json:"rights"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Global reports whether the role applies across all organizations.
func (r Role) Global() bool {
	return r.OrgID == nil
}
