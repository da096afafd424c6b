package usergroups

import "time"

// UserGroup is an org-scoped set of users, linked to resources to grant
// them shared visibility of private content.
type UserGroup struct {
	ID            int64     `json:"id"`
	UsergroupUUID string    `json:"usergroup_uuid"`
	OrgID         int64     `json:"org_id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Member is a user inside a group.
type Member struct {
	UserID      int64     `json:"user_id"`
	UserUUID    string    `json:"user_uuid"`
	Username    string    `json:"username"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	AvatarImage string    `json:"avatar_image"`
	Since       time.Time `json:"since"`
}
