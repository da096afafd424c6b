package orgs

// CreateOrgRequest is the payload for creating an organization.
type CreateOrgRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
	Slug        string `json:"slug" validate:"required,min=2,max=60"`
	Email       string `json:"email" validate:"omitempty,email"`
}

// UpdateOrgRequest patches organization fields. Nil pointers leave the
// stored value untouched.
type UpdateOrgRequest struct {
	Name        *string           `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string           `json:"description" validate:"omitempty,max=500"`
	About       *string           `json:"about"`
	Slug        *string           `json:"slug" validate:"omitempty,min=2,max=60"`
	Email       *string           `json:"email" validate:"omitempty,email"`
	Label       *string           `json:"label" validate:"omitempty,max=100"`
	Explore     *bool             `json:"explore"`
	Socials     map[string]string `json:"socials"`
	Links       map[string]string `json:"links"`
}

// UpdateConfigRequest replaces the organization config blob.
type UpdateConfigRequest struct {
	Config map[string]any `json:"config" validate:"required"`
}

// UpdateMemberRoleRequest assigns a new role to a member.
type UpdateMemberRoleRequest struct {
	RoleID int64 `json:"role_id" validate:"required,gt=0"`
}
