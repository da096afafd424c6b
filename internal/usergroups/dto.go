package usergroups

// CreateUserGroupRequest is the payload for creating a group.
type CreateUserGroupRequest struct {
	OrgID       int64  `json:"org_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,min=2,max=150"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateUserGroupRequest carries a partial update.
type UpdateUserGroupRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=150"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// MembersRequest lists users to add to or remove from a group.
type MembersRequest struct {
	UserIDs []int64 `json:"user_ids" validate:"required,min=1,dive,gt=0"`
}

// ResourcesRequest lists resource uuids to link to or unlink from a
// group.
type ResourcesRequest struct {
	ResourceUUIDs []string `json:"resource_uuids" validate:"required,min=1,dive,required"`
}
