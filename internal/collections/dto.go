package collections

// CreateCollectionRequest is the payload for creating a collection.
// Courses lists the course ids to link, all from the same organization.
type CreateCollectionRequest struct {
	OrgID       int64   `json:"org_id" validate:"required,gt=0"`
	Name        string  `json:"name" validate:"required,min=2,max=150"`
	Description string  `json:"description" validate:"max=500"`
	Public      bool    `json:"public"`
	CourseIDs   []int64 `json:"courses" validate:"omitempty,dive,gt=0"`
}

// UpdateCollectionRequest carries a partial update. A non-nil Courses
// slice replaces the linked set, an absent field leaves it untouched.
type UpdateCollectionRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=150"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Public      *bool   `json:"public"`
	CourseIDs   []int64 `json:"courses" validate:"omitempty,dive,gt=0"`
}
