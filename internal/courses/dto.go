package courses

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	OrgID              int64  `json:"org_id" validate:"required,gt=0"`
	Name               string `json:"name" validate:"required,min=2,max=150"`
	Description        string `json:"description" validate:"max=1000"`
	About              string `json:"about"`
	Learnings          string `json:"learnings"`
	Tags               string `json:"tags"`
	Public             bool   `json:"public"`
	OpenToContributors bool   `json:"open_to_contributors"`
}

// UpdateCourseRequest carries a partial update. Nil fields are left
// untouched.
type UpdateCourseRequest struct {
	Name               *string `json:"name,omitempty" validate:"omitempty,min=2,max=150"`
	Description        *string `json:"description,omitempty" validate:"omitempty,max=1000"`
	About              *string `json:"about,omitempty"`
	Learnings          *string `json:"learnings,omitempty"`
	Tags               *string `json:"tags,omitempty"`
	Public             *bool   `json:"public,omitempty"`
	OpenToContributors *bool   `json:"open_to_contributors,omitempty"`
}

// UpdateContributorRequest changes the role or status of a course
// contributor. The creator row cannot be reassigned, so CREATOR is not
// an accepted value.
type UpdateContributorRequest struct {
	Authorship string `json:"authorship" validate:"required,oneof=MAINTAINER CONTRIBUTOR REPORTER"`
	Status     string `json:"authorship_status" validate:"required,oneof=ACTIVE PENDING INACTIVE"`
}

// CreateCourseUpdateRequest is the payload for posting an announcement.
type CreateCourseUpdateRequest struct {
	Title              string `json:"title" validate:"required,min=2,max=200"`
	Content            string `json:"content" validate:"required"`
	LinkedActivityUUID string `json:"linked_activity_uuids"`
}

// UpdateCourseUpdateRequest carries a partial announcement update.
type UpdateCourseUpdateRequest struct {
	Title              *string `json:"title,omitempty" validate:"omitempty,min=2,max=200"`
	Content            *string `json:"content,omitempty"`
	LinkedActivityUUID *string `json:"linked_activity_uuids,omitempty"`
}
