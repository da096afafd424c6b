package courses

import (
	"time"

	"github.com/atheneum-lms/atheneum/internal/rbac"
)

// Course is a catalog entry published by an organization.
type Course struct {
	ID                 int64     `json:"id"`
	CourseUUID         string    `json:"course_uuid"`
	OrgID              int64     `json:"org_id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	About              string    `json:"about"`
	Learnings          string    `json:"learnings"`
	Tags               string    `json:"tags"`
	ThumbnailImage     string    `json:"thumbnail_image"`
	Public             bool      `json:"public"`
	OpenToContributors bool      `json:"open_to_contributors"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Authors            []Author  `json:"authors,omitempty"`
}

// Author is a user holding an authorship row on a course, joined with
// the public part of their profile. Rows keep insertion order so the
// creator always comes first.
type Author struct {
	UserID      int64                 `json:"user_id"`
	UserUUID    string                `json:"user_uuid"`
	Username    string                `json:"username"`
	FirstName   string                `json:"first_name"`
	LastName    string                `json:"last_name"`
	AvatarImage string                `json:"avatar_image"`
	Email       string                `json:"-"`
	Authorship  rbac.Authorship       `json:"authorship"`
	Status      rbac.AuthorshipStatus `json:"authorship_status"`
	Since       time.Time             `json:"since"`
}

// CourseUpdate is an announcement posted on a course.
type CourseUpdate struct {
	ID                 int64     `json:"id"`
	CourseUpdateUUID   string    `json:"courseupdate_uuid"`
	CourseID           int64     `json:"course_id"`
	OrgID              int64     `json:"org_id"`
	Title              string    `json:"title"`
	Content            string    `json:"content"`
	LinkedActivityUUID string    `json:"linked_activity_uuids"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
