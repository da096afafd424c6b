package collections

import "time"

// Collection is a curated, org-scoped set of courses.
type Collection struct {
	ID             int64           `json:"id"`
	CollectionUUID string          `json:"collection_uuid"`
	OrgID          int64           `json:"org_id"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Public         bool            `json:"public"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Courses        []CourseSummary `json:"courses"`
}

// CourseSummary is the course slice embedded in collection reads.
type CourseSummary struct {
	ID             int64  `json:"id"`
	CourseUUID     string `json:"course_uuid"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	ThumbnailImage string `json:"thumbnail_image"`
	Public         bool   `json:"public"`
}
