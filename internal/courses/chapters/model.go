package chapters

import "time"

// Chapter groups activities inside a course. Position comes from the
// course_chapters link row.
type Chapter struct {
	ID          int64             `json:"id"`
	ChapterUUID string            `json:"chapter_uuid"`
	CourseID    int64             `json:"course_id"`
	OrgID       int64             `json:"org_id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Position    int               `json:"position"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Activities  []ActivitySummary `json:"activities"`
}

// ActivitySummary is the slice of an activity shown inside a chapter
// listing. Full content is served by the activities endpoints.
type ActivitySummary struct {
	ID              int64  `json:"id"`
	ActivityUUID    string `json:"activity_uuid"`
	Name            string `json:"name"`
	ActivityType    string `json:"activity_type"`
	ActivitySubType string `json:"activity_sub_type"`
	Published       bool   `json:"published"`
	Position        int    `json:"position"`
}
