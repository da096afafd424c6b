package chapters

// CreateChapterRequest is the payload for creating a chapter. The new
// chapter is appended at the end of the course.
type CreateChapterRequest struct {
	CourseID    int64  `json:"course_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,min=1,max=150"`
	Description string `json:"description" validate:"max=500"`
}

// UpdateChapterRequest carries a partial update. Nil fields are left
// untouched.
type UpdateChapterRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=150"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// ReorderRequest is the full ordered layout of a course. Chapters and
// activities absent from the submission are unlinked.
type ReorderRequest struct {
	ChapterOrder []ChapterOrder `json:"chapter_order_by_ids" validate:"required,dive"`
}

// ChapterOrder positions one chapter and its activities.
type ChapterOrder struct {
	ChapterID     int64           `json:"chapter_id" validate:"required,gt=0"`
	ActivityOrder []ActivityOrder `json:"activities_order_by_ids" validate:"dive"`
}

// ActivityOrder positions one activity inside its chapter.
type ActivityOrder struct {
	ActivityID int64 `json:"activity_id" validate:"required,gt=0"`
}
