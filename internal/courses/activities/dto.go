package activities

// CreateActivityRequest is the payload for adding an activity to a
// chapter. Type and subtype default to the custom pair when omitted.
type CreateActivityRequest struct {
	ChapterID       int64           `json:"chapter_id" validate:"required,gt=0"`
	Name            string          `json:"name" validate:"required,min=1,max=150"`
	ActivityType    ActivityType    `json:"activity_type" validate:"omitempty,oneof=TYPE_VIDEO TYPE_DOCUMENT TYPE_DYNAMIC TYPE_ASSIGNMENT TYPE_CUSTOM"`
	ActivitySubType ActivitySubType `json:"activity_sub_type" validate:"omitempty,oneof=SUBTYPE_DYNAMIC_PAGE SUBTYPE_VIDEO_YOUTUBE SUBTYPE_VIDEO_HOSTED SUBTYPE_DOCUMENT_PDF SUBTYPE_DOCUMENT_DOC SUBTYPE_ASSIGNMENT_ANY SUBTYPE_CUSTOM"`
	Content         map[string]any  `json:"content"`
	Details         map[string]any  `json:"details"`
	Published       bool            `json:"published"`
}

// UpdateActivityRequest carries a partial update. Nil fields are left
// untouched.
type UpdateActivityRequest struct {
	Name            *string          `json:"name" validate:"omitempty,min=1,max=150"`
	ActivityType    *ActivityType    `json:"activity_type" validate:"omitempty,oneof=TYPE_VIDEO TYPE_DOCUMENT TYPE_DYNAMIC TYPE_ASSIGNMENT TYPE_CUSTOM"`
	ActivitySubType *ActivitySubType `json:"activity_sub_type" validate:"omitempty,oneof=SUBTYPE_DYNAMIC_PAGE SUBTYPE_VIDEO_YOUTUBE SUBTYPE_VIDEO_HOSTED SUBTYPE_DOCUMENT_PDF SUBTYPE_DOCUMENT_DOC SUBTYPE_ASSIGNMENT_ANY SUBTYPE_CUSTOM"`
	Content         map[string]any   `json:"content"`
	Details         map[string]any   `json:"details"`
	Published       *bool            `json:"published"`
}
