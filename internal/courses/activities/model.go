package activities

import "time"

// ActivityType selects the player used to render an activity.
type ActivityType string

const (
	TypeVideo      ActivityType = "TYPE_VIDEO"
	TypeDocument   ActivityType = "TYPE_DOCUMENT"
	TypeDynamic    ActivityType = "TYPE_DYNAMIC"
	TypeAssignment ActivityType = "TYPE_ASSIGNMENT"
	TypeCustom     ActivityType = "TYPE_CUSTOM"
)

// ActivitySubType narrows the type to a concrete source or format.
type ActivitySubType string

const (
	SubTypeDynamicPage   ActivitySubType = "SUBTYPE_DYNAMIC_PAGE"
	SubTypeVideoYouTube  ActivitySubType = "SUBTYPE_VIDEO_YOUTUBE"
	SubTypeVideoHosted   ActivitySubType = "SUBTYPE_VIDEO_HOSTED"
	SubTypeDocumentPDF   ActivitySubType = "SUBTYPE_DOCUMENT_PDF"
	SubTypeDocumentDoc   ActivitySubType = "SUBTYPE_DOCUMENT_DOC"
	SubTypeAssignmentAny ActivitySubType = "SUBTYPE_ASSIGNMENT_ANY"
	SubTypeCustom        ActivitySubType = "SUBTYPE_CUSTOM"
)

// Activity is a single learning unit inside a chapter. Content holds the
// type-specific payload (editor document, video reference, file pointer),
// Details carries optional presentation metadata.
type Activity struct {
	ID              int64           `json:"id"`
	ActivityUUID    string          `json:"activity_uuid"`
	OrgID           int64           `json:"org_id"`
	CourseID        int64           `json:"course_id"`
	Name            string          `json:"name"`
	ActivityType    ActivityType    `json:"activity_type"`
	ActivitySubType ActivitySubType `json:"activity_sub_type"`
	Content         map[string]any  `json:"content"`
	Details         map[string]any  `json:"details,omitempty"`
	Published       bool            `json:"published"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
