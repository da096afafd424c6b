package orgs

import "time"

// Organization is an organization row with its config attached on reads.
type Organization struct {
	ID             int64             `json:"id"`
	OrgUUID        string            `json:"org_uuid"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	About          string            `json:"about,omitempty"`
	Slug           string            `json:"slug"`
	Email          string            `json:"email,omitempty"`
	LogoImage      string            `json:"logo_image,omitempty"`
	ThumbnailImage string            `json:"thumbnail_image,omitempty"`
	Socials        map[string]string `json:"socials,omitempty"`
	Links          map[string]string `json:"links,omitempty"`
	Label          string            `json:"label,omitempty"`
	Explore        bool              `json:"explore"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
	Config         map[string]any    `json:"config,omitempty"`
}

// Member is an organization membership joined with the user and role.
type Member struct {
	UserID      int64     `json:"user_id"`
	UserUUID    string    `json:"user_uuid"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	AvatarImage string    `json:"avatar_image,omitempty"`
	RoleID      int64     `json:"role_id"`
	RoleName    string    `json:"role_name"`
	Since       time.Time `json:"since"`
}

// DefaultConfig is the configuration blob attached to new organizations.
func DefaultConfig() map[string]any {
	return map[string]any{
		"general": map[string]any{
			"color":     "#000000",
			"watermark": true,
		},
		"features": map[string]any{
			"courses":    map[string]any{"enabled": true, "limit": 0},
			"members":    map[string]any{"signup_mode": "open"},
			"usergroups": map[string]any{"enabled": true},
			"storage":    map[string]any{"enabled": true, "limit": 0},
			"api":        map[string]any{"enabled": true},
		},
	}
}
