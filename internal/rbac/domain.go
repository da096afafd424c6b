package rbac

import (
	"fmt"
	"strings"
	"time"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Action enumerates the operations subject to authorization.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ResourceType identifies the kind of resource a uuid refers to.
type ResourceType string

const (
	ResourceCourses       ResourceType = "courses"
	ResourceUsers         ResourceType = "users"
	ResourceUsergroups    ResourceType = "usergroups"
	ResourceOrganizations ResourceType = "organizations"
	ResourceChapters      ResourceType = "coursechapters"
	ResourceCollections   ResourceType = "collections"
	ResourceActivities    ResourceType = "activities"
	ResourceRoles         ResourceType = "roles"
)

// Seeded role ids present in every installation. Admin and Maintainer
// memberships make a user an organization admin.
const (
	RoleAdminID      int64 = 1
	RoleMaintainerID int64 = 2
	RoleInstructorID int64 = 3
	RoleUserID       int64 = 4
)

// ResourceTypeFromUUID maps a resource uuid to its type using the prefix
// before the first underscore. Course update uuids authorize as courses.
func ResourceTypeFromUUID(resourceUUID string) (ResourceType, error) {
	prefix, _, found := strings.Cut(resourceUUID, "_")
	if found {
		switch prefix {
		case "course", "courseupdate":
			return ResourceCourses, nil
		case "user":
			return ResourceUsers, nil
		case "usergroup":
			return ResourceUsergroups, nil
		case "org":
			return ResourceOrganizations, nil
		case "chapter":
			return ResourceChapters, nil
		case "collection":
			return ResourceCollections, nil
		case "activity":
			return ResourceActivities, nil
		case "role":
			return ResourceRoles, nil
		}
	}
	return "", fmt.Errorf("%w: unrecognized resource uuid %q", shared.ErrConflict, resourceUUID)
}

// Permission captures the four CRUD switches a role grants on one resource type.
type Permission struct {
	Create bool `json:"action_create" yaml:"action_create"`
	Read   bool `json:"action_read" yaml:"action_read"`
	Update bool `json:"action_update" yaml:"action_update"`
	Delete bool `json:"action_delete" yaml:"action_delete"`
}

// Allows reports whether the permission covers the action.
func (p Permission) Allows(a Action) bool {
	switch a {
	case ActionCreate:
		return p.Create
	case ActionRead:
		return p.Read
	case ActionUpdate:
		return p.Update
	case ActionDelete:
		return p.Delete
	default:
		return false
	}
}

// Rights is the full permission matrix carried by a role.
type Rights struct {
	Courses       Permission `json:"courses" yaml:"courses"`
	Users         Permission `json:"users" yaml:"users"`
	Usergroups    Permission `json:"usergroups" yaml:"usergroups"`
	Organizations Permission `json:"organizations" yaml:"organizations"`
	Chapters      Permission `json:"coursechapters" yaml:"coursechapters"`
	Collections   Permission `json:"collections" yaml:"collections"`
	Activities    Permission `json:"activities" yaml:"activities"`
	Roles         Permission `json:"roles" yaml:"roles"`
}

// For returns the permission block for the resource type.
func (r Rights) For(rt ResourceType) Permission {
	switch rt {
	case ResourceCourses:
		return r.Courses
	case ResourceUsers:
		return r.Users
	case ResourceUsergroups:
		return r.Usergroups
	case ResourceOrganizations:
		return r.Organizations
	case ResourceChapters:
		return r.Chapters
	case ResourceCollections:
		return r.Collections
	case ResourceActivities:
		return r.Activities
	case ResourceRoles:
		return r.Roles
	default:
		return Permission{}
	}
}

// Authorship ranks a user's relationship to a resource they helped build.
type Authorship string

const (
	AuthorshipCreator     Authorship = "CREATOR"
	AuthorshipMaintainer  Authorship = "MAINTAINER"
	AuthorshipContributor Authorship = "CONTRIBUTOR"
	AuthorshipReporter    Authorship = "REPORTER"
)

// AuthorshipStatus gates whether an authorship row is in effect.
type AuthorshipStatus string

const (
	AuthorshipActive   AuthorshipStatus = "ACTIVE"
	AuthorshipPending  AuthorshipStatus = "PENDING"
	AuthorshipInactive AuthorshipStatus = "INACTIVE"
)

// ResourceAuthor links a user to a resource they author.
type ResourceAuthor struct {
	ID           int64
	ResourceUUID string
	UserID       int64
	Authorship   Authorship
	Status       AuthorshipStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Grants reports whether the authorship row confers full access to the
// resource. Reporters and non-active rows grant nothing.
func (a ResourceAuthor) Grants() bool {
	if a.Status != AuthorshipActive {
		return false
	}
	switch a.Authorship {
	case AuthorshipCreator, AuthorshipMaintainer, AuthorshipContributor:
		return true
	default:
		return false
	}
}

// RoleGrant pairs a role id with its rights matrix.
type RoleGrant struct {
	RoleID int64
	Rights Rights
}

// ResourceScope records which organization a resource belongs to and
// whether it is publicly readable.
type ResourceScope struct {
	OrgID  int64
	Public bool
}
