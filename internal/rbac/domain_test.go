package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

func TestResourceTypeFromUUID(t *testing.T) {
	cases := []struct {
		uuid string
		want ResourceType
	}{
		{"course_3f9a", ResourceCourses},
		{"courseupdate_77b1", ResourceCourses},
		{"user_12cd", ResourceUsers},
		{"usergroup_881f", ResourceUsergroups},
		{"org_0a2e", ResourceOrganizations},
		{"chapter_45bb", ResourceChapters},
		{"collection_9c01", ResourceCollections},
		{"activity_6d7e", ResourceActivities},
		{"role_1b3c", ResourceRoles},
	}
	for _, tc := range cases {
		got, err := ResourceTypeFromUUID(tc.uuid)
		require.NoError(t, err, tc.uuid)
		require.Equal(t, tc.want, got, tc.uuid)
	}
}

func TestResourceTypeFromUUIDRejectsUnknown(t *testing.T) {
	for _, uuid := range []string{"", "noprefix", "widget_123", "_123"} {
		_, err := ResourceTypeFromUUID(uuid)
		require.ErrorIs(t, err, shared.ErrConflict, uuid)
	}
}

func TestPermissionAllows(t *testing.T) {
	p := Permission{Create: true, Read: true}
	require.True(t, p.Allows(ActionCreate))
	require.True(t, p.Allows(ActionRead))
	require.False(t, p.Allows(ActionUpdate))
	require.False(t, p.Allows(ActionDelete))
	require.False(t, Permission{}.Allows(ActionRead))
}

func TestRightsForSelectsBlock(t *testing.T) {
	rights := Rights{
		Courses: Permission{Update: true},
		Roles:   Permission{Delete: true},
	}
	require.True(t, rights.For(ResourceCourses).Allows(ActionUpdate))
	require.False(t, rights.For(ResourceCourses).Allows(ActionDelete))
	require.True(t, rights.For(ResourceRoles).Allows(ActionDelete))
	require.Equal(t, Permission{}, rights.For(ResourceType("unknown")))
}

func TestAuthorshipGrants(t *testing.T) {
	for _, a := range []Authorship{AuthorshipCreator, AuthorshipMaintainer, AuthorshipContributor} {
		require.True(t, ResourceAuthor{Authorship: a, Status: AuthorshipActive}.Grants(), string(a))
		require.False(t, ResourceAuthor{Authorship: a, Status: AuthorshipPending}.Grants(), string(a))
		require.False(t, ResourceAuthor{Authorship: a, Status: AuthorshipInactive}.Grants(), string(a))
	}
	require.False(t, ResourceAuthor{Authorship: AuthorshipReporter, Status: AuthorshipActive}.Grants())
}
