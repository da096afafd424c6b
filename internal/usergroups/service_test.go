package usergroups

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

type membership struct {
	userID int64
	since  time.Time
}

type memoryRepo struct {
	nextID    int64
	groups    map[int64]UserGroup
	members   map[int64][]membership
	resources map[int64][]string
	orgUsers  map[int64][]int64
	orgUUIDs  map[int64]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		groups:    make(map[int64]UserGroup),
		members:   make(map[int64][]membership),
		resources: make(map[int64][]string),
		orgUsers:  map[int64][]int64{1: {1, 2, 3}},
		orgUUIDs:  map[int64]string{1: "org_acme"},
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) Create(ctx context.Context, group UserGroup) (int64, error) {
	r.nextID++
	group.ID = r.nextID
	r.groups[group.ID] = group
	return group.ID, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (*UserGroup, error) {
	g, ok := r.groups[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := g
	return &out, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, updates map[string]any) error {
	g, ok := r.groups[id]
	if !ok {
		return shared.ErrNotFound
	}
	for col, v := range updates {
		switch col {
		case "name":
			g.Name = v.(string)
		case "description":
			g.Description = v.(string)
		}
	}
	r.groups[id] = g
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.groups[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.groups, id)
	delete(r.members, id)
	delete(r.resources, id)
	return nil
}

func (r *memoryRepo) ListForOrg(ctx context.Context, orgID int64) ([]UserGroup, error) {
	var items []UserGroup
	for _, g := range r.groups {
		if g.OrgID == orgID {
			items = append(items, g)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func (r *memoryRepo) ListForResource(ctx context.Context, resourceUUID string) ([]UserGroup, error) {
	var items []UserGroup
	for groupID, uuids := range r.resources {
		for _, u := range uuids {
			if u == resourceUUID {
				items = append(items, r.groups[groupID])
			}
		}
	}
	return items, nil
}

func (r *memoryRepo) AddUsers(ctx context.Context, groupID, orgID int64, userIDs []int64) error {
	for _, userID := range userIDs {
		exists := false
		for _, m := range r.members[groupID] {
			if m.userID == userID {
				exists = true
			}
		}
		if !exists {
			r.members[groupID] = append(r.members[groupID], membership{userID: userID, since: time.Now()})
		}
	}
	return nil
}

func (r *memoryRepo) RemoveUsers(ctx context.Context, groupID int64, userIDs []int64) error {
	drop := make(map[int64]bool, len(userIDs))
	for _, id := range userIDs {
		drop[id] = true
	}
	kept := r.members[groupID][:0]
	for _, m := range r.members[groupID] {
		if !drop[m.userID] {
			kept = append(kept, m)
		}
	}
	r.members[groupID] = kept
	return nil
}

func (r *memoryRepo) Members(ctx context.Context, groupID int64) ([]Member, error) {
	var members []Member
	for _, m := range r.members[groupID] {
		members = append(members, Member{UserID: m.userID, Since: m.since})
	}
	return members, nil
}

func (r *memoryRepo) LinkResources(ctx context.Context, groupID, orgID int64, resourceUUIDs []string) error {
	for _, resourceUUID := range resourceUUIDs {
		exists := false
		for _, u := range r.resources[groupID] {
			if u == resourceUUID {
				exists = true
			}
		}
		if !exists {
			r.resources[groupID] = append(r.resources[groupID], resourceUUID)
		}
	}
	return nil
}

func (r *memoryRepo) UnlinkResources(ctx context.Context, groupID int64, resourceUUIDs []string) error {
	drop := make(map[string]bool, len(resourceUUIDs))
	for _, u := range resourceUUIDs {
		drop[u] = true
	}
	kept := r.resources[groupID][:0]
	for _, u := range r.resources[groupID] {
		if !drop[u] {
			kept = append(kept, u)
		}
	}
	r.resources[groupID] = kept
	return nil
}

func (r *memoryRepo) CountUsersInOrg(ctx context.Context, orgID int64, userIDs []int64) (int, error) {
	count := 0
	for _, userID := range userIDs {
		for _, member := range r.orgUsers[orgID] {
			if member == userID {
				count++
			}
		}
	}
	return count, nil
}

func (r *memoryRepo) OrgUUIDByID(ctx context.Context, orgID int64) (string, error) {
	orgUUID, ok := r.orgUUIDs[orgID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return orgUUID, nil
}

type stubAccess struct {
	repo   *memoryRepo
	grants map[int64][]rbac.RoleGrant
}

func (s *stubAccess) AuthorshipFor(ctx context.Context, resourceUUID string, userID int64) (rbac.ResourceAuthor, error) {
	return rbac.ResourceAuthor{}, shared.ErrNotFound
}

func (s *stubAccess) RoleGrants(ctx context.Context, userID, orgID int64) ([]rbac.RoleGrant, error) {
	return s.grants[userID], nil
}

func (s *stubAccess) IsAdmin(ctx context.Context, userID, orgID int64) (bool, error) {
	return false, nil
}

func (s *stubAccess) ResourceScope(ctx context.Context, rt rbac.ResourceType, resourceUUID string) (rbac.ResourceScope, error) {
	for _, g := range s.repo.groups {
		if g.UsergroupUUID == resourceUUID {
			return rbac.ResourceScope{OrgID: g.OrgID}, nil
		}
	}
	return rbac.ResourceScope{}, shared.ErrNotFound
}

func managerGrants() map[int64][]rbac.RoleGrant {
	return map[int64][]rbac.RoleGrant{
		1: {{RoleID: rbac.RoleMaintainerID, Rights: rbac.Rights{
			Usergroups: rbac.Permission{Create: true, Read: true, Update: true, Delete: true},
			Courses:    rbac.Permission{Read: true},
		}}},
	}
}

func newGroupService(repo *memoryRepo, grants map[int64][]rbac.RoleGrant) *Service {
	access := &stubAccess{repo: repo, grants: grants}
	return NewService(repo, rbac.NewResolver(access, nil), nil)
}

func TestCreateAndGet(t *testing.T) {
	repo := newMemoryRepo()
	svc := newGroupService(repo, managerGrants())
	manager := shared.Principal{UserID: 1}

	group, err := svc.Create(context.Background(), manager, CreateUserGroupRequest{OrgID: 1, Name: "Cohort 2026"})
	require.NoError(t, err)
	require.Regexp(t, "^usergroup_", group.UsergroupUUID)

	got, err := svc.Get(context.Background(), manager, group.ID)
	require.NoError(t, err)
	require.Equal(t, "Cohort 2026", got.Name)

	_, err = svc.Get(context.Background(), shared.Principal{UserID: 9}, group.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Create(context.Background(), manager, CreateUserGroupRequest{OrgID: 42, Name: "Ghost"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListForOrgRequiresGroupRights(t *testing.T) {
	repo := newMemoryRepo()
	svc := newGroupService(repo, managerGrants())
	manager := shared.Principal{UserID: 1}

	_, err := svc.Create(context.Background(), manager, CreateUserGroupRequest{OrgID: 1, Name: "Cohort A"})
	require.NoError(t, err)

	items, err := svc.ListForOrg(context.Background(), manager, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = svc.ListForOrg(context.Background(), shared.Principal{UserID: 9}, 1)
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.ListForOrg(context.Background(), shared.Anonymous(), 1)
	require.ErrorIs(t, err, shared.ErrNotAuthenticated)
}

func TestAddUsersChecksOrgMembership(t *testing.T) {
	repo := newMemoryRepo()
	svc := newGroupService(repo, managerGrants())
	manager := shared.Principal{UserID: 1}

	group, err := svc.Create(context.Background(), manager, CreateUserGroupRequest{OrgID: 1, Name: "Cohort A"})
	require.NoError(t, err)

	err = svc.AddUsers(context.Background(), manager, group.ID, MembersRequest{UserIDs: []int64{2, 99}})
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, svc.AddUsers(context.Background(), manager, group.ID, MembersRequest{UserIDs: []int64{2, 3}}))
	members, err := svc.Members(context.Background(), manager, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	// Re-adding an existing member is a no-op.
	require.NoError(t, svc.AddUsers(context.Background(), manager, group.ID, MembersRequest{UserIDs: []int64{2}}))
	members, err = svc.Members(context.Background(), manager, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	require.NoError(t, svc.RemoveUsers(context.Background(), manager, group.ID, MembersRequest{UserIDs: []int64{2}}))
	members, err = svc.Members(context.Background(), manager, group.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, int64(3), members[0].UserID)
}

func TestLinkResourcesValidatesUUIDs(t *testing.T) {
	repo := newMemoryRepo()
	svc := newGroupService(repo, managerGrants())
	manager := shared.Principal{UserID: 1}

	group, err := svc.Create(context.Background(), manager, CreateUserGroupRequest{OrgID: 1, Name: "Cohort A"})
	require.NoError(t, err)

	err = svc.LinkResources(context.Background(), manager, group.ID, ResourcesRequest{ResourceUUIDs: []string{"bogus"}})
	require.ErrorIs(t, err, shared.ErrConflict)

	require.NoError(t, svc.LinkResources(context.Background(), manager, group.ID, ResourcesRequest{ResourceUUIDs: []string{"course_x", "collection_y"}}))

	linked, err := svc.ListForResource(context.Background(), manager, "course_x")
	require.NoError(t, err)
	require.Len(t, linked, 1)
	require.Equal(t, group.ID, linked[0].ID)

	require.NoError(t, svc.UnlinkResources(context.Background(), manager, group.ID, ResourcesRequest{ResourceUUIDs: []string{"course_x"}}))
	require.Equal(t, []string{"collection_y"}, repo.resources[group.ID])
}

func TestManagementRequiresUpdateRights(t *testing.T) {
	repo := newMemoryRepo()
	svc := newGroupService(repo, managerGrants())
	manager := shared.Principal{UserID: 1}
	stranger := shared.Principal{UserID: 9}

	group, err := svc.Create(context.Background(), manager, CreateUserGroupRequest{OrgID: 1, Name: "Cohort A"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.AddUsers(context.Background(), stranger, group.ID, MembersRequest{UserIDs: []int64{2}}), shared.ErrForbidden)
	require.ErrorIs(t, svc.LinkResources(context.Background(), stranger, group.ID, ResourcesRequest{ResourceUUIDs: []string{"course_x"}}), shared.ErrForbidden)
	require.ErrorIs(t, svc.Delete(context.Background(), stranger, group.ID), shared.ErrForbidden)

	name := "Cohort B"
	updated, err := svc.Update(context.Background(), manager, group.ID, UpdateUserGroupRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Cohort B", updated.Name)

	require.NoError(t, svc.Delete(context.Background(), manager, group.ID))
	require.Empty(t, repo.groups)
}
