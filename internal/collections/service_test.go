package collections

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

type memoryRepo struct {
	nextID      int64
	collections map[int64]Collection
	links       map[int64][]int64
	orgCourses  map[int64][]CourseSummary
	orgSlugs    map[string]int64
	orgUUIDs    map[int64]string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		collections: make(map[int64]Collection),
		links:       make(map[int64][]int64),
		orgCourses: map[int64][]CourseSummary{
			1: {
				{ID: 10, CourseUUID: "course_a", Name: "Course A", Public: true},
				{ID: 11, CourseUUID: "course_b", Name: "Course B"},
			},
		},
		orgSlugs: map[string]int64{"acme": 1},
		orgUUIDs: map[int64]string{1: "org_acme"},
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) Create(ctx context.Context, collection Collection) (int64, error) {
	r.nextID++
	collection.ID = r.nextID
	r.collections[collection.ID] = collection
	return collection.ID, nil
}

func (r *memoryRepo) GetByUUID(ctx context.Context, collectionUUID string) (*Collection, error) {
	for _, c := range r.collections {
		if c.CollectionUUID == collectionUUID {
			out := c
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) Update(ctx context.Context, id int64, updates map[string]any) error {
	c, ok := r.collections[id]
	if !ok {
		return shared.ErrNotFound
	}
	for col, v := range updates {
		switch col {
		case "name":
			c.Name = v.(string)
		case "description":
			c.Description = v.(string)
		case "public":
			c.Public = v.(bool)
		}
	}
	r.collections[id] = c
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.collections[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.collections, id)
	delete(r.links, id)
	return nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Collection, int, error) {
	var matched []Collection
	for _, c := range r.collections {
		if c.OrgID != filter.OrgID {
			continue
		}
		if filter.Anonymous && !c.Public {
			continue
		}
		if filter.Query != "" &&
			!strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Query)) &&
			!strings.Contains(strings.ToLower(c.Description), strings.ToLower(filter.Query)) {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := len(matched)

	start := (filter.Page - 1) * filter.PerPage
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *memoryRepo) ReplaceCourses(ctx context.Context, collectionID, orgID int64, courseIDs []int64) error {
	r.links[collectionID] = append([]int64(nil), courseIDs...)
	return nil
}

func (r *memoryRepo) CoursesForCollections(ctx context.Context, collectionIDs []int64) (map[int64][]CourseSummary, error) {
	result := make(map[int64][]CourseSummary)
	for _, collectionID := range collectionIDs {
		for _, courseID := range r.links[collectionID] {
			for _, courses := range r.orgCourses {
				for _, course := range courses {
					if course.ID == courseID {
						result[collectionID] = append(result[collectionID], course)
					}
				}
			}
		}
	}
	return result, nil
}

func (r *memoryRepo) CountCoursesInOrg(ctx context.Context, orgID int64, courseIDs []int64) (int, error) {
	count := 0
	for _, courseID := range courseIDs {
		for _, course := range r.orgCourses[orgID] {
			if course.ID == courseID {
				count++
			}
		}
	}
	return count, nil
}

func (r *memoryRepo) OrgIDBySlug(ctx context.Context, slug string) (int64, error) {
	id, ok := r.orgSlugs[slug]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return id, nil
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
	for _, c := range s.repo.collections {
		if c.CollectionUUID == resourceUUID {
			return rbac.ResourceScope{OrgID: c.OrgID, Public: c.Public}, nil
		}
	}
	return rbac.ResourceScope{}, shared.ErrNotFound
}

func curatorGrants() map[int64][]rbac.RoleGrant {
	return map[int64][]rbac.RoleGrant{
		1: {{RoleID: rbac.RoleMaintainerID, Rights: rbac.Rights{
			Collections: rbac.Permission{Create: true, Read: true, Update: true, Delete: true},
		}}},
	}
}

func newCollectionService(repo *memoryRepo, grants map[int64][]rbac.RoleGrant) *Service {
	access := &stubAccess{repo: repo, grants: grants}
	return NewService(repo, rbac.NewResolver(access, nil), nil)
}

func TestCreateLinksCourses(t *testing.T) {
	repo := newMemoryRepo()
	svc := newCollectionService(repo, curatorGrants())
	curator := shared.Principal{UserID: 1}

	collection, err := svc.Create(context.Background(), curator, CreateCollectionRequest{
		OrgID:     1,
		Name:      "Getting started",
		Public:    true,
		CourseIDs: []int64{10, 11},
	})
	require.NoError(t, err)
	require.Regexp(t, "^collection_", collection.CollectionUUID)
	require.Len(t, collection.Courses, 2)

	_, err = svc.Create(context.Background(), curator, CreateCollectionRequest{OrgID: 99, Name: "Ghost org"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateRejectsForeignCourses(t *testing.T) {
	repo := newMemoryRepo()
	svc := newCollectionService(repo, curatorGrants())

	_, err := svc.Create(context.Background(), shared.Principal{UserID: 1}, CreateCollectionRequest{
		OrgID:     1,
		Name:      "Broken",
		CourseIDs: []int64{10, 999},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, repo.collections)
}

func TestGetPublicVisibility(t *testing.T) {
	repo := newMemoryRepo()
	svc := newCollectionService(repo, curatorGrants())
	curator := shared.Principal{UserID: 1}

	public, err := svc.Create(context.Background(), curator, CreateCollectionRequest{OrgID: 1, Name: "Open picks", Public: true})
	require.NoError(t, err)
	private, err := svc.Create(context.Background(), curator, CreateCollectionRequest{OrgID: 1, Name: "Internal picks"})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), shared.Anonymous(), public.CollectionUUID)
	require.NoError(t, err)
	require.Equal(t, "Open picks", got.Name)

	_, err = svc.Get(context.Background(), shared.Anonymous(), private.CollectionUUID)
	require.ErrorIs(t, err, shared.ErrNotAuthenticated)

	_, err = svc.Get(context.Background(), shared.Principal{UserID: 9}, private.CollectionUUID)
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestListByOrgSlugFiltersForAnonymous(t *testing.T) {
	repo := newMemoryRepo()
	svc := newCollectionService(repo, curatorGrants())
	curator := shared.Principal{UserID: 1}

	_, err := svc.Create(context.Background(), curator, CreateCollectionRequest{OrgID: 1, Name: "Open picks", Public: true, CourseIDs: []int64{10}})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), curator, CreateCollectionRequest{OrgID: 1, Name: "Internal picks"})
	require.NoError(t, err)

	items, pagination, err := svc.ListByOrgSlug(context.Background(), shared.Anonymous(), "acme", "", 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, 1, pagination.Total)
	require.Len(t, items[0].Courses, 1)

	items, pagination, err = svc.ListByOrgSlug(context.Background(), curator, "acme", "", 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, 2, pagination.Total)

	items, _, err = svc.ListByOrgSlug(context.Background(), curator, "acme", "internal", 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Internal picks", items[0].Name)

	_, _, err = svc.ListByOrgSlug(context.Background(), curator, "ghost", "", 1, 20)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateReplacesCourseLinks(t *testing.T) {
	repo := newMemoryRepo()
	svc := newCollectionService(repo, curatorGrants())
	curator := shared.Principal{UserID: 1}

	collection, err := svc.Create(context.Background(), curator, CreateCollectionRequest{OrgID: 1, Name: "Picks", CourseIDs: []int64{10, 11}})
	require.NoError(t, err)

	name := "Curated picks"
	updated, err := svc.Update(context.Background(), curator, collection.CollectionUUID, UpdateCollectionRequest{
		Name:      &name,
		CourseIDs: []int64{11},
	})
	require.NoError(t, err)
	require.Equal(t, "Curated picks", updated.Name)
	require.Len(t, updated.Courses, 1)
	require.Equal(t, int64(11), updated.Courses[0].ID)

	// An update without a course list leaves the links alone.
	public := true
	updated, err = svc.Update(context.Background(), curator, collection.CollectionUUID, UpdateCollectionRequest{Public: &public})
	require.NoError(t, err)
	require.True(t, updated.Public)
	require.Len(t, updated.Courses, 1)
}

func TestDeleteRequiresRights(t *testing.T) {
	repo := newMemoryRepo()
	svc := newCollectionService(repo, curatorGrants())
	curator := shared.Principal{UserID: 1}

	collection, err := svc.Create(context.Background(), curator, CreateCollectionRequest{OrgID: 1, Name: "Doomed"})
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(context.Background(), shared.Principal{UserID: 9}, collection.CollectionUUID), shared.ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), curator, collection.CollectionUUID))
	require.Empty(t, repo.collections)
}
