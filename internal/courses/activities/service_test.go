package activities

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

type activityLink struct {
	chapterID  int64
	activityID int64
	position   int
}

type memoryRepo struct {
	nextID     int64
	chapters   map[int64]ChapterRef
	courses    map[int64]string
	activities map[int64]Activity
	links      []activityLink
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		chapters:   map[int64]ChapterRef{1: {ID: 1, CourseID: 1, OrgID: 1}},
		courses:    map[int64]string{1: "course_main"},
		activities: make(map[int64]Activity),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) ChapterRef(ctx context.Context, chapterID int64) (ChapterRef, error) {
	ref, ok := r.chapters[chapterID]
	if !ok {
		return ChapterRef{}, shared.ErrNotFound
	}
	return ref, nil
}

func (r *memoryRepo) CourseUUIDByID(ctx context.Context, courseID int64) (string, error) {
	courseUUID, ok := r.courses[courseID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return courseUUID, nil
}

func (r *memoryRepo) Create(ctx context.Context, activity Activity) (int64, error) {
	r.nextID++
	activity.ID = r.nextID
	if activity.Content == nil {
		activity.Content = map[string]any{}
	}
	r.activities[activity.ID] = activity
	return activity.ID, nil
}

func (r *memoryRepo) GetByUUID(ctx context.Context, activityUUID string) (*Activity, error) {
	for _, a := range r.activities {
		if a.ActivityUUID == activityUUID {
			out := a
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (*Activity, error) {
	a, ok := r.activities[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := a
	return &out, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, updates map[string]any) error {
	a, ok := r.activities[id]
	if !ok {
		return shared.ErrNotFound
	}
	for col, v := range updates {
		switch col {
		case "name":
			a.Name = v.(string)
		case "activity_type":
			a.ActivityType = ActivityType(v.(string))
		case "activity_sub_type":
			a.ActivitySubType = ActivitySubType(v.(string))
		case "content":
			a.Content = v.(map[string]any)
		case "details":
			a.Details = v.(map[string]any)
		case "published":
			a.Published = v.(bool)
		}
	}
	r.activities[id] = a
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.activities[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.activities, id)
	kept := r.links[:0]
	for _, link := range r.links {
		if link.activityID != id {
			kept = append(kept, link)
		}
	}
	r.links = kept
	return nil
}

func (r *memoryRepo) ListForChapter(ctx context.Context, chapterID int64, includeUnpublished bool) ([]Activity, error) {
	var links []activityLink
	for _, link := range r.links {
		if link.chapterID == chapterID {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].position < links[j].position })

	var items []Activity
	for _, link := range links {
		a, ok := r.activities[link.activityID]
		if !ok {
			continue
		}
		if !a.Published && !includeUnpublished {
			continue
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *memoryRepo) MaxPosition(ctx context.Context, chapterID int64) (int, error) {
	max := -1
	for _, link := range r.links {
		if link.chapterID == chapterID && link.position > max {
			max = link.position
		}
	}
	return max, nil
}

func (r *memoryRepo) LinkToChapter(ctx context.Context, chapterID, activityID, courseID, orgID int64, position int) error {
	r.links = append(r.links, activityLink{chapterID: chapterID, activityID: activityID, position: position})
	return nil
}

type stubAccess struct {
	repo    *memoryRepo
	authors map[string][]int64
	public  map[string]bool
}

func (s *stubAccess) AuthorshipFor(ctx context.Context, resourceUUID string, userID int64) (rbac.ResourceAuthor, error) {
	for _, id := range s.authors[resourceUUID] {
		if id == userID {
			return rbac.ResourceAuthor{ResourceUUID: resourceUUID, UserID: userID, Authorship: rbac.AuthorshipCreator, Status: rbac.AuthorshipActive}, nil
		}
	}
	return rbac.ResourceAuthor{}, shared.ErrNotFound
}

func (s *stubAccess) RoleGrants(ctx context.Context, userID, orgID int64) ([]rbac.RoleGrant, error) {
	return nil, nil
}

func (s *stubAccess) IsAdmin(ctx context.Context, userID, orgID int64) (bool, error) {
	return false, nil
}

func (s *stubAccess) ResourceScope(ctx context.Context, rt rbac.ResourceType, resourceUUID string) (rbac.ResourceScope, error) {
	for _, courseUUID := range s.repo.courses {
		if courseUUID == resourceUUID {
			return rbac.ResourceScope{OrgID: 1, Public: s.public[resourceUUID]}, nil
		}
	}
	return rbac.ResourceScope{}, shared.ErrNotFound
}

func newActivityService(repo *memoryRepo, access *stubAccess) *Service {
	return NewService(repo, rbac.NewResolver(access, nil), nil)
}

func authorAccess(repo *memoryRepo, userID int64) *stubAccess {
	return &stubAccess{
		repo:    repo,
		authors: map[string][]int64{"course_main": {userID}},
		public:  map[string]bool{},
	}
}

func seedActivity(repo *memoryRepo, chapterID int64, name string, published bool) Activity {
	repo.nextID++
	a := Activity{
		ID:           repo.nextID,
		ActivityUUID: fmt.Sprintf("activity_seed_%d", repo.nextID),
		OrgID:        1,
		CourseID:     1,
		Name:         name,
		ActivityType: TypeDynamic,
		Content:      map[string]any{},
		Published:    published,
	}
	repo.activities[a.ID] = a
	max := -1
	for _, link := range repo.links {
		if link.chapterID == chapterID && link.position > max {
			max = link.position
		}
	}
	repo.links = append(repo.links, activityLink{chapterID: chapterID, activityID: a.ID, position: max + 1})
	return a
}

func TestCreateAppendsToChapter(t *testing.T) {
	repo := newMemoryRepo()
	svc := newActivityService(repo, authorAccess(repo, 1))
	author := shared.Principal{UserID: 1}

	first, err := svc.Create(context.Background(), author, CreateActivityRequest{
		ChapterID:       1,
		Name:            "Intro video",
		ActivityType:    TypeVideo,
		ActivitySubType: SubTypeVideoYouTube,
		Content:         map[string]any{"uri": "https://youtu.be/x"},
	})
	require.NoError(t, err)
	require.Regexp(t, "^activity_", first.ActivityUUID)
	require.Equal(t, TypeVideo, first.ActivityType)

	second, err := svc.Create(context.Background(), author, CreateActivityRequest{ChapterID: 1, Name: "Notes"})
	require.NoError(t, err)

	positions := map[int64]int{}
	for _, link := range repo.links {
		positions[link.activityID] = link.position
	}
	require.Equal(t, 0, positions[first.ID])
	require.Equal(t, 1, positions[second.ID])
}

func TestCreateDefaultsToCustomType(t *testing.T) {
	repo := newMemoryRepo()
	svc := newActivityService(repo, authorAccess(repo, 1))

	activity, err := svc.Create(context.Background(), shared.Principal{UserID: 1}, CreateActivityRequest{ChapterID: 1, Name: "Blank"})
	require.NoError(t, err)
	require.Equal(t, TypeCustom, activity.ActivityType)
	require.Equal(t, SubTypeCustom, activity.ActivitySubType)
	require.NotNil(t, activity.Content)
}

func TestCreateUnknownChapter(t *testing.T) {
	repo := newMemoryRepo()
	svc := newActivityService(repo, authorAccess(repo, 1))

	_, err := svc.Create(context.Background(), shared.Principal{UserID: 1}, CreateActivityRequest{ChapterID: 42, Name: "Lost"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGetAuthorizesAgainstParentCourse(t *testing.T) {
	repo := newMemoryRepo()
	access := authorAccess(repo, 1)
	svc := newActivityService(repo, access)
	a := seedActivity(repo, 1, "Lesson", true)

	_, err := svc.Get(context.Background(), shared.Anonymous(), a.ActivityUUID)
	require.ErrorIs(t, err, shared.ErrNotAuthenticated)

	_, err = svc.Get(context.Background(), shared.Principal{UserID: 9}, a.ActivityUUID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	got, err := svc.Get(context.Background(), shared.Principal{UserID: 1}, a.ActivityUUID)
	require.NoError(t, err)
	require.Equal(t, "Lesson", got.Name)

	access.public["course_main"] = true
	got, err = svc.Get(context.Background(), shared.Anonymous(), a.ActivityUUID)
	require.NoError(t, err)
	require.Equal(t, a.ID, got.ID)
}

func TestUpdatePatchesProvidedFields(t *testing.T) {
	repo := newMemoryRepo()
	svc := newActivityService(repo, authorAccess(repo, 1))
	a := seedActivity(repo, 1, "Draft", false)

	published := true
	content := map[string]any{"blocks": []any{"p1"}}
	updated, err := svc.Update(context.Background(), shared.Principal{UserID: 1}, a.ActivityUUID, UpdateActivityRequest{
		Published: &published,
		Content:   content,
	})
	require.NoError(t, err)
	require.True(t, updated.Published)
	require.Equal(t, content, updated.Content)
	require.Equal(t, "Draft", updated.Name)
}

func TestListForChapterFiltersUnpublished(t *testing.T) {
	repo := newMemoryRepo()
	access := authorAccess(repo, 1)
	access.public["course_main"] = true
	svc := newActivityService(repo, access)

	seedActivity(repo, 1, "Visible", true)
	seedActivity(repo, 1, "Hidden", false)

	items, err := svc.ListForChapter(context.Background(), shared.Anonymous(), 1, false)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Visible", items[0].Name)

	items, err = svc.ListForChapter(context.Background(), shared.Principal{UserID: 1}, 1, true)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestDeleteRemovesActivityAndLink(t *testing.T) {
	repo := newMemoryRepo()
	svc := newActivityService(repo, authorAccess(repo, 1))
	a := seedActivity(repo, 1, "Doomed", true)

	require.ErrorIs(t, svc.Delete(context.Background(), shared.Principal{UserID: 9}, a.ActivityUUID), shared.ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), shared.Principal{UserID: 1}, a.ActivityUUID))
	require.Empty(t, repo.links)
	_, err := repo.GetByUUID(context.Background(), a.ActivityUUID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
