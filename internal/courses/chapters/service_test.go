package chapters

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

type memoryRepo struct {
	nextChapterID int64
	nextLinkID    int64
	courses       map[int64]CourseRef
	chapters      map[int64]Chapter
	links         map[int64]ChapterLink
	activityLinks map[int64]ActivityLink
	activities    map[int64]ActivitySummary
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		courses:       map[int64]CourseRef{1: {ID: 1, CourseUUID: "course_main", OrgID: 1}},
		chapters:      make(map[int64]Chapter),
		links:         make(map[int64]ChapterLink),
		activityLinks: make(map[int64]ActivityLink),
		activities:    make(map[int64]ActivitySummary),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) CourseRefByID(ctx context.Context, courseID int64) (CourseRef, error) {
	ref, ok := r.courses[courseID]
	if !ok {
		return CourseRef{}, shared.ErrNotFound
	}
	return ref, nil
}

func (r *memoryRepo) CourseRefByUUID(ctx context.Context, courseUUID string) (CourseRef, error) {
	for _, ref := range r.courses {
		if ref.CourseUUID == courseUUID {
			return ref, nil
		}
	}
	return CourseRef{}, shared.ErrNotFound
}

func (r *memoryRepo) Create(ctx context.Context, chapter Chapter) (int64, error) {
	r.nextChapterID++
	chapter.ID = r.nextChapterID
	r.chapters[chapter.ID] = chapter
	return chapter.ID, nil
}

func (r *memoryRepo) GetByUUID(ctx context.Context, chapterUUID string) (*Chapter, error) {
	for _, ch := range r.chapters {
		if ch.ChapterUUID == chapterUUID {
			out := ch
			for _, link := range r.links {
				if link.ChapterID == ch.ID {
					out.Position = link.Position
				}
			}
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) Update(ctx context.Context, id int64, updates map[string]any) error {
	ch, ok := r.chapters[id]
	if !ok {
		return shared.ErrNotFound
	}
	for col, v := range updates {
		switch col {
		case "name":
			ch.Name = v.(string)
		case "description":
			ch.Description = v.(string)
		}
	}
	r.chapters[id] = ch
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.chapters[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.chapters, id)
	for linkID, link := range r.links {
		if link.ChapterID == id {
			delete(r.links, linkID)
		}
	}
	for linkID, link := range r.activityLinks {
		if link.ChapterID == id {
			delete(r.activityLinks, linkID)
		}
	}
	return nil
}

func (r *memoryRepo) ListForCourse(ctx context.Context, courseID int64) ([]Chapter, error) {
	var links []ChapterLink
	for _, link := range r.links {
		links = append(links, link)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Position < links[j].Position })

	var items []Chapter
	for _, link := range links {
		ch, ok := r.chapters[link.ChapterID]
		if !ok || ch.CourseID != courseID {
			continue
		}
		ch.Position = link.Position
		items = append(items, ch)
	}
	return items, nil
}

func (r *memoryRepo) ActivitiesForChapters(ctx context.Context, chapterIDs []int64, includeUnpublished bool) (map[int64][]ActivitySummary, error) {
	wanted := make(map[int64]bool, len(chapterIDs))
	for _, id := range chapterIDs {
		wanted[id] = true
	}
	result := make(map[int64][]ActivitySummary)
	for _, link := range r.activityLinks {
		if !wanted[link.ChapterID] {
			continue
		}
		activity, ok := r.activities[link.ActivityID]
		if !ok {
			continue
		}
		if !activity.Published && !includeUnpublished {
			continue
		}
		activity.Position = link.Position
		result[link.ChapterID] = append(result[link.ChapterID], activity)
	}
	for id := range result {
		rows := result[id]
		sort.Slice(rows, func(i, j int) bool { return rows[i].Position < rows[j].Position })
		result[id] = rows
	}
	return result, nil
}

func (r *memoryRepo) MaxPosition(ctx context.Context, courseID int64) (int, error) {
	max := -1
	for _, link := range r.links {
		if ch, ok := r.chapters[link.ChapterID]; ok && ch.CourseID == courseID && link.Position > max {
			max = link.Position
		}
	}
	return max, nil
}

func (r *memoryRepo) LinkChapter(ctx context.Context, courseID, chapterID, orgID int64, position int) error {
	r.nextLinkID++
	r.links[r.nextLinkID] = ChapterLink{ID: r.nextLinkID, ChapterID: chapterID, Position: position}
	return nil
}

func (r *memoryRepo) CourseLinks(ctx context.Context, courseID int64) ([]ChapterLink, error) {
	var links []ChapterLink
	for _, link := range r.links {
		if ch, ok := r.chapters[link.ChapterID]; ok && ch.CourseID == courseID {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Position < links[j].Position })
	return links, nil
}

func (r *memoryRepo) UpdateLinkPosition(ctx context.Context, linkID int64, position int) error {
	link, ok := r.links[linkID]
	if !ok {
		return shared.ErrNotFound
	}
	link.Position = position
	r.links[linkID] = link
	return nil
}

func (r *memoryRepo) DeleteLink(ctx context.Context, linkID int64) error {
	delete(r.links, linkID)
	return nil
}

func (r *memoryRepo) ActivityLinks(ctx context.Context, courseID int64) ([]ActivityLink, error) {
	var links []ActivityLink
	for _, link := range r.activityLinks {
		if ch, ok := r.chapters[link.ChapterID]; ok && ch.CourseID == courseID {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	return links, nil
}

func (r *memoryRepo) LinkActivity(ctx context.Context, courseID, orgID, chapterID, activityID int64, position int) error {
	r.nextLinkID++
	r.activityLinks[r.nextLinkID] = ActivityLink{ID: r.nextLinkID, ChapterID: chapterID, ActivityID: activityID, Position: position}
	return nil
}

func (r *memoryRepo) UpdateActivityLinkPosition(ctx context.Context, linkID int64, position int) error {
	link, ok := r.activityLinks[linkID]
	if !ok {
		return shared.ErrNotFound
	}
	link.Position = position
	r.activityLinks[linkID] = link
	return nil
}

func (r *memoryRepo) DeleteActivityLink(ctx context.Context, linkID int64) error {
	delete(r.activityLinks, linkID)
	return nil
}

// stubAccess resolves scopes from the fake repo and authorship from a
// plain allow-list.
type stubAccess struct {
	repo    *memoryRepo
	authors map[string][]int64
	public  map[string]bool
	grants  map[int64][]rbac.RoleGrant
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
	return s.grants[userID], nil
}

func (s *stubAccess) IsAdmin(ctx context.Context, userID, orgID int64) (bool, error) {
	return false, nil
}

func (s *stubAccess) ResourceScope(ctx context.Context, rt rbac.ResourceType, resourceUUID string) (rbac.ResourceScope, error) {
	for _, ref := range s.repo.courses {
		if ref.CourseUUID == resourceUUID {
			return rbac.ResourceScope{OrgID: ref.OrgID, Public: s.public[resourceUUID]}, nil
		}
	}
	for _, ch := range s.repo.chapters {
		if ch.ChapterUUID == resourceUUID {
			return rbac.ResourceScope{OrgID: ch.OrgID}, nil
		}
	}
	return rbac.ResourceScope{}, shared.ErrNotFound
}

func newChapterService(repo *memoryRepo, access *stubAccess) *Service {
	return NewService(repo, rbac.NewResolver(access, nil), nil)
}

func seedChapter(repo *memoryRepo, name string, position int) Chapter {
	repo.nextChapterID++
	ch := Chapter{
		ID:          repo.nextChapterID,
		ChapterUUID: fmt.Sprintf("chapter_%s", strings.ToLower(name)),
		CourseID:    1,
		OrgID:       1,
		Name:        name,
	}
	repo.chapters[ch.ID] = ch
	repo.nextLinkID++
	repo.links[repo.nextLinkID] = ChapterLink{ID: repo.nextLinkID, ChapterID: ch.ID, Position: position}
	return ch
}

func seedActivity(repo *memoryRepo, id, chapterID int64, published bool, position int) {
	repo.activities[id] = ActivitySummary{
		ID:           id,
		ActivityUUID: fmt.Sprintf("activity_%d", id),
		Name:         fmt.Sprintf("Activity %d", id),
		Published:    published,
	}
	repo.nextLinkID++
	repo.activityLinks[repo.nextLinkID] = ActivityLink{ID: repo.nextLinkID, ChapterID: chapterID, ActivityID: id, Position: position}
}

func courseAuthorAccess(repo *memoryRepo, userID int64) *stubAccess {
	return &stubAccess{
		repo:    repo,
		authors: map[string][]int64{"course_main": {userID}},
		public:  map[string]bool{},
		grants:  map[int64][]rbac.RoleGrant{},
	}
}

func TestCreateAppendsAtEnd(t *testing.T) {
	repo := newMemoryRepo()
	svc := newChapterService(repo, courseAuthorAccess(repo, 1))
	author := shared.Principal{UserID: 1}

	first, err := svc.Create(context.Background(), author, CreateChapterRequest{CourseID: 1, Name: "Basics"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(first.ChapterUUID, "chapter_"))
	require.Equal(t, 0, first.Position)

	second, err := svc.Create(context.Background(), author, CreateChapterRequest{CourseID: 1, Name: "Advanced"})
	require.NoError(t, err)
	require.Equal(t, 1, second.Position)

	_, err = svc.Create(context.Background(), shared.Anonymous(), CreateChapterRequest{CourseID: 1, Name: "Nope"})
	require.ErrorIs(t, err, shared.ErrNotAuthenticated)
}

func TestReorderReconcilesLinks(t *testing.T) {
	repo := newMemoryRepo()
	svc := newChapterService(repo, courseAuthorAccess(repo, 1))
	author := shared.Principal{UserID: 1}

	a := seedChapter(repo, "A", 0)
	b := seedChapter(repo, "B", 1)
	c := seedChapter(repo, "C", 2)
	seedActivity(repo, 10, a.ID, true, 0)
	seedActivity(repo, 11, a.ID, true, 1)

	// Submit [C, A] with only activity 11 remaining in A: B is
	// unlinked, C moves to the front, activity 10 is unlinked.
	err := svc.Reorder(context.Background(), author, "course_main", ReorderRequest{
		ChapterOrder: []ChapterOrder{
			{ChapterID: c.ID},
			{ChapterID: a.ID, ActivityOrder: []ActivityOrder{{ActivityID: 11}}},
		},
	})
	require.NoError(t, err)

	positions := map[int64]int{}
	for _, link := range repo.links {
		positions[link.ChapterID] = link.Position
	}
	require.Equal(t, map[int64]int{c.ID: 0, a.ID: 1}, positions)
	_, linkedB := positions[b.ID]
	require.False(t, linkedB)

	var activityIDs []int64
	for _, link := range repo.activityLinks {
		activityIDs = append(activityIDs, link.ActivityID)
		require.Equal(t, 0, link.Position)
		require.Equal(t, a.ID, link.ChapterID)
	}
	require.Equal(t, []int64{11}, activityIDs)
}

func TestReorderMovesActivityAcrossChapters(t *testing.T) {
	repo := newMemoryRepo()
	svc := newChapterService(repo, courseAuthorAccess(repo, 1))
	author := shared.Principal{UserID: 1}

	a := seedChapter(repo, "A", 0)
	b := seedChapter(repo, "B", 1)
	seedActivity(repo, 10, a.ID, true, 0)

	err := svc.Reorder(context.Background(), author, "course_main", ReorderRequest{
		ChapterOrder: []ChapterOrder{
			{ChapterID: a.ID},
			{ChapterID: b.ID, ActivityOrder: []ActivityOrder{{ActivityID: 10}}},
		},
	})
	require.NoError(t, err)

	require.Len(t, repo.activityLinks, 1)
	for _, link := range repo.activityLinks {
		require.Equal(t, b.ID, link.ChapterID)
		require.Equal(t, int64(10), link.ActivityID)
		require.Equal(t, 0, link.Position)
	}
}

func TestReorderRequiresCourseRights(t *testing.T) {
	repo := newMemoryRepo()
	svc := newChapterService(repo, courseAuthorAccess(repo, 1))

	seedChapter(repo, "A", 0)
	err := svc.Reorder(context.Background(), shared.Principal{UserID: 9}, "course_main", ReorderRequest{})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestUpdateUsesChapterRights(t *testing.T) {
	repo := newMemoryRepo()
	access := &stubAccess{
		repo:    repo,
		authors: map[string][]int64{},
		public:  map[string]bool{},
		grants: map[int64][]rbac.RoleGrant{
			2: {{RoleID: rbac.RoleInstructorID, Rights: rbac.Rights{Chapters: rbac.Permission{Update: true}}}},
		},
	}
	svc := newChapterService(repo, access)
	ch := seedChapter(repo, "Basics", 0)

	name := "Fundamentals"
	_, err := svc.Update(context.Background(), shared.Principal{UserID: 9}, ch.ChapterUUID, UpdateChapterRequest{Name: &name})
	require.ErrorIs(t, err, shared.ErrForbidden)

	updated, err := svc.Update(context.Background(), shared.Principal{UserID: 2}, ch.ChapterUUID, UpdateChapterRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Fundamentals", updated.Name)
}

func TestListForCourseFiltersUnpublished(t *testing.T) {
	repo := newMemoryRepo()
	access := courseAuthorAccess(repo, 1)
	access.public["course_main"] = true
	svc := newChapterService(repo, access)

	a := seedChapter(repo, "A", 0)
	b := seedChapter(repo, "B", 1)
	seedActivity(repo, 10, a.ID, true, 0)
	seedActivity(repo, 11, a.ID, false, 1)
	seedActivity(repo, 12, b.ID, true, 0)

	items, err := svc.ListForCourse(context.Background(), shared.Anonymous(), "course_main", false)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "A", items[0].Name)
	require.Len(t, items[0].Activities, 1)
	require.Equal(t, int64(10), items[0].Activities[0].ID)
	require.Len(t, items[1].Activities, 1)

	items, err = svc.ListForCourse(context.Background(), shared.Principal{UserID: 1}, "course_main", true)
	require.NoError(t, err)
	require.Len(t, items[0].Activities, 2)
}

func TestDeleteRemovesChapterAndLinks(t *testing.T) {
	repo := newMemoryRepo()
	access := &stubAccess{
		repo:    repo,
		authors: map[string][]int64{},
		public:  map[string]bool{},
		grants: map[int64][]rbac.RoleGrant{
			1: {{RoleID: rbac.RoleAdminID, Rights: rbac.Rights{Chapters: rbac.Permission{Delete: true}}}},
		},
	}
	svc := newChapterService(repo, access)

	ch := seedChapter(repo, "Doomed", 0)
	seedActivity(repo, 10, ch.ID, true, 0)

	require.NoError(t, svc.Delete(context.Background(), shared.Principal{UserID: 1}, ch.ChapterUUID))
	require.Empty(t, repo.links)
	require.Empty(t, repo.activityLinks)
	_, err := repo.GetByUUID(context.Background(), ch.ChapterUUID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
