package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atheneum-lms/atheneum/internal/collections"
	"github.com/atheneum-lms/atheneum/internal/courses"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

type stubCourses struct {
	items []courses.Course
	err   error
	query string
}

func (s *stubCourses) ListByOrgSlug(ctx context.Context, p shared.Principal, orgSlug, query string, page, perPage int) ([]courses.Course, *shared.Pagination, error) {
	s.query = query
	if s.err != nil {
		return nil, nil, s.err
	}
	pg := shared.NewPagination(page, perPage, len(s.items))
	return s.items, &pg, nil
}

type stubCollections struct {
	items []collections.Collection
}

func (s *stubCollections) ListByOrgSlug(ctx context.Context, p shared.Principal, orgSlug, query string, page, perPage int) ([]collections.Collection, shared.Pagination, error) {
	return s.items, shared.NewPagination(page, perPage, len(s.items)), nil
}

type memoryRepo struct {
	orgSlugs map[string]int64
	users    []UserResult
}

func (r *memoryRepo) SearchUsers(ctx context.Context, orgID int64, query string, limit, offset int) ([]UserResult, error) {
	var items []UserResult
	for _, u := range r.users {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(query)) {
			items = append(items, u)
		}
	}
	return items, nil
}

func (r *memoryRepo) OrgIDBySlug(ctx context.Context, slug string) (int64, error) {
	id, ok := r.orgSlugs[slug]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return id, nil
}

func TestAcrossOrgMergesSegments(t *testing.T) {
	courseStub := &stubCourses{items: []courses.Course{{ID: 1, Name: "Go basics"}}}
	collectionStub := &stubCollections{items: []collections.Collection{{ID: 2, Name: "Go track"}}}
	repo := &memoryRepo{
		orgSlugs: map[string]int64{"acme": 1},
		users:    []UserResult{{ID: 3, Username: "gopher"}},
	}
	svc := NewService(courseStub, collectionStub, repo, nil)

	result, err := svc.AcrossOrg(context.Background(), shared.Principal{UserID: 7}, "acme", "go", 1, 10)
	require.NoError(t, err)
	require.Len(t, result.Courses, 1)
	require.Len(t, result.Collections, 1)
	require.Len(t, result.Users, 1)
	require.Equal(t, "go", courseStub.query)
}

func TestAcrossOrgUnknownSlugIsEmpty(t *testing.T) {
	svc := NewService(&stubCourses{}, &stubCollections{}, &memoryRepo{orgSlugs: map[string]int64{}}, nil)

	result, err := svc.AcrossOrg(context.Background(), shared.Principal{UserID: 7}, "ghost", "go", 1, 10)
	require.NoError(t, err)
	require.Empty(t, result.Courses)
	require.Empty(t, result.Collections)
	require.Empty(t, result.Users)
}

func TestAcrossOrgHidesUsersFromAnonymous(t *testing.T) {
	repo := &memoryRepo{
		orgSlugs: map[string]int64{"acme": 1},
		users:    []UserResult{{ID: 3, Username: "gopher"}},
	}
	svc := NewService(&stubCourses{}, &stubCollections{}, repo, nil)

	result, err := svc.AcrossOrg(context.Background(), shared.Anonymous(), "acme", "go", 1, 10)
	require.NoError(t, err)
	require.Empty(t, result.Users)
}

func TestAcrossOrgPropagatesSegmentErrors(t *testing.T) {
	courseStub := &stubCourses{err: errors.New("courses unavailable")}
	repo := &memoryRepo{orgSlugs: map[string]int64{"acme": 1}}
	svc := NewService(courseStub, &stubCollections{}, repo, nil)

	_, err := svc.AcrossOrg(context.Background(), shared.Principal{UserID: 7}, "acme", "go", 1, 10)
	require.ErrorContains(t, err, "courses unavailable")
}
