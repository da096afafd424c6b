package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/atheneum-lms/atheneum/internal/collections"
	"github.com/atheneum-lms/atheneum/internal/courses"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Result bundles the three search segments of one query.
type Result struct {
	Courses     []courses.Course         `json:"courses"`
	Collections []collections.Collection `json:"collections"`
	Users       []UserResult             `json:"users"`
}

// CourseSearcher is the slice of the courses service search needs.
type CourseSearcher interface {
	ListByOrgSlug(ctx context.Context, p shared.Principal, orgSlug, query string, page, perPage int) ([]courses.Course, *shared.Pagination, error)
}

// CollectionSearcher is the slice of the collections service search
// needs.
type CollectionSearcher interface {
	ListByOrgSlug(ctx context.Context, p shared.Principal, orgSlug, query string, page, perPage int) ([]collections.Collection, shared.Pagination, error)
}

// Service fans a query out over courses, collections and users of one
// organization. Course and collection visibility rules are enforced by
// their services; the user segment is restricted to signed-in callers.
type Service struct {
	courses     CourseSearcher
	collections CollectionSearcher
	repo        Repository
	logger      *slog.Logger
}

// NewService constructs the search service.
func NewService(courseSearcher CourseSearcher, collectionSearcher CollectionSearcher, repo Repository, logger *slog.Logger) *Service {
	return &Service{courses: courseSearcher, collections: collectionSearcher, repo: repo, logger: logger}
}

// AcrossOrg searches one organization. An unknown slug yields an empty
// result rather than an error.
func (s *Service) AcrossOrg(ctx context.Context, p shared.Principal, orgSlug, query string, page, perPage int) (*Result, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 50 {
		perPage = 10
	}
	query = strings.TrimSpace(query)

	result := &Result{
		Courses:     []courses.Course{},
		Collections: []collections.Collection{},
		Users:       []UserResult{},
	}

	orgID, err := s.repo.OrgIDBySlug(ctx, orgSlug)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return result, nil
		}
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, _, err := s.courses.ListByOrgSlug(ctx, p, orgSlug, query, page, perPage)
		if err != nil {
			return err
		}
		if items != nil {
			result.Courses = items
		}
		return nil
	})

	g.Go(func() error {
		items, _, err := s.collections.ListByOrgSlug(ctx, p, orgSlug, query, page, perPage)
		if err != nil {
			return err
		}
		if items != nil {
			result.Collections = items
		}
		return nil
	})

	if !p.IsAnonymous() {
		g.Go(func() error {
			items, err := s.repo.SearchUsers(ctx, orgID, query, perPage, (page-1)*perPage)
			if err != nil {
				return err
			}
			if items != nil {
				result.Users = items
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
