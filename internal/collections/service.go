package collections

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Service implements collection operations.
type Service struct {
	repo     Repository
	resolver *rbac.Resolver
	logger   *slog.Logger
}

// NewService constructs the collections service.
func NewService(repo Repository, resolver *rbac.Resolver, logger *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, logger: logger}
}

// Create inserts a collection and links the submitted courses in one
// transaction. Linked courses must belong to the same organization.
func (s *Service) Create(ctx context.Context, p shared.Principal, req CreateCollectionRequest) (*Collection, error) {
	if _, err := s.repo.OrgUUIDByID(ctx, req.OrgID); err != nil {
		return nil, fmt.Errorf("organization: %w", err)
	}
	if err := s.resolver.DecideCreate(ctx, p, rbac.ResourceCollections); err != nil {
		return nil, err
	}
	if err := s.verifyCourses(ctx, req.OrgID, req.CourseIDs); err != nil {
		return nil, err
	}

	collection := Collection{
		CollectionUUID: "collection_" + uuid.NewString(),
		OrgID:          req.OrgID,
		Name:           strings.TrimSpace(req.Name),
		Description:    strings.TrimSpace(req.Description),
		Public:         req.Public,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, collection)
		if err != nil {
			return err
		}
		collection.ID = id
		if len(req.CourseIDs) == 0 {
			return nil
		}
		return repo.ReplaceCourses(ctx, id, req.OrgID, req.CourseIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, p, collection.CollectionUUID)
}

// Get returns a collection with its courses. Public collections are
// readable by anyone.
func (s *Service) Get(ctx context.Context, p shared.Principal, collectionUUID string) (*Collection, error) {
	collection, err := s.repo.GetByUUID(ctx, collectionUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionRead, collection.CollectionUUID); err != nil {
		return nil, err
	}
	return s.withCourses(ctx, collection)
}

// ListByOrgSlug returns a page of an organization's collections,
// optionally filtered by a search query. Anonymous viewers only see
// public ones.
func (s *Service) ListByOrgSlug(ctx context.Context, p shared.Principal, orgSlug, query string, page, perPage int) ([]Collection, shared.Pagination, error) {
	orgID, err := s.repo.OrgIDBySlug(ctx, orgSlug)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("organization: %w", err)
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	items, total, err := s.repo.List(ctx, ListFilter{
		OrgID:     orgID,
		Query:     strings.TrimSpace(query),
		Anonymous: p.IsAnonymous(),
		Page:      page,
		PerPage:   perPage,
	})
	if err != nil {
		return nil, shared.Pagination{}, err
	}

	ids := make([]int64, len(items))
	for i, c := range items {
		ids[i] = c.ID
	}
	courses, err := s.repo.CoursesForCollections(ctx, ids)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	for i := range items {
		items[i].Courses = courses[items[i].ID]
		if items[i].Courses == nil {
			items[i].Courses = []CourseSummary{}
		}
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// Update patches the provided fields and, when a course list is
// submitted, replaces the linked set.
func (s *Service) Update(ctx context.Context, p shared.Principal, collectionUUID string, req UpdateCollectionRequest) (*Collection, error) {
	collection, err := s.repo.GetByUUID(ctx, collectionUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, collection.CollectionUUID); err != nil {
		return nil, err
	}
	if req.CourseIDs != nil {
		if err := s.verifyCourses(ctx, collection.OrgID, req.CourseIDs); err != nil {
			return nil, err
		}
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Public != nil {
		updates["public"] = *req.Public
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Update(ctx, collection.ID, updates); err != nil {
			return err
		}
		if req.CourseIDs != nil {
			return repo.ReplaceCourses(ctx, collection.ID, collection.OrgID, req.CourseIDs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, p, collectionUUID)
}

// Delete removes a collection and its course links.
func (s *Service) Delete(ctx context.Context, p shared.Principal, collectionUUID string) error {
	collection, err := s.repo.GetByUUID(ctx, collectionUUID)
	if err != nil {
		return err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionDelete, collection.CollectionUUID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, collection.ID)
}

func (s *Service) verifyCourses(ctx context.Context, orgID int64, courseIDs []int64) error {
	if len(courseIDs) == 0 {
		return nil
	}
	count, err := s.repo.CountCoursesInOrg(ctx, orgID, courseIDs)
	if err != nil {
		return err
	}
	if count != len(courseIDs) {
		return fmt.Errorf("%w: one or more courses do not exist in this organization", shared.ErrNotFound)
	}
	return nil
}

func (s *Service) withCourses(ctx context.Context, collection *Collection) (*Collection, error) {
	courses, err := s.repo.CoursesForCollections(ctx, []int64{collection.ID})
	if err != nil {
		return nil, err
	}
	collection.Courses = courses[collection.ID]
	if collection.Courses == nil {
		collection.Courses = []CourseSummary{}
	}
	return collection, nil
}
