package courses

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
	"github.com/atheneum-lms/atheneum/internal/storage"
)

// Jobs enqueues background work triggered by course mutations.
type Jobs interface {
	EnqueueMediaCleanup(ctx context.Context, namespace, ownerUUID string) error
	EnqueueEmail(ctx context.Context, to, subject, body string) error
}

// Service implements course operations.
type Service struct {
	repo        Repository
	resolver    *rbac.Resolver
	store       storage.Store
	jobs        Jobs
	idempotency *shared.IdempotencyStore
	audit       *shared.AuditLogger
	logger      *slog.Logger
}

// NewService constructs the courses service. jobs, idempotency and
// audit may be nil.
func NewService(repo Repository, resolver *rbac.Resolver, store storage.Store, jobs Jobs, idem *shared.IdempotencyStore, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, store: store, jobs: jobs, idempotency: idem, audit: audit, logger: logger}
}

// Create inserts the course and its creator authorship row in one
// transaction. An optional thumbnail is stored first so the insert
// already carries the stored filename. idemKey, when non-empty, makes
// the call replay-safe.
func (s *Service) Create(ctx context.Context, p shared.Principal, req CreateCourseRequest, idemKey, thumbnailName string, thumbnail io.Reader) (*Course, error) {
	if err := s.resolver.DecideCreate(ctx, p, rbac.ResourceCourses); err != nil {
		return nil, err
	}
	if _, err := s.repo.OrgUUIDByID(ctx, req.OrgID); err != nil {
		return nil, fmt.Errorf("organization: %w", err)
	}

	course := Course{
		CourseUUID:         "course_" + uuid.NewString(),
		OrgID:              req.OrgID,
		Name:               strings.TrimSpace(req.Name),
		Description:        strings.TrimSpace(req.Description),
		About:              req.About,
		Learnings:          req.Learnings,
		Tags:               req.Tags,
		Public:             req.Public,
		OpenToContributors: req.OpenToContributors,
	}

	insertedKey := false
	if idemKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, "courses"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, fmt.Errorf("%w: course creation already processed", shared.ErrConflict)
			}
			return nil, err
		}
		insertedKey = true
	}

	if thumbnail != nil {
		stored, err := s.storeThumbnail(ctx, course.CourseUUID, thumbnailName, thumbnail)
		if err != nil {
			if insertedKey {
				_ = s.idempotency.Delete(ctx, idemKey)
			}
			return nil, err
		}
		course.ThumbnailImage = stored
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, course)
		if err != nil {
			return err
		}
		course.ID = id
		return repo.AddAuthor(ctx, course.CourseUUID, p.UserID, rbac.AuthorshipCreator, rbac.AuthorshipActive)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			OrgID:    course.OrgID,
			Action:   "course.create",
			Entity:   "courses",
			EntityID: course.CourseUUID,
		})
	}
	return s.withAuthors(ctx, &course)
}

// Get returns a course by UUID with its author list.
func (s *Service) Get(ctx context.Context, p shared.Principal, courseUUID string) (*Course, error) {
	course, err := s.repo.GetByUUID(ctx, courseUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionRead, course.CourseUUID); err != nil {
		return nil, err
	}
	return s.withAuthors(ctx, course)
}

// GetByID returns a course by numeric id with its author list.
func (s *Service) GetByID(ctx context.Context, p shared.Principal, id int64) (*Course, error) {
	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionRead, course.CourseUUID); err != nil {
		return nil, err
	}
	return s.withAuthors(ctx, course)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, p shared.Principal, courseUUID string, req UpdateCourseRequest) (*Course, error) {
	course, err := s.repo.GetByUUID(ctx, courseUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, course.CourseUUID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.About != nil {
		updates["about"] = *req.About
	}
	if req.Learnings != nil {
		updates["learnings"] = *req.Learnings
	}
	if req.Tags != nil {
		updates["tags"] = *req.Tags
	}
	if req.Public != nil {
		updates["public"] = *req.Public
	}
	if req.OpenToContributors != nil {
		updates["open_to_contributors"] = *req.OpenToContributors
	}
	if err := s.repo.Update(ctx, course.ID, updates); err != nil {
		return nil, err
	}

	fresh, err := s.repo.GetByID(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	return s.withAuthors(ctx, fresh)
}

// UpdateThumbnail stores a new thumbnail image and points the course at
// it.
func (s *Service) UpdateThumbnail(ctx context.Context, p shared.Principal, courseUUID, filename string, content io.Reader) (*Course, error) {
	course, err := s.repo.GetByUUID(ctx, courseUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, course.CourseUUID); err != nil {
		return nil, err
	}
	stored, err := s.storeThumbnail(ctx, course.CourseUUID, filename, content)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, course.ID, map[string]any{"thumbnail_image": stored}); err != nil {
		return nil, err
	}
	fresh, err := s.repo.GetByID(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	return s.withAuthors(ctx, fresh)
}

// Delete removes the course. Authorship rows, chapter and activity
// links go with it through cascading deletes; stored media is cleaned
// up asynchronously.
func (s *Service) Delete(ctx context.Context, p shared.Principal, courseUUID string) error {
	course, err := s.repo.GetByUUID(ctx, courseUUID)
	if err != nil {
		return err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionDelete, course.CourseUUID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, course.ID); err != nil {
		return err
	}
	if s.jobs != nil {
		if err := s.jobs.EnqueueMediaCleanup(ctx, string(storage.NamespaceCourses), course.CourseUUID); err != nil && s.logger != nil {
			s.logger.Warn("enqueue media cleanup", slog.String("course", course.CourseUUID), slog.Any("error", err))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			OrgID:    course.OrgID,
			Action:   "course.delete",
			Entity:   "courses",
			EntityID: course.CourseUUID,
		})
	}
	return nil
}

// ListByOrgSlug pages through the courses of an organization the
// caller is allowed to see. query optionally narrows by a substring
// match over name, description, about, learnings and tags.
func (s *Service) ListByOrgSlug(ctx context.Context, p shared.Principal, orgSlug, query string, page, perPage int) ([]Course, *shared.Pagination, error) {
	orgID, err := s.repo.OrgIDBySlug(ctx, orgSlug)
	if err != nil {
		return nil, nil, fmt.Errorf("organization: %w", err)
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	filter := ListFilter{OrgID: orgID, Query: strings.TrimSpace(query), Page: page, PerPage: perPage}
	if !p.IsAnonymous() {
		filter.UserID = p.UserID
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}

	uuids := make([]string, 0, len(items))
	for _, course := range items {
		uuids = append(uuids, course.CourseUUID)
	}
	authors, err := s.repo.AuthorsForCourses(ctx, uuids)
	if err != nil {
		return nil, nil, err
	}
	for i := range items {
		items[i].Authors = authors[items[i].CourseUUID]
	}

	pg := shared.NewPagination(page, perPage, total)
	return items, &pg, nil
}

// Apply files a contributor application on an open course. The row is
// created as CONTRIBUTOR with PENDING status and the course creator is
// notified by email.
func (s *Service) Apply(ctx context.Context, p shared.Principal, courseUUID string) error {
	if p.IsAnonymous() {
		return shared.ErrNotAuthenticated
	}
	course, err := s.repo.GetByUUID(ctx, courseUUID)
	if err != nil {
		return err
	}
	if !course.OpenToContributors {
		return fmt.Errorf("%w: course is not open to contributors", shared.ErrConflict)
	}
	if err := s.repo.AddAuthor(ctx, course.CourseUUID, p.UserID, rbac.AuthorshipContributor, rbac.AuthorshipPending); err != nil {
		return err
	}

	if s.jobs != nil {
		if to := s.creatorEmail(ctx, course.CourseUUID); to != "" {
			body := fmt.Sprintf("A new contributor applied to %q. Review the application in the course contributor settings.", course.Name)
			if err := s.jobs.EnqueueEmail(ctx, to, "New contributor application", body); err != nil && s.logger != nil {
				s.logger.Warn("enqueue contributor email", slog.Any("error", err))
			}
		}
	}
	return nil
}

// ListContributors returns every authorship row on the course.
func (s *Service) ListContributors(ctx context.Context, p shared.Principal, courseUUID string) ([]Author, error) {
	course, err := s.repo.GetByUUID(ctx, courseUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionRead, course.CourseUUID); err != nil {
		return nil, err
	}
	return s.repo.Authors(ctx, course.CourseUUID)
}

// UpdateContributor changes the authorship kind or status of a
// contributor. The creator row is immutable.
func (s *Service) UpdateContributor(ctx context.Context, p shared.Principal, courseUUID string, userID int64, req UpdateContributorRequest) (*Author, error) {
	course, err := s.repo.GetByUUID(ctx, courseUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, course.CourseUUID); err != nil {
		return nil, err
	}
	current, err := s.repo.Author(ctx, course.CourseUUID, userID)
	if err != nil {
		return nil, fmt.Errorf("contributor: %w", err)
	}
	if current.Authorship == rbac.AuthorshipCreator {
		return nil, fmt.Errorf("%w: cannot modify the role of the course creator", shared.ErrConflict)
	}
	if err := s.repo.UpdateAuthor(ctx, course.CourseUUID, userID, rbac.Authorship(req.Authorship), rbac.AuthorshipStatus(req.Status)); err != nil {
		return nil, err
	}
	return s.repo.Author(ctx, course.CourseUUID, userID)
}

// CreateCourseUpdate posts an announcement on the course. Announcement
// mutations are authorized against the parent course.
func (s *Service) CreateCourseUpdate(ctx context.Context, p shared.Principal, courseUUID string, req CreateCourseUpdateRequest) (*CourseUpdate, error) {
	course, err := s.repo.GetByUUID(ctx, courseUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, course.CourseUUID); err != nil {
		return nil, err
	}
	update := CourseUpdate{
		CourseUpdateUUID:   "courseupdate_" + uuid.NewString(),
		CourseID:           course.ID,
		OrgID:              course.OrgID,
		Title:              strings.TrimSpace(req.Title),
		Content:            req.Content,
		LinkedActivityUUID: req.LinkedActivityUUID,
	}
	id, err := s.repo.CreateCourseUpdate(ctx, update)
	if err != nil {
		return nil, err
	}
	update.ID = id
	return s.repo.GetCourseUpdate(ctx, update.CourseUpdateUUID)
}

// ListCourseUpdates returns the announcements of a course, newest
// first.
func (s *Service) ListCourseUpdates(ctx context.Context, p shared.Principal, courseUUID string) ([]CourseUpdate, error) {
	course, err := s.repo.GetByUUID(ctx, courseUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionRead, course.CourseUUID); err != nil {
		return nil, err
	}
	return s.repo.ListCourseUpdates(ctx, course.ID)
}

// UpdateCourseUpdate edits an announcement.
func (s *Service) UpdateCourseUpdate(ctx context.Context, p shared.Principal, courseUpdateUUID string, req UpdateCourseUpdateRequest) (*CourseUpdate, error) {
	update, err := s.repo.GetCourseUpdate(ctx, courseUpdateUUID)
	if err != nil {
		return nil, err
	}
	course, err := s.repo.GetByID(ctx, update.CourseID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, course.CourseUUID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.LinkedActivityUUID != nil {
		updates["linked_activity_uuids"] = *req.LinkedActivityUUID
	}
	if err := s.repo.UpdateCourseUpdate(ctx, update.ID, updates); err != nil {
		return nil, err
	}
	return s.repo.GetCourseUpdate(ctx, courseUpdateUUID)
}

// DeleteCourseUpdate removes an announcement.
func (s *Service) DeleteCourseUpdate(ctx context.Context, p shared.Principal, courseUpdateUUID string) error {
	update, err := s.repo.GetCourseUpdate(ctx, courseUpdateUUID)
	if err != nil {
		return err
	}
	course, err := s.repo.GetByID(ctx, update.CourseID)
	if err != nil {
		return err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionDelete, course.CourseUUID); err != nil {
		return err
	}
	return s.repo.DeleteCourseUpdate(ctx, update.ID)
}

func (s *Service) storeThumbnail(ctx context.Context, courseUUID, filename string, content io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	key := storage.Key{
		Namespace: storage.NamespaceCourses,
		OwnerUUID: courseUUID,
		Category:  "thumbnails",
		Filename:  "thumbnail_" + uuid.NewString() + ext,
	}
	return s.store.Save(ctx, key, content, storage.ImageFormats)
}

func (s *Service) withAuthors(ctx context.Context, course *Course) (*Course, error) {
	authors, err := s.repo.Authors(ctx, course.CourseUUID)
	if err != nil {
		return nil, err
	}
	course.Authors = authors
	return course, nil
}

func (s *Service) creatorEmail(ctx context.Context, courseUUID string) string {
	authors, err := s.repo.Authors(ctx, courseUUID)
	if err != nil {
		return ""
	}
	for _, author := range authors {
		if author.Authorship == rbac.AuthorshipCreator {
			return author.Email
		}
	}
	return ""
}
