package activities

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Service implements activity operations. Every action is authorized
// against the parent course, so course authors and role holders manage
// activities without per-activity authorship rows.
type Service struct {
	repo     Repository
	resolver *rbac.Resolver
	logger   *slog.Logger
}

// NewService constructs the activities service.
func NewService(repo Repository, resolver *rbac.Resolver, logger *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, logger: logger}
}

// Create inserts an activity and appends it to the end of its chapter
// in one transaction.
func (s *Service) Create(ctx context.Context, p shared.Principal, req CreateActivityRequest) (*Activity, error) {
	chapter, err := s.repo.ChapterRef(ctx, req.ChapterID)
	if err != nil {
		return nil, fmt.Errorf("chapter: %w", err)
	}
	if _, err := s.repo.CourseUUIDByID(ctx, chapter.CourseID); err != nil {
		return nil, fmt.Errorf("course: %w", err)
	}
	if err := s.resolver.DecideCreate(ctx, p, rbac.ResourceActivities); err != nil {
		return nil, err
	}

	activity := Activity{
		ActivityUUID:    "activity_" + uuid.NewString(),
		OrgID:           chapter.OrgID,
		CourseID:        chapter.CourseID,
		Name:            strings.TrimSpace(req.Name),
		ActivityType:    req.ActivityType,
		ActivitySubType: req.ActivitySubType,
		Content:         req.Content,
		Details:         req.Details,
		Published:       req.Published,
	}
	if activity.ActivityType == "" {
		activity.ActivityType = TypeCustom
	}
	if activity.ActivitySubType == "" {
		activity.ActivitySubType = SubTypeCustom
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, activity)
		if err != nil {
			return err
		}
		activity.ID = id
		max, err := repo.MaxPosition(ctx, chapter.ID)
		if err != nil {
			return err
		}
		return repo.LinkToChapter(ctx, chapter.ID, id, chapter.CourseID, chapter.OrgID, max+1)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, activity.ID)
}

// Get returns an activity by its uuid.
func (s *Service) Get(ctx context.Context, p shared.Principal, activityUUID string) (*Activity, error) {
	activity, err := s.repo.GetByUUID(ctx, activityUUID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, rbac.ActionRead, activity.CourseID); err != nil {
		return nil, err
	}
	return activity, nil
}

// GetByID returns an activity by its numeric id.
func (s *Service) GetByID(ctx context.Context, p shared.Principal, id int64) (*Activity, error) {
	activity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, rbac.ActionRead, activity.CourseID); err != nil {
		return nil, err
	}
	return activity, nil
}

// ListForChapter returns the activities of a chapter in position order.
// Unpublished activities are only included on request.
func (s *Service) ListForChapter(ctx context.Context, p shared.Principal, chapterID int64, withUnpublished bool) ([]Activity, error) {
	chapter, err := s.repo.ChapterRef(ctx, chapterID)
	if err != nil {
		return nil, fmt.Errorf("chapter: %w", err)
	}
	if err := s.authorize(ctx, p, rbac.ActionRead, chapter.CourseID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListForChapter(ctx, chapter.ID, withUnpublished)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Activity{}
	}
	return items, nil
}

// Update patches the provided fields.
func (s *Service) Update(ctx context.Context, p shared.Principal, activityUUID string, req UpdateActivityRequest) (*Activity, error) {
	activity, err := s.repo.GetByUUID(ctx, activityUUID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, p, rbac.ActionUpdate, activity.CourseID); err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.ActivityType != nil {
		updates["activity_type"] = string(*req.ActivityType)
	}
	if req.ActivitySubType != nil {
		updates["activity_sub_type"] = string(*req.ActivitySubType)
	}
	if req.Content != nil {
		updates["content"] = req.Content
	}
	if req.Details != nil {
		updates["details"] = req.Details
	}
	if req.Published != nil {
		updates["published"] = *req.Published
	}
	if err := s.repo.Update(ctx, activity.ID, updates); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, activity.ID)
}

// Delete removes an activity and its chapter link.
func (s *Service) Delete(ctx context.Context, p shared.Principal, activityUUID string) error {
	activity, err := s.repo.GetByUUID(ctx, activityUUID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, p, rbac.ActionDelete, activity.CourseID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, activity.ID)
}

func (s *Service) authorize(ctx context.Context, p shared.Principal, action rbac.Action, courseID int64) error {
	courseUUID, err := s.repo.CourseUUIDByID(ctx, courseID)
	if err != nil {
		return fmt.Errorf("course: %w", err)
	}
	return s.resolver.Decide(ctx, p, action, courseUUID)
}
