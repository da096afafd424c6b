package chapters

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Service implements chapter operations.
type Service struct {
	repo     Repository
	resolver *rbac.Resolver
	logger   *slog.Logger
}

// NewService constructs the chapters service.
func NewService(repo Repository, resolver *rbac.Resolver, logger *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, logger: logger}
}

// Create inserts a chapter and appends it to the end of the course in
// one transaction.
func (s *Service) Create(ctx context.Context, p shared.Principal, req CreateChapterRequest) (*Chapter, error) {
	course, err := s.repo.CourseRefByID(ctx, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("course: %w", err)
	}
	if err := s.resolver.DecideCreate(ctx, p, rbac.ResourceChapters); err != nil {
		return nil, err
	}

	chapter := Chapter{
		ChapterUUID: "chapter_" + uuid.NewString(),
		CourseID:    course.ID,
		OrgID:       course.OrgID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, chapter)
		if err != nil {
			return err
		}
		chapter.ID = id
		max, err := repo.MaxPosition(ctx, course.ID)
		if err != nil {
			return err
		}
		return repo.LinkChapter(ctx, course.ID, id, course.OrgID, max+1)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByUUID(ctx, chapter.ChapterUUID)
}

// Get returns a chapter with its activities. Reads are authorized
// against the parent course.
func (s *Service) Get(ctx context.Context, p shared.Principal, chapterUUID string) (*Chapter, error) {
	chapter, err := s.repo.GetByUUID(ctx, chapterUUID)
	if err != nil {
		return nil, err
	}
	course, err := s.repo.CourseRefByID(ctx, chapter.CourseID)
	if err != nil {
		return nil, fmt.Errorf("course: %w", err)
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionRead, course.CourseUUID); err != nil {
		return nil, err
	}
	activities, err := s.repo.ActivitiesForChapters(ctx, []int64{chapter.ID}, true)
	if err != nil {
		return nil, err
	}
	chapter.Activities = activities[chapter.ID]
	if chapter.Activities == nil {
		chapter.Activities = []ActivitySummary{}
	}
	return chapter, nil
}

// ListForCourse returns the chapters of a course in position order,
// each with its activities. withUnpublished additionally includes
// activities not yet published.
func (s *Service) ListForCourse(ctx context.Context, p shared.Principal, courseUUID string, withUnpublished bool) ([]Chapter, error) {
	course, err := s.repo.CourseRefByUUID(ctx, courseUUID)
	if err != nil {
		return nil, fmt.Errorf("course: %w", err)
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionRead, course.CourseUUID); err != nil {
		return nil, err
	}

	chapters, err := s.repo.ListForCourse(ctx, course.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(chapters))
	for _, ch := range chapters {
		ids = append(ids, ch.ID)
	}
	activities, err := s.repo.ActivitiesForChapters(ctx, ids, withUnpublished)
	if err != nil {
		return nil, err
	}
	for i := range chapters {
		chapters[i].Activities = activities[chapters[i].ID]
		if chapters[i].Activities == nil {
			chapters[i].Activities = []ActivitySummary{}
		}
	}
	return chapters, nil
}

// Update applies a partial update to the chapter itself.
func (s *Service) Update(ctx context.Context, p shared.Principal, chapterUUID string, req UpdateChapterRequest) (*Chapter, error) {
	chapter, err := s.repo.GetByUUID(ctx, chapterUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, chapter.ChapterUUID); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if err := s.repo.Update(ctx, chapter.ID, updates); err != nil {
		return nil, err
	}
	return s.repo.GetByUUID(ctx, chapterUUID)
}

// Delete removes the chapter together with its ordering links.
func (s *Service) Delete(ctx context.Context, p shared.Principal, chapterUUID string) error {
	chapter, err := s.repo.GetByUUID(ctx, chapterUUID)
	if err != nil {
		return err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionDelete, chapter.ChapterUUID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, chapter.ID)
}

// Reorder reconciles the course layout against the submitted order in
// a single transaction. Existing links are moved in place, links for
// ids new to the course are created at the submitted index, and links
// absent from the submission are removed.
func (s *Service) Reorder(ctx context.Context, p shared.Principal, courseUUID string, req ReorderRequest) error {
	course, err := s.repo.CourseRefByUUID(ctx, courseUUID)
	if err != nil {
		return fmt.Errorf("course: %w", err)
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, course.CourseUUID); err != nil {
		return err
	}

	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		links, err := repo.CourseLinks(ctx, course.ID)
		if err != nil {
			return err
		}
		linkByChapter := make(map[int64]ChapterLink, len(links))
		for _, link := range links {
			linkByChapter[link.ChapterID] = link
		}

		keepChapters := make(map[int64]bool, len(req.ChapterOrder))
		for idx, order := range req.ChapterOrder {
			keepChapters[order.ChapterID] = true
			if link, ok := linkByChapter[order.ChapterID]; ok {
				if err := repo.UpdateLinkPosition(ctx, link.ID, idx); err != nil {
					return err
				}
			} else if err := repo.LinkChapter(ctx, course.ID, order.ChapterID, course.OrgID, idx); err != nil {
				return err
			}
		}
		for _, link := range links {
			if !keepChapters[link.ChapterID] {
				if err := repo.DeleteLink(ctx, link.ID); err != nil {
					return err
				}
			}
		}

		activityLinks, err := repo.ActivityLinks(ctx, course.ID)
		if err != nil {
			return err
		}
		type key struct{ chapterID, activityID int64 }
		linkByActivity := make(map[key]ActivityLink, len(activityLinks))
		for _, link := range activityLinks {
			linkByActivity[key{link.ChapterID, link.ActivityID}] = link
		}

		keepActivities := make(map[key]bool)
		for _, order := range req.ChapterOrder {
			for idx, activity := range order.ActivityOrder {
				k := key{order.ChapterID, activity.ActivityID}
				keepActivities[k] = true
				if link, ok := linkByActivity[k]; ok {
					if err := repo.UpdateActivityLinkPosition(ctx, link.ID, idx); err != nil {
						return err
					}
				} else if err := repo.LinkActivity(ctx, course.ID, course.OrgID, order.ChapterID, activity.ActivityID, idx); err != nil {
					return err
				}
			}
		}
		for _, link := range activityLinks {
			if !keepActivities[key{link.ChapterID, link.ActivityID}] {
				if err := repo.DeleteActivityLink(ctx, link.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
}
