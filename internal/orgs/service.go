package orgs

import (
	"context"
	"encoding/json"
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

// Jobs enqueues background work triggered by organization mutations.
type Jobs interface {
	EnqueueMediaCleanup(ctx context.Context, namespace, ownerUUID string) error
	EnqueueEmail(ctx context.Context, to, subject, body string) error
}

// Service implements organization operations.
type Service struct {
	repo     Repository
	resolver *rbac.Resolver
	store    storage.Store
	jobs     Jobs
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

// NewService constructs the organizations service. jobs and audit may be nil.
func NewService(repo Repository, resolver *rbac.Resolver, store storage.Store, jobs Jobs, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, store: store, jobs: jobs, audit: audit, logger: logger}
}

// Create inserts the organization together with its default config and
// links the creator as admin, all in one transaction.
func (s *Service) Create(ctx context.Context, p shared.Principal, req CreateOrgRequest) (*Organization, error) {
	if err := s.resolver.DecideCreate(ctx, p, rbac.ResourceOrganizations); err != nil {
		return nil, err
	}
	slug := NormalizeSlug(req.Slug)
	if slug == "" {
		return nil, fmt.Errorf("%w: slug must contain letters or digits", shared.ErrConflict)
	}

	org := Organization{
		OrgUUID:     "org_" + uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Slug:        slug,
		Email:       strings.ToLower(strings.TrimSpace(req.Email)),
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, org)
		if err != nil {
			return err
		}
		org.ID = id
		if err := repo.SaveConfig(ctx, id, DefaultConfig()); err != nil {
			return fmt.Errorf("save default config: %w", err)
		}
		if err := repo.AddMember(ctx, id, p.UserID, rbac.RoleAdminID); err != nil {
			return fmt.Errorf("link creator: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			OrgID:    org.ID,
			Action:   "org.create",
			Entity:   "organizations",
			EntityID: org.OrgUUID,
		})
	}
	return s.getWithConfig(ctx, org.ID)
}

// Get returns an organization by UUID. Organization reads are open.
func (s *Service) Get(ctx context.Context, orgUUID string) (*Organization, error) {
	org, err := s.repo.GetByUUID(ctx, orgUUID)
	if err != nil {
		return nil, err
	}
	return s.attachConfig(ctx, org)
}

// GetBySlug returns an organization by its slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Organization, error) {
	org, err := s.repo.GetBySlug(ctx, NormalizeSlug(slug))
	if err != nil {
		return nil, err
	}
	return s.attachConfig(ctx, org)
}

// Update applies a partial update. Admin only.
func (s *Service) Update(ctx context.Context, p shared.Principal, orgUUID string, req UpdateOrgRequest) (*Organization, error) {
	org, err := s.repo.GetByUUID(ctx, orgUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.DecideAdmin(ctx, p, org.ID); err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.About != nil {
		updates["about"] = *req.About
	}
	if req.Slug != nil {
		slug := NormalizeSlug(*req.Slug)
		if slug == "" {
			return nil, fmt.Errorf("%w: slug must contain letters or digits", shared.ErrConflict)
		}
		updates["slug"] = slug
	}
	if req.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Label != nil {
		updates["label"] = *req.Label
	}
	if req.Explore != nil {
		updates["explore"] = *req.Explore
	}
	if req.Socials != nil {
		data, err := json.Marshal(req.Socials)
		if err != nil {
			return nil, fmt.Errorf("orgs: encode socials: %w", err)
		}
		updates["socials"] = data
	}
	if req.Links != nil {
		data, err := json.Marshal(req.Links)
		if err != nil {
			return nil, fmt.Errorf("orgs: encode links: %w", err)
		}
		updates["links"] = data
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, org.ID, updates); err != nil {
			return nil, err
		}
	}
	return s.getWithConfig(ctx, org.ID)
}

// UpdateConfig replaces the organization config blob. Admin only.
func (s *Service) UpdateConfig(ctx context.Context, p shared.Principal, orgUUID string, config map[string]any) (*Organization, error) {
	org, err := s.repo.GetByUUID(ctx, orgUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.DecideAdmin(ctx, p, org.ID); err != nil {
		return nil, err
	}
	if err := s.repo.SaveConfig(ctx, org.ID, config); err != nil {
		return nil, err
	}
	return s.getWithConfig(ctx, org.ID)
}

// UpdateLogo stores a new logo image. Admin only.
func (s *Service) UpdateLogo(ctx context.Context, p shared.Principal, orgUUID, filename string, content io.Reader) (*Organization, error) {
	return s.updateImage(ctx, p, orgUUID, "logos", "logo_", "logo_image", filename, content)
}

// UpdateThumbnail stores a new thumbnail image. Admin only.
func (s *Service) UpdateThumbnail(ctx context.Context, p shared.Principal, orgUUID, filename string, content io.Reader) (*Organization, error) {
	return s.updateImage(ctx, p, orgUUID, "thumbnails", "thumbnail_", "thumbnail_image", filename, content)
}

func (s *Service) updateImage(ctx context.Context, p shared.Principal, orgUUID, category, prefix, column, filename string, content io.Reader) (*Organization, error) {
	org, err := s.repo.GetByUUID(ctx, orgUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.DecideAdmin(ctx, p, org.ID); err != nil {
		return nil, err
	}
	stored, err := s.store.Save(ctx, storage.Key{
		Namespace: storage.NamespaceOrgs,
		OwnerUUID: org.OrgUUID,
		Category:  category,
		Filename:  prefix + uuid.NewString() + strings.ToLower(filepath.Ext(filename)),
	}, content, storage.ImageFormats)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, org.ID, map[string]any{column: stored}); err != nil {
		return nil, err
	}
	return s.getWithConfig(ctx, org.ID)
}

// Delete removes the organization and schedules its media for cleanup.
// Admin only.
func (s *Service) Delete(ctx context.Context, p shared.Principal, orgUUID string) error {
	org, err := s.repo.GetByUUID(ctx, orgUUID)
	if err != nil {
		return err
	}
	if err := s.resolver.DecideAdmin(ctx, p, org.ID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, org.ID); err != nil {
		return err
	}
	if s.jobs != nil {
		if err := s.jobs.EnqueueMediaCleanup(ctx, string(storage.NamespaceOrgs), org.OrgUUID); err != nil && s.logger != nil {
			s.logger.Warn("enqueue media cleanup", slog.Any("error", err))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			OrgID:    org.ID,
			Action:   "org.delete",
			Entity:   "organizations",
			EntityID: org.OrgUUID,
		})
	}
	return nil
}

// ListExplore pages through organizations opted into public discovery.
func (s *Service) ListExplore(ctx context.Context, page, perPage int) ([]Organization, shared.Pagination, error) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 20
	}
	items, total, err := s.repo.ListExplore(ctx, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// ListForUser returns the organizations the principal belongs to.
func (s *Service) ListForUser(ctx context.Context, p shared.Principal) ([]Organization, error) {
	if p.IsAnonymous() {
		return nil, shared.ErrNotAuthenticated
	}
	return s.repo.ListForUser(ctx, p.UserID)
}

// Members lists the organization's members with their roles.
func (s *Service) Members(ctx context.Context, p shared.Principal, orgUUID string) ([]Member, error) {
	org, err := s.repo.GetByUUID(ctx, orgUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionRead, org.OrgUUID); err != nil {
		return nil, err
	}
	return s.repo.Members(ctx, org.ID)
}

// UpdateMemberRole assigns a new role to a member. The organization must
// keep at least one admin.
func (s *Service) UpdateMemberRole(ctx context.Context, p shared.Principal, orgUUID string, userID, roleID int64) (*Member, error) {
	org, err := s.repo.GetByUUID(ctx, orgUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.DecideAdmin(ctx, p, org.ID); err != nil {
		return nil, err
	}
	member, err := s.repo.Member(ctx, org.ID, userID)
	if err != nil {
		return nil, err
	}
	if isAdminRole(member.RoleID) && !isAdminRole(roleID) {
		admins, err := s.repo.CountAdmins(ctx, org.ID)
		if err != nil {
			return nil, err
		}
		if admins <= 1 {
			return nil, fmt.Errorf("%w: organization must retain at least one admin", shared.ErrConflict)
		}
	}
	if err := s.repo.UpdateMemberRole(ctx, org.ID, userID, roleID); err != nil {
		return nil, err
	}

	updated, err := s.repo.Member(ctx, org.ID, userID)
	if err != nil {
		return nil, err
	}
	if s.jobs != nil && updated.Email != "" {
		subject := fmt.Sprintf("Your role in %s changed", org.Name)
		body := fmt.Sprintf("Hello %s,\n\nYour role in %s is now %s.\n", updated.Username, org.Name, updated.RoleName)
		if err := s.jobs.EnqueueEmail(ctx, updated.Email, subject, body); err != nil && s.logger != nil {
			s.logger.Warn("enqueue role change email", slog.Any("error", err))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			OrgID:    org.ID,
			Action:   "org.member.role",
			Entity:   "user_organizations",
			EntityID: updated.UserUUID,
			Meta:     map[string]any{"user_id": userID, "role_id": roleID},
		})
	}
	return updated, nil
}

// RemoveMember removes a member. Members may leave on their own; removing
// someone else requires admin. The last admin cannot go.
func (s *Service) RemoveMember(ctx context.Context, p shared.Principal, orgUUID string, userID int64) error {
	org, err := s.repo.GetByUUID(ctx, orgUUID)
	if err != nil {
		return err
	}
	if p.IsAnonymous() {
		return shared.ErrNotAuthenticated
	}
	if p.UserID != userID {
		if err := s.resolver.DecideAdmin(ctx, p, org.ID); err != nil {
			return err
		}
	}
	member, err := s.repo.Member(ctx, org.ID, userID)
	if err != nil {
		return err
	}
	if isAdminRole(member.RoleID) {
		admins, err := s.repo.CountAdmins(ctx, org.ID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return fmt.Errorf("%w: organization must retain at least one admin", shared.ErrConflict)
		}
	}
	if err := s.repo.RemoveMember(ctx, org.ID, userID); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			OrgID:    org.ID,
			Action:   "org.member.remove",
			Entity:   "user_organizations",
			EntityID: member.UserUUID,
		})
	}
	return nil
}

func (s *Service) getWithConfig(ctx context.Context, id int64) (*Organization, error) {
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.attachConfig(ctx, org)
}

func (s *Service) attachConfig(ctx context.Context, org *Organization) (*Organization, error) {
	config, err := s.repo.Config(ctx, org.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return org, nil
		}
		return nil, err
	}
	org.Config = config
	return org, nil
}

func isAdminRole(roleID int64) bool {
	return roleID == rbac.RoleAdminID || roleID == rbac.RoleMaintainerID
}
