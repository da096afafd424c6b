package usergroups

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Service implements user group operations. Group management is
// reserved for role holders with usergroup rights; the groups
// themselves feed the visibility filter on private content.
type Service struct {
	repo     Repository
	resolver *rbac.Resolver
	logger   *slog.Logger
}

// NewService constructs the usergroups service.
func NewService(repo Repository, resolver *rbac.Resolver, logger *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, logger: logger}
}

// Create inserts a group.
func (s *Service) Create(ctx context.Context, p shared.Principal, req CreateUserGroupRequest) (*UserGroup, error) {
	if _, err := s.repo.OrgUUIDByID(ctx, req.OrgID); err != nil {
		return nil, fmt.Errorf("organization: %w", err)
	}
	if err := s.resolver.DecideCreate(ctx, p, rbac.ResourceUsergroups); err != nil {
		return nil, err
	}

	group := UserGroup{
		UsergroupUUID: "usergroup_" + uuid.NewString(),
		OrgID:         req.OrgID,
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(req.Description),
	}
	id, err := s.repo.Create(ctx, group)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Get returns a group by id.
func (s *Service) Get(ctx context.Context, p shared.Principal, id int64) (*UserGroup, error) {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionRead, group.UsergroupUUID); err != nil {
		return nil, err
	}
	return group, nil
}

// ListForOrg returns the groups of an organization.
func (s *Service) ListForOrg(ctx context.Context, p shared.Principal, orgID int64) ([]UserGroup, error) {
	if _, err := s.repo.OrgUUIDByID(ctx, orgID); err != nil {
		return nil, fmt.Errorf("organization: %w", err)
	}
	if err := s.resolver.DecideForOrg(ctx, p, rbac.ActionRead, rbac.ResourceUsergroups, orgID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListForOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []UserGroup{}
	}
	return items, nil
}

// ListForResource returns the groups a resource is linked to.
func (s *Service) ListForResource(ctx context.Context, p shared.Principal, resourceUUID string) ([]UserGroup, error) {
	if err := s.resolver.Decide(ctx, p, rbac.ActionRead, resourceUUID); err != nil {
		return nil, err
	}
	items, err := s.repo.ListForResource(ctx, resourceUUID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []UserGroup{}
	}
	return items, nil
}

// Update patches the provided fields.
func (s *Service) Update(ctx context.Context, p shared.Principal, id int64, req UpdateUserGroupRequest) (*UserGroup, error) {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, group.UsergroupUUID); err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if err := s.repo.Update(ctx, group.ID, updates); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, group.ID)
}

// Delete removes a group with its membership and resource links.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id int64) error {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionDelete, group.UsergroupUUID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, group.ID)
}

// AddUsers links users to the group. Every submitted user must be a
// member of the group's organization.
func (s *Service) AddUsers(ctx context.Context, p shared.Principal, id int64, req MembersRequest) error {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, group.UsergroupUUID); err != nil {
		return err
	}
	count, err := s.repo.CountUsersInOrg(ctx, group.OrgID, req.UserIDs)
	if err != nil {
		return err
	}
	if count != len(req.UserIDs) {
		return fmt.Errorf("%w: one or more users are not members of this organization", shared.ErrNotFound)
	}
	return s.repo.AddUsers(ctx, group.ID, group.OrgID, req.UserIDs)
}

// RemoveUsers unlinks users from the group.
func (s *Service) RemoveUsers(ctx context.Context, p shared.Principal, id int64, req MembersRequest) error {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, group.UsergroupUUID); err != nil {
		return err
	}
	return s.repo.RemoveUsers(ctx, group.ID, req.UserIDs)
}

// Members returns the users linked to the group.
func (s *Service) Members(ctx context.Context, p shared.Principal, id int64) ([]Member, error) {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionRead, group.UsergroupUUID); err != nil {
		return nil, err
	}
	members, err := s.repo.Members(ctx, group.ID)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []Member{}
	}
	return members, nil
}

// LinkResources attaches resources to the group, granting its members
// visibility of them.
func (s *Service) LinkResources(ctx context.Context, p shared.Principal, id int64, req ResourcesRequest) error {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, group.UsergroupUUID); err != nil {
		return err
	}
	for _, resourceUUID := range req.ResourceUUIDs {
		if _, err := rbac.ResourceTypeFromUUID(resourceUUID); err != nil {
			return err
		}
	}
	return s.repo.LinkResources(ctx, group.ID, group.OrgID, req.ResourceUUIDs)
}

// UnlinkResources detaches resources from the group.
func (s *Service) UnlinkResources(ctx context.Context, p shared.Principal, id int64, req ResourcesRequest) error {
	group, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, group.UsergroupUUID); err != nil {
		return err
	}
	return s.repo.UnlinkResources(ctx, group.ID, req.ResourceUUIDs)
}
