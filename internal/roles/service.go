package roles

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Service implements role management. Standard global roles are read-only;
// organization admins manage their own roles.
type Service struct {
	repo     Repository
	resolver *rbac.Resolver
	audit    *shared.AuditLogger
}

// NewService constructs the roles service. audit may be nil.
func NewService(repo Repository, resolver *rbac.Resolver, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, resolver: resolver, audit: audit}
}

// Create adds an organization-scoped role. Admin only.
func (s *Service) Create(ctx context.Context, p shared.Principal, req CreateRoleRequest) (*Role, error) {
	orgID, err := s.repo.OrgIDByUUID(ctx, req.OrgUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.DecideAdmin(ctx, p, orgID); err != nil {
		return nil, err
	}

	role := Role{
		RoleUUID:    "role_" + uuid.NewString(),
		OrgID:       &orgID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		RoleType:    TypeOrganization,
		Rights:      req.Rights,
	}
	id, err := s.repo.Create(ctx, role)
	if err != nil {
		return nil, err
	}
	created, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			OrgID:    orgID,
			Action:   "role.create",
			Entity:   "roles",
			EntityID: created.RoleUUID,
		})
	}
	return created, nil
}

// Get returns a role. Gated by role read rights.
func (s *Service) Get(ctx context.Context, p shared.Principal, roleUUID string) (*Role, error) {
	role, err := s.repo.GetByUUID(ctx, roleUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionRead, role.RoleUUID); err != nil {
		return nil, err
	}
	return role, nil
}

// ListForOrg returns global and organization roles. Admin only.
func (s *Service) ListForOrg(ctx context.Context, p shared.Principal, orgUUID string) ([]Role, error) {
	orgID, err := s.repo.OrgIDByUUID(ctx, orgUUID)
	if err != nil {
		return nil, err
	}
	if err := s.resolver.DecideAdmin(ctx, p, orgID); err != nil {
		return nil, err
	}
	return s.repo.ListForOrg(ctx, orgID)
}

// Update patches an organization role. Standard roles are immutable.
func (s *Service) Update(ctx context.Context, p shared.Principal, roleUUID string, req UpdateRoleRequest) (*Role, error) {
	role, err := s.repo.GetByUUID(ctx, roleUUID)
	if err != nil {
		return nil, err
	}
	if role.Global() {
		return nil, fmt.Errorf("%w: standard roles cannot be modified", shared.ErrConflict)
	}
	if err := s.resolver.DecideAdmin(ctx, p, *role.OrgID); err != nil {
		return nil, err
	}

	updates := make(map[string]any)
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Rights != nil {
		rights, err := json.Marshal(req.Rights)
		if err != nil {
			return nil, fmt.Errorf("roles: encode rights: %w", err)
		}
		updates["rights"] = rights
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, role.ID, updates); err != nil {
			return nil, err
		}
	}
	return s.repo.GetByID(ctx, role.ID)
}

// Delete removes an organization role. Standard roles, including the
// reserved admin ids, cannot be deleted.
func (s *Service) Delete(ctx context.Context, p shared.Principal, roleUUID string) error {
	role, err := s.repo.GetByUUID(ctx, roleUUID)
	if err != nil {
		return err
	}
	if role.ID == rbac.RoleAdminID || role.ID == rbac.RoleMaintainerID {
		return fmt.Errorf("%w: reserved admin roles cannot be deleted", shared.ErrConflict)
	}
	if role.Global() {
		return fmt.Errorf("%w: standard roles cannot be deleted", shared.ErrConflict)
	}
	if err := s.resolver.DecideAdmin(ctx, p, *role.OrgID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, role.ID); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			OrgID:    *role.OrgID,
			Action:   "role.delete",
			Entity:   "roles",
			EntityID: role.RoleUUID,
		})
	}
	return nil
}
