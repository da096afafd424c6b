package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Resolver decides whether a principal may perform an action on a resource.
type Resolver struct {
	repo   Repository
	logger *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repository, logger *slog.Logger) *Resolver {
	return &Resolver{repo: repo, logger: logger}
}

// Decide authorizes an action on an existing resource identified by uuid.
// Reads on public courses and collections pass for everyone, anonymous
// callers included. Otherwise the principal needs an active authorship on
// the resource or a role whose rights cover the action. When the resource
// row cannot be found the role check runs unscoped across all of the
// principal's memberships.
func (r *Resolver) Decide(ctx context.Context, p shared.Principal, action Action, resourceUUID string) error {
	rt, err := ResourceTypeFromUUID(resourceUUID)
	if err != nil {
		return err
	}
	if action == ActionCreate {
		return r.DecideCreate(ctx, p, rt)
	}

	scope, scopeErr := r.repo.ResourceScope(ctx, rt, resourceUUID)
	if scopeErr != nil && !errors.Is(scopeErr, shared.ErrNotFound) {
		return scopeErr
	}
	known := scopeErr == nil

	if action == ActionRead && known && scope.Public {
		switch rt {
		case ResourceCourses, ResourceCollections:
			return nil
		}
	}

	if p.IsAnonymous() {
		return shared.ErrNotAuthenticated
	}

	author, err := r.repo.AuthorshipFor(ctx, resourceUUID, p.UserID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	if err == nil && author.Grants() {
		return nil
	}

	var orgID int64
	if known {
		orgID = scope.OrgID
	}
	grants, err := r.repo.RoleGrants(ctx, p.UserID, orgID)
	if err != nil {
		return err
	}
	for _, grant := range grants {
		if grant.Rights.For(rt).Allows(action) {
			return nil
		}
	}

	if r.logger != nil {
		r.logger.Debug("authorization denied",
			slog.Int64("user_id", p.UserID),
			slog.String("action", string(action)),
			slog.String("resource", resourceUUID))
	}
	return fmt.Errorf("%w: user does not have the right to perform this action", shared.ErrForbidden)
}

// DecideCreate authorizes creation of a new resource of the given type.
// Any authenticated user may create; services attach authorship afterwards.
func (r *Resolver) DecideCreate(ctx context.Context, p shared.Principal, _ ResourceType) error {
	if p.IsAnonymous() {
		return shared.ErrNotAuthenticated
	}
	return nil
}

// DecideForOrg authorizes an action on a resource type within an
// organization, without a concrete resource row. Used by org-scoped
// listings where no single uuid exists to check against.
func (r *Resolver) DecideForOrg(ctx context.Context, p shared.Principal, action Action, rt ResourceType, orgID int64) error {
	if p.IsAnonymous() {
		return shared.ErrNotAuthenticated
	}
	grants, err := r.repo.RoleGrants(ctx, p.UserID, orgID)
	if err != nil {
		return err
	}
	for _, grant := range grants {
		if grant.Rights.For(rt).Allows(action) {
			return nil
		}
	}
	if r.logger != nil {
		r.logger.Debug("authorization denied",
			slog.Int64("user_id", p.UserID),
			slog.String("action", string(action)),
			slog.String("resource_type", string(rt)),
			slog.Int64("org_id", orgID))
	}
	return fmt.Errorf("%w: user does not have the right to perform this action", shared.ErrForbidden)
}

// DecideAdmin authorizes operations reserved for organization admins.
func (r *Resolver) DecideAdmin(ctx context.Context, p shared.Principal, orgID int64) error {
	if p.IsAnonymous() {
		return shared.ErrNotAuthenticated
	}
	ok, err := r.repo.IsAdmin(ctx, p.UserID, orgID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: organization admin role required", shared.ErrForbidden)
	}
	return nil
}
