package users

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
	"github.com/atheneum-lms/atheneum/internal/storage"
)

// Jobs enqueues background work triggered by user mutations.
type Jobs interface {
	EnqueueMediaCleanup(ctx context.Context, namespace, ownerUUID string) error
}

// Service implements account operations.
type Service struct {
	repo     Repository
	resolver *rbac.Resolver
	store    storage.Store
	jobs     Jobs
	audit    *shared.AuditLogger
	logger   *slog.Logger
}

// NewService constructs the users service. jobs and audit may be nil.
func NewService(repo Repository, resolver *rbac.Resolver, store storage.Store, jobs Jobs, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, store: store, jobs: jobs, audit: audit, logger: logger}
}

// Register creates an account. Duplicate usernames and emails surface as
// Conflict through the unique constraints.
func (s *Service) Register(ctx context.Context, req CreateUserRequest) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}

	user := User{
		UserUUID:     "user_" + uuid.NewString(),
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: string(hash),
		Bio:          strings.TrimSpace(req.Bio),
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, user)
		if err != nil {
			return err
		}
		user.ID = id
		if req.OrgID != nil {
			if err := repo.AddToOrg(ctx, id, *req.OrgID, rbac.RoleUserID); err != nil {
				return fmt.Errorf("join organization: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, user.ID)
}

// Get returns a user. Everyone may read themselves; reading someone else
// requires role rights on the users type.
func (s *Service) Get(ctx context.Context, p shared.Principal, userUUID string) (*User, error) {
	user, err := s.repo.GetByUUID(ctx, userUUID)
	if err != nil {
		return nil, err
	}
	if p.UserID != user.ID {
		if err := s.resolver.Decide(ctx, p, rbac.ActionRead, user.UserUUID); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// UpdateProfile applies a partial profile update for self or an authorized
// actor.
func (s *Service) UpdateProfile(ctx context.Context, p shared.Principal, userUUID string, req UpdateUserRequest) (*User, error) {
	user, err := s.repo.GetByUUID(ctx, userUUID)
	if err != nil {
		return nil, err
	}
	if p.UserID != user.ID {
		if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, user.UserUUID); err != nil {
			return nil, err
		}
	}

	updates := make(map[string]any)
	if req.Username != nil {
		updates["username"] = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Bio != nil {
		updates["bio"] = *req.Bio
	}
	if req.Details != nil {
		data, err := json.Marshal(req.Details)
		if err != nil {
			return nil, fmt.Errorf("users: encode details: %w", err)
		}
		updates["details"] = data
	}
	if len(updates) > 0 {
		if err := s.repo.Update(ctx, user.ID, updates); err != nil {
			return nil, err
		}
	}
	return s.repo.GetByID(ctx, user.ID)
}

// ChangePassword verifies the old password for self-service changes; an
// actor authorized through roles resets without it.
func (s *Service) ChangePassword(ctx context.Context, p shared.Principal, userUUID string, req ChangePasswordRequest) error {
	user, err := s.repo.GetByUUID(ctx, userUUID)
	if err != nil {
		return err
	}
	if p.UserID == user.ID {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
			return shared.ErrInvalidCredentials
		}
	} else if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, user.UserUUID); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("users: hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, user.ID, string(hash))
}

// UpdateAvatar stores the uploaded image under a fresh name and records it
// on the profile.
func (s *Service) UpdateAvatar(ctx context.Context, p shared.Principal, userUUID, filename string, content io.Reader) (*User, error) {
	user, err := s.repo.GetByUUID(ctx, userUUID)
	if err != nil {
		return nil, err
	}
	if p.UserID != user.ID {
		if err := s.resolver.Decide(ctx, p, rbac.ActionUpdate, user.UserUUID); err != nil {
			return nil, err
		}
	}

	stored, err := s.store.Save(ctx, storage.Key{
		Namespace: storage.NamespaceUsers,
		OwnerUUID: user.UserUUID,
		Category:  "avatars",
		Filename:  "avatar_" + uuid.NewString() + strings.ToLower(filepath.Ext(filename)),
	}, content, storage.ImageFormats)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, user.ID, map[string]any{"avatar_image": stored}); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, user.ID)
}

// Delete removes the account and schedules its media for cleanup.
func (s *Service) Delete(ctx context.Context, p shared.Principal, userUUID string) error {
	user, err := s.repo.GetByUUID(ctx, userUUID)
	if err != nil {
		return err
	}
	if err := s.resolver.Decide(ctx, p, rbac.ActionDelete, user.UserUUID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return err
	}
	if s.jobs != nil {
		if err := s.jobs.EnqueueMediaCleanup(ctx, string(storage.NamespaceUsers), user.UserUUID); err != nil && s.logger != nil {
			s.logger.Warn("enqueue media cleanup", slog.Any("error", err))
		}
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  p.UserID,
			Action:   "user.delete",
			Entity:   "users",
			EntityID: user.UserUUID,
		})
	}
	return nil
}
