package users

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
	"github.com/atheneum-lms/atheneum/internal/storage"
)

type memoryRepo struct {
	nextID      int64
	users       map[int64]User
	memberships map[int64]int64 // userID -> roleID of last joined org
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int64]User), memberships: make(map[int64]int64)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) Create(ctx context.Context, user User) (int64, error) {
	for _, u := range r.users {
		if u.Username == user.Username {
			return 0, fmt.Errorf("%w: username already taken", shared.ErrConflict)
		}
		if u.Email == user.Email {
			return 0, fmt.Errorf("%w: email already registered", shared.ErrConflict)
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user.ID, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := u
	return &out, nil
}

func (r *memoryRepo) GetByUUID(ctx context.Context, userUUID string) (*User, error) {
	for _, u := range r.users {
		if u.UserUUID == userUUID {
			out := u
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	for _, u := range r.users {
		if u.Username == username {
			out := u
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) Update(ctx context.Context, id int64, updates map[string]any) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	for col, v := range updates {
		switch col {
		case "username":
			u.Username = v.(string)
		case "email":
			u.Email = v.(string)
		case "first_name":
			u.FirstName = v.(string)
		case "last_name":
			u.LastName = v.(string)
		case "bio":
			u.Bio = v.(string)
		case "avatar_image":
			u.AvatarImage = v.(string)
		case "email_verified":
			u.EmailVerified = v.(bool)
		case "details":
			if err := json.Unmarshal(v.([]byte), &u.Details); err != nil {
				return err
			}
		}
	}
	r.users[id] = u
	return nil
}

func (r *memoryRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	u, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = passwordHash
	r.users[id] = u
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *memoryRepo) AddToOrg(ctx context.Context, userID, orgID, roleID int64) error {
	r.memberships[userID] = roleID
	return nil
}

// stubAccess backs the resolver with canned grants.
type stubAccess struct {
	grants map[int64][]rbac.RoleGrant
}

func (s *stubAccess) AuthorshipFor(ctx context.Context, resourceUUID string, userID int64) (rbac.ResourceAuthor, error) {
	return rbac.ResourceAuthor{}, shared.ErrNotFound
}

func (s *stubAccess) RoleGrants(ctx context.Context, userID, orgID int64) ([]rbac.RoleGrant, error) {
	return s.grants[userID], nil
}

func (s *stubAccess) IsAdmin(ctx context.Context, userID, orgID int64) (bool, error) {
	return false, nil
}

func (s *stubAccess) ResourceScope(ctx context.Context, rt rbac.ResourceType, resourceUUID string) (rbac.ResourceScope, error) {
	return rbac.ResourceScope{}, nil
}

type recordingJobs struct {
	namespaces []string
	owners     []string
}

func (j *recordingJobs) EnqueueMediaCleanup(ctx context.Context, namespace, ownerUUID string) error {
	j.namespaces = append(j.namespaces, namespace)
	j.owners = append(j.owners, ownerUUID)
	return nil
}

func userAdminGrant() []rbac.RoleGrant {
	return []rbac.RoleGrant{{
		RoleID: rbac.RoleAdminID,
		Rights: rbac.Rights{Users: rbac.Permission{Read: true, Update: true, Delete: true}},
	}}
}

func TestRegisterCreatesUserAndJoinsOrg(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, rbac.NewResolver(&stubAccess{}, nil), nil, nil, nil, nil)

	orgID := int64(7)
	user, err := svc.Register(context.Background(), CreateUserRequest{
		Username: "ada",
		Email:    "Ada@Example.COM",
		Password: "correct horse",
		OrgID:    &orgID,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(user.UserUUID, "user_"))
	require.Equal(t, "ada@example.com", user.Email)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("correct horse")))
	require.Equal(t, rbac.RoleUserID, repo.memberships[user.ID])
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, rbac.NewResolver(&stubAccess{}, nil), nil, nil, nil, nil)

	_, err := svc.Register(context.Background(), CreateUserRequest{Username: "ada", Email: "ada@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), CreateUserRequest{Username: "ada", Email: "other@example.com", Password: "password1"})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestGetEnforcesReadRights(t *testing.T) {
	repo := newMemoryRepo()
	access := &stubAccess{grants: map[int64][]rbac.RoleGrant{2: userAdminGrant()}}
	svc := NewService(repo, rbac.NewResolver(access, nil), nil, nil, nil, nil)

	ada, err := svc.Register(context.Background(), CreateUserRequest{Username: "ada", Email: "ada@example.com", Password: "password1"})
	require.NoError(t, err)
	bob, err := svc.Register(context.Background(), CreateUserRequest{Username: "bob", Email: "bob@example.com", Password: "password1"})
	require.NoError(t, err)

	// Self-reads never consult the resolver.
	got, err := svc.Get(context.Background(), shared.Principal{UserID: ada.ID}, ada.UserUUID)
	require.NoError(t, err)
	require.Equal(t, ada.ID, got.ID)

	_, err = svc.Get(context.Background(), shared.Principal{UserID: ada.ID}, bob.UserUUID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Get(context.Background(), shared.Principal{UserID: bob.ID}, ada.UserUUID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), shared.Anonymous(), ada.UserUUID)
	require.ErrorIs(t, err, shared.ErrNotAuthenticated)
}

func TestUpdateProfilePatchesProvidedFieldsOnly(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, rbac.NewResolver(&stubAccess{}, nil), nil, nil, nil, nil)

	ada, err := svc.Register(context.Background(), CreateUserRequest{Username: "ada", Email: "ada@example.com", Password: "password1", Bio: "original"})
	require.NoError(t, err)

	newName := "countess"
	updated, err := svc.UpdateProfile(context.Background(), shared.Principal{UserID: ada.ID}, ada.UserUUID, UpdateUserRequest{
		Username: &newName,
		Details:  map[string]any{"theme": "dark"},
	})
	require.NoError(t, err)
	require.Equal(t, "countess", updated.Username)
	require.Equal(t, "ada@example.com", updated.Email)
	require.Equal(t, "original", updated.Bio)
	require.Equal(t, "dark", updated.Details["theme"])
}

func TestChangePasswordPolicies(t *testing.T) {
	repo := newMemoryRepo()
	access := &stubAccess{grants: map[int64][]rbac.RoleGrant{}}
	svc := NewService(repo, rbac.NewResolver(access, nil), nil, nil, nil, nil)

	ada, err := svc.Register(context.Background(), CreateUserRequest{Username: "ada", Email: "ada@example.com", Password: "password1"})
	require.NoError(t, err)
	admin, err := svc.Register(context.Background(), CreateUserRequest{Username: "root", Email: "root@example.com", Password: "password1"})
	require.NoError(t, err)
	access.grants[admin.ID] = userAdminGrant()

	err = svc.ChangePassword(context.Background(), shared.Principal{UserID: ada.ID}, ada.UserUUID, ChangePasswordRequest{
		OldPassword: "wrong", NewPassword: "password2",
	})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	err = svc.ChangePassword(context.Background(), shared.Principal{UserID: ada.ID}, ada.UserUUID, ChangePasswordRequest{
		OldPassword: "password1", NewPassword: "password2",
	})
	require.NoError(t, err)
	stored, err := repo.GetByID(context.Background(), ada.ID)
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password2")))

	// An authorized actor resets without the old password.
	err = svc.ChangePassword(context.Background(), shared.Principal{UserID: admin.ID}, ada.UserUUID, ChangePasswordRequest{NewPassword: "password3"})
	require.NoError(t, err)

	stranger, err := svc.Register(context.Background(), CreateUserRequest{Username: "eve", Email: "eve@example.com", Password: "password1"})
	require.NoError(t, err)
	err = svc.ChangePassword(context.Background(), shared.Principal{UserID: stranger.ID}, ada.UserUUID, ChangePasswordRequest{NewPassword: "password4"})
	require.ErrorIs(t, err, shared.ErrForbidden)
}

func TestUpdateAvatarStoresImage(t *testing.T) {
	repo := newMemoryRepo()
	root := t.TempDir()
	store := storage.NewFSStore(root, nil)
	svc := NewService(repo, rbac.NewResolver(&stubAccess{}, nil), store, nil, nil, nil)

	ada, err := svc.Register(context.Background(), CreateUserRequest{Username: "ada", Email: "ada@example.com", Password: "password1"})
	require.NoError(t, err)

	updated, err := svc.UpdateAvatar(context.Background(), shared.Principal{UserID: ada.ID}, ada.UserUUID, "me.PNG", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(updated.AvatarImage, "avatar_"))
	require.True(t, strings.HasSuffix(updated.AvatarImage, ".png"))

	onDisk := filepath.Join(root, "content", "users", ada.UserUUID, "avatars", updated.AvatarImage)
	data, err := os.ReadFile(onDisk)
	require.NoError(t, err)
	require.Equal(t, "png-bytes", string(data))
}

func TestDeleteSchedulesMediaCleanup(t *testing.T) {
	repo := newMemoryRepo()
	access := &stubAccess{grants: map[int64][]rbac.RoleGrant{}}
	jobs := &recordingJobs{}
	svc := NewService(repo, rbac.NewResolver(access, nil), nil, jobs, nil, nil)

	ada, err := svc.Register(context.Background(), CreateUserRequest{Username: "ada", Email: "ada@example.com", Password: "password1"})
	require.NoError(t, err)
	admin, err := svc.Register(context.Background(), CreateUserRequest{Username: "root", Email: "root@example.com", Password: "password1"})
	require.NoError(t, err)
	access.grants[admin.ID] = userAdminGrant()

	err = svc.Delete(context.Background(), shared.Principal{UserID: admin.ID}, ada.UserUUID)
	require.NoError(t, err)
	_, err = repo.GetByID(context.Background(), ada.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Equal(t, []string{"users"}, jobs.namespaces)
	require.Equal(t, []string{ada.UserUUID}, jobs.owners)
}
