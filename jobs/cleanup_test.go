package jobs

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/atheneum-lms/atheneum/internal/shared"
	"github.com/atheneum-lms/atheneum/internal/storage"
)

type fakeStore struct {
	removed []string
	err     error
}

func (f *fakeStore) Save(_ context.Context, key storage.Key, _ io.Reader, _ []string) (string, error) {
	return key.Filename, nil
}

func (f *fakeStore) Remove(context.Context, storage.Key) error { return nil }

func (f *fakeStore) RemoveOwner(_ context.Context, ns storage.Namespace, ownerUUID string) error {
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, string(ns)+"/"+ownerUUID)
	return nil
}

func TestMediaCleanupRemovesOwner(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := &fakeStore{}
	job := NewMediaCleanupJob(store, rdb, nil, nil)

	task, err := NewMediaCleanupTask("users", "user_abc")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []string{"users/user_abc"}, store.removed)
	require.False(t, mr.Exists(shared.MediaCleanupLockKey("users", "user_abc")))
}

func TestMediaCleanupSkipsWhenLocked(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	lockKey := shared.MediaCleanupLockKey("orgs", "org_x")
	require.NoError(t, rdb.Set(context.Background(), lockKey, "1", time.Minute).Err())

	store := &fakeStore{}
	job := NewMediaCleanupJob(store, rdb, nil, nil)

	task, err := NewMediaCleanupTask("orgs", "org_x")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Empty(t, store.removed)
	require.True(t, mr.Exists(lockKey))
}

func TestMediaCleanupRejectsUnknownNamespace(t *testing.T) {
	job := NewMediaCleanupJob(&fakeStore{}, nil, nil, nil)

	task, err := NewMediaCleanupTask("secrets", "owner_x")
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)

	task, err = NewMediaCleanupTask("users", "")
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}
