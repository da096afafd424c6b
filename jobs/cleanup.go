package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/atheneum-lms/atheneum/internal/jobs"
	"github.com/atheneum-lms/atheneum/internal/shared"
	"github.com/atheneum-lms/atheneum/internal/storage"
)

const cleanupLockTTL = 5 * time.Minute

// MediaCleanupJob removes everything an owner stored once the owning row
// is gone. A redis lock keeps concurrent workers from sweeping the same
// owner twice.
type MediaCleanupJob struct {
	Store   storage.Store
	Redis   *redis.Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewMediaCleanupJob wires dependencies for the cleanup handler.
func NewMediaCleanupJob(store storage.Store, rdb *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *MediaCleanupJob {
	return &MediaCleanupJob{Store: store, Redis: rdb, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeMediaCleanup tasks.
func (j *MediaCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("media cleanup: store not configured")
	}
	var payload MediaCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	ns := storage.Namespace(payload.Namespace)
	switch ns {
	case storage.NamespaceOrgs, storage.NamespaceUsers, storage.NamespaceCourses:
	default:
		return asynq.SkipRetry
	}
	if payload.OwnerUUID == "" {
		return asynq.SkipRetry
	}

	if j.Redis != nil {
		key := shared.MediaCleanupLockKey(payload.Namespace, payload.OwnerUUID)
		acquired, err := j.Redis.SetNX(ctx, key, "1", cleanupLockTTL).Result()
		if err != nil {
			return err
		}
		if !acquired {
			return nil
		}
		defer j.Redis.Del(context.WithoutCancel(ctx), key)
	}

	track := j.Metrics.Track(TaskTypeMediaCleanup)
	err := j.Store.RemoveOwner(ctx, ns, payload.OwnerUUID)
	if err == nil {
		j.Metrics.MarkCleanup(payload.Namespace)
		if j.Logger != nil {
			j.Logger.Info("media cleanup",
				slog.String("namespace", payload.Namespace),
				slog.String("owner", payload.OwnerUUID))
		}
	}
	return track.End(err)
}
