package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/atheneum-lms/atheneum/internal/jobs"
)

const defaultAuditRetainDays = 365

// AuditPruneJob deletes audit rows older than the retention window. Runs
// from the scheduler, usually nightly.
type AuditPruneJob struct {
	Pool    *pgxpool.Pool
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAuditPruneJob wires dependencies for the prune handler.
func NewAuditPruneJob(pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditPruneJob {
	return &AuditPruneJob{Pool: pool, Logger: logger, Metrics: metrics}
}

// Handle processes TaskTypeAuditPrune tasks.
func (j *AuditPruneJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("audit prune: pool not configured")
	}
	var payload AuditPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	days := payload.RetainDays
	if days <= 0 {
		days = defaultAuditRetainDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	track := j.Metrics.Track(TaskTypeAuditPrune)
	tag, err := j.Pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, cutoff)
	if err == nil && j.Logger != nil {
		j.Logger.Info("audit prune",
			slog.Int64("deleted", tag.RowsAffected()),
			slog.Time("cutoff", cutoff))
	}
	return track.End(err)
}
