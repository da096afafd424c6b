package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeMediaCleanup is the task type for sweeping stored media after
	// its owner was deleted.
	TaskTypeMediaCleanup = "media:cleanup"
	// TaskTypeAuditPrune is the task type for trimming old audit rows.
	TaskTypeAuditPrune = "audit:prune"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task for one outgoing email.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// MediaCleanupPayload names the owner whose media should be removed.
type MediaCleanupPayload struct {
	Namespace string `json:"namespace"`
	OwnerUUID string `json:"owner_uuid"`
}

// NewMediaCleanupTask constructs an Asynq task for a media sweep.
func NewMediaCleanupTask(namespace, ownerUUID string) (*asynq.Task, error) {
	data, err := json.Marshal(MediaCleanupPayload{Namespace: namespace, OwnerUUID: ownerUUID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeMediaCleanup, data), nil
}

// AuditPrunePayload carries the retention window in days. Zero means the
// handler default applies.
type AuditPrunePayload struct {
	RetainDays int `json:"retain_days"`
}

// NewAuditPruneTask constructs an Asynq task for the audit retention sweep.
func NewAuditPruneTask(retainDays int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditPrunePayload{RetainDays: retainDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditPrune, data, asynq.Queue(QueueDefault)), nil
}
