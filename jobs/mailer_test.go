package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []SendEmailPayload
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, SendEmailPayload{To: to, Subject: subject, Body: body})
	return nil
}

func TestMailJobDeliversPayload(t *testing.T) {
	sender := &fakeSender{}
	job := NewMailJob(sender, nil, nil)

	task, err := NewSendEmailTask(SendEmailPayload{To: "student@example.com", Subject: "Welcome", Body: "Hello"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, sender.sent, 1)
	require.Equal(t, "student@example.com", sender.sent[0].To)
	require.Equal(t, "Welcome", sender.sent[0].Subject)
}

func TestMailJobSkipsJunkPayload(t *testing.T) {
	sender := &fakeSender{}
	job := NewMailJob(sender, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{broken")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	task, err := NewSendEmailTask(SendEmailPayload{Subject: "no recipient"})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
	require.Empty(t, sender.sent)
}

func TestMailJobPropagatesSendFailure(t *testing.T) {
	wantErr := errors.New("relay down")
	job := NewMailJob(&fakeSender{err: wantErr}, nil, nil)

	task, err := NewSendEmailTask(SendEmailPayload{To: "a@b.c"})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), wantErr)
}
