// Package notify delivers account emails. Delivery is best effort: callers
// log failures and carry on.
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/learnhub-api/pkg/jobs"
)

const jobVerificationEmail = "verification_email"

// Notifier sends verification codes to users.
type Notifier interface {
	SendVerificationEmail(ctx context.Context, to, username, code string) error
}

// VerificationEmail is the payload handed to a delivery backend.
type VerificationEmail struct {
	To       string
	Username string
	Code     string
}

// LogNotifier writes the message to the application log instead of an SMTP relay.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// SendVerificationEmail logs the verification code for the recipient.
func (n *LogNotifier) SendVerificationEmail(ctx context.Context, to, username, code string) error {
	if to == "" {
		return errors.New("notify: recipient is required")
	}
	n.logger.Info("verification email",
		zap.String("to", to),
		zap.String("username", username),
		zap.String("code", code),
	)
	return nil
}

// QueueNotifier hands messages to a background worker pool so request
// handlers never wait on delivery.
type QueueNotifier struct {
	queue *jobs.Queue
}

// NewQueueNotifier builds the worker pool around the delivering notifier.
// The returned queue must be started by the caller.
func NewQueueNotifier(delivery Notifier, cfg jobs.QueueConfig) (*QueueNotifier, *jobs.Queue) {
	queue := jobs.NewQueue("notify", func(ctx context.Context, job jobs.Job) error {
		msg, ok := job.Payload.(VerificationEmail)
		if !ok {
			return fmt.Errorf("notify: unexpected payload %T", job.Payload)
		}
		return delivery.SendVerificationEmail(ctx, msg.To, msg.Username, msg.Code)
	}, cfg)
	return &QueueNotifier{queue: queue}, queue
}

// SendVerificationEmail enqueues the message. Errors only report that the
// queue could not accept it.
func (n *QueueNotifier) SendVerificationEmail(ctx context.Context, to, username, code string) error {
	return n.queue.Enqueue(jobs.Job{
		Type:    jobVerificationEmail,
		Payload: VerificationEmail{To: to, Username: username, Code: code},
	})
}
