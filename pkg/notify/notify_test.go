package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/learnhub-api/pkg/jobs"
)

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []VerificationEmail
	fails int
	done  chan struct{}
}

func (r *recordingNotifier) SendVerificationEmail(ctx context.Context, to, username, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fails > 0 {
		r.fails--
		return errors.New("smtp unavailable")
	}
	r.sent = append(r.sent, VerificationEmail{To: to, Username: username, Code: code})
	if r.done != nil {
		close(r.done)
	}
	return nil
}

func TestLogNotifierWritesCode(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.SendVerificationEmail(context.Background(), "ana@example.com", "user", "004213"))

	entries := logs.FilterMessage("verification email").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "004213", entries[0].ContextMap()["code"])
	assert.Equal(t, "ana@example.com", entries[0].ContextMap()["to"])
}

func TestLogNotifierRequiresRecipient(t *testing.T) {
	n := NewLogNotifier(nil)
	assert.Error(t, n.SendVerificationEmail(context.Background(), "", "user", "123456"))
}

func TestQueueNotifierDeliversAsynchronously(t *testing.T) {
	delivery := &recordingNotifier{fails: 1, done: make(chan struct{})}
	n, queue := NewQueueNotifier(delivery, jobs.QueueConfig{Workers: 1, MaxRetries: 2, RetryDelay: time.Millisecond})
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, n.SendVerificationEmail(context.Background(), "ana@example.com", "ana", "123456"))

	select {
	case <-delivery.done:
	case <-time.After(time.Second):
		t.Fatal("email was not delivered")
	}
	delivery.mu.Lock()
	defer delivery.mu.Unlock()
	require.Len(t, delivery.sent, 1)
	assert.Equal(t, VerificationEmail{To: "ana@example.com", Username: "ana", Code: "123456"}, delivery.sent[0])
}

func TestQueueNotifierReportsStoppedQueue(t *testing.T) {
	n, _ := NewQueueNotifier(&recordingNotifier{}, jobs.QueueConfig{})
	err := n.SendVerificationEmail(context.Background(), "ana@example.com", "ana", "123456")
	assert.ErrorIs(t, err, jobs.ErrQueueStopped)
}
