package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/learnhub-api/pkg/errors"
)

// DefaultCodeTTL is how long a registration or verification code stays valid.
const DefaultCodeTTL = 24 * time.Hour

// placeholderUsername addresses registration emails sent before an account exists.
const placeholderUsername = "user"

var codeSpace = big.NewInt(1_000_000)

// verificationNotifier delivers codes to the user.
type verificationNotifier interface {
	SendVerificationEmail(ctx context.Context, to, username, code string) error
}

type pendingCode struct {
	code      string
	expiresAt time.Time
}

// VerificationStore keeps registration codes in memory, one per email. Codes
// do not survive a restart.
type VerificationStore struct {
	mu      sync.Mutex
	entries map[string]pendingCode

	ttl      time.Duration
	notifier verificationNotifier
	logger   *zap.Logger
	now      func() time.Time
	generate func() (string, error)
}

// NewVerificationStore constructs an empty store.
func NewVerificationStore(notifier verificationNotifier, ttl time.Duration, logger *zap.Logger) *VerificationStore {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationStore{
		entries:  make(map[string]pendingCode),
		ttl:      ttl,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		generate: randomCode,
	}
}

// Issue creates a fresh code for email, replacing any earlier one, and sends
// it. Delivery failures are logged and do not fail the call.
func (s *VerificationStore) Issue(ctx context.Context, email string) (string, error) {
	code, err := s.generate()
	if err != nil {
		return "", appErrors.Internal(err, "failed to generate verification code")
	}

	s.mu.Lock()
	s.entries[email] = pendingCode{code: code, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()

	if s.notifier != nil {
		if err := s.notifier.SendVerificationEmail(ctx, email, placeholderUsername, code); err != nil {
			s.logger.Warn("failed to send verification code", zap.String("email", email), zap.Error(err))
		}
	}
	return code, nil
}

// Consume checks code against the pending entry for email. A mismatch keeps
// the entry; expiry and success remove it, so a code is accepted at most once.
func (s *VerificationStore) Consume(email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[email]
	if !ok {
		return appErrors.ErrNoPendingCode
	}
	if subtle.ConstantTimeCompare([]byte(entry.code), []byte(code)) != 1 {
		return appErrors.ErrCodeMismatch
	}
	delete(s.entries, email)
	if s.now().After(entry.expiresAt) {
		return appErrors.ErrCodeExpired
	}
	return nil
}

// PurgeExpired drops every expired entry and reports how many were removed.
func (s *VerificationStore) PurgeExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for email, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, email)
			removed++
		}
	}
	return removed
}

// Run purges expired entries every interval until ctx is done.
func (s *VerificationStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.PurgeExpired(); n > 0 {
				s.logger.Debug("purged expired verification codes", zap.Int("count", n))
			}
		}
	}
}

// Len returns the number of pending entries.
func (s *VerificationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// randomCode returns a uniformly distributed six digit code.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
