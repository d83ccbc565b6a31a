package security

import (
	"context"
	"sync"
	"time"

	"github.com/crmdesk/reply-service/internal/domain"
)

// MemoryAttemptStore keeps attempt history in process. Suitable for a single instance.
type MemoryAttemptStore struct {
	mu       sync.Mutex
	attempts map[string][]domain.LoginAttempt
}

// NewMemoryAttemptStore returns an empty store.
func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{attempts: make(map[string][]domain.LoginAttempt)}
}

func (s *MemoryAttemptStore) Record(_ context.Context, key string, attempt domain.LoginAttempt, pruneBefore, windowStart time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(prune(s.attempts[key], pruneBefore), attempt)
	s.attempts[key] = history
	return countFailures(history, windowStart), nil
}

func (s *MemoryAttemptStore) CountFailures(_ context.Context, key string, windowStart time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return countFailures(s.attempts[key], windowStart), nil
}

func (s *MemoryAttemptStore) Sweep(_ context.Context, pruneBefore time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for key, history := range s.attempts {
		kept := prune(history, pruneBefore)
		if len(kept) == 0 {
			delete(s.attempts, key)
			evicted++
			continue
		}
		s.attempts[key] = kept
	}
	return evicted, nil
}

// Len returns the number of tracked keys.
func (s *MemoryAttemptStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attempts)
}

func prune(history []domain.LoginAttempt, before time.Time) []domain.LoginAttempt {
	kept := history[:0:0]
	for _, a := range history {
		if a.Timestamp.After(before) {
			kept = append(kept, a)
		}
	}
	return kept
}

func countFailures(history []domain.LoginAttempt, windowStart time.Time) int {
	n := 0
	for _, a := range history {
		if !a.Success && a.Timestamp.After(windowStart) {
			n++
		}
	}
	return n
}
