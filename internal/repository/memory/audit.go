package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/repository"
)

// AuditRepository is an in-memory, append-only repository.AuditRepository.
type AuditRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditLogEntry
	now     func() time.Time
}

// NewAuditRepository returns an empty log.
func NewAuditRepository() *AuditRepository {
	return &AuditRepository{now: func() time.Time { return time.Now().UTC() }}
}

var _ repository.AuditRepository = (*AuditRepository)(nil)

func (r *AuditRepository) Create(_ context.Context, entry *domain.AuditLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.NewString()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *AuditRepository) GetByID(_ context.Context, id string) (*domain.AuditLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.entries {
		if entry.ID == id {
			e := entry
			return &e, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *AuditRepository) List(_ context.Context, filter repository.AuditFilter) ([]domain.AuditLogEntry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action := strings.ToLower(strings.TrimSpace(filter.Action))
	resource := strings.ToLower(strings.TrimSpace(filter.Resource))

	var matched []domain.AuditLogEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if filter.ActorID != nil && (entry.ActorID == nil || *entry.ActorID != *filter.ActorID) {
			continue
		}
		if action != "" && !strings.Contains(strings.ToLower(entry.Action), action) {
			continue
		}
		if resource != "" && !strings.Contains(strings.ToLower(entry.Resource), resource) {
			continue
		}
		if filter.From != nil && entry.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && entry.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, entry)
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return page(matched, filter.Limit, filter.Offset, 50), len(matched), nil
}

func (r *AuditRepository) ListByResource(_ context.Context, resource string) ([]domain.AuditLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.AuditLogEntry
	for _, entry := range r.entries {
		if entry.Resource == resource {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *AuditRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.entries[:0]
	var n int64
	for _, entry := range r.entries {
		if entry.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, entry)
	}
	r.entries = kept
	return n, nil
}

// Entries returns a copy of the log in insertion order.
func (r *AuditRepository) Entries() []domain.AuditLogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.AuditLogEntry(nil), r.entries...)
}
