package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/repository"
)

// NotificationRepository is an in-memory repository.NotificationRepository.
type NotificationRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Notification
	seq   int64
	order map[string]int64
	now   func() time.Time
}

// NewNotificationRepository returns an empty store.
func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{
		items: make(map[string]domain.Notification),
		order: make(map[string]int64),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.NotificationRepository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Create(_ context.Context, n *domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n.ID = uuid.NewString()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now()
	}
	r.seq++
	r.order[n.ID] = r.seq
	r.items[n.ID] = *n
	return nil
}

func (r *NotificationRepository) SetStatus(_ context.Context, id string, status domain.NotificationStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[id]
	if !ok {
		return pgx.ErrNoRows
	}
	n.Status = status
	if status == domain.NotificationDelivered {
		t := at
		n.DeliveredAt = &t
	}
	r.items[id] = n
	return nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, userID string, id *string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for key, n := range r.items {
		if n.UserID != userID || (id != nil && key != *id) {
			continue
		}
		if n.Status != domain.NotificationPending && n.Status != domain.NotificationDelivered {
			continue
		}
		t := at
		n.Status = domain.NotificationRead
		n.ReadAt = &t
		r.items[key] = n
		count++
	}
	return count, nil
}

func (r *NotificationRepository) ListForUser(_ context.Context, userID string, status *domain.NotificationStatus, limit int) ([]domain.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Notification
	for _, n := range r.items {
		if n.UserID != userID || (status != nil && n.Status != *status) {
			continue
		}
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return r.order[result[i].ID] > r.order[result[j].ID] })
	return page(result, limit, 0, 50), nil
}

func (r *NotificationRepository) CountUnread(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, n := range r.items {
		if n.UserID == userID && (n.Status == domain.NotificationPending || n.Status == domain.NotificationDelivered) {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepository) DeleteReadBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for id, n := range r.items {
		if n.Status == domain.NotificationRead && n.CreatedAt.Before(cutoff) {
			delete(r.items, id)
			delete(r.order, id)
			count++
		}
	}
	return count, nil
}
