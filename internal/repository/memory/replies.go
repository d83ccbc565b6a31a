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

// ReplyRepository is an in-memory repository.ReplyRepository. Conditional
// updates are checked and applied under one lock.
type ReplyRepository struct {
	mu      sync.RWMutex
	replies map[string]domain.Reply
	seq     int64
	order   map[string]int64
	now     func() time.Time
}

// NewReplyRepository returns an empty store.
func NewReplyRepository() *ReplyRepository {
	return &ReplyRepository{
		replies: make(map[string]domain.Reply),
		order:   make(map[string]int64),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.ReplyRepository = (*ReplyRepository)(nil)

func (r *ReplyRepository) Create(_ context.Context, reply *domain.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}
	now := r.now()
	reply.CreatedAt, reply.UpdatedAt = now, now
	r.seq++
	r.order[reply.ID] = r.seq
	r.replies[reply.ID] = *reply
	return nil
}

func (r *ReplyRepository) GetByID(_ context.Context, id string) (*domain.Reply, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reply, ok := r.replies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &reply, nil
}

func (r *ReplyRepository) List(_ context.Context, filter repository.ReplyFilter) ([]domain.Reply, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Reply
	for _, reply := range r.replies {
		if filter.FeedbackID != nil && reply.FeedbackID != *filter.FeedbackID {
			continue
		}
		if filter.SubmittedBy != nil && reply.SubmittedBy != *filter.SubmittedBy {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, reply.Status) {
			continue
		}
		result = append(result, reply)
	}
	sort.Slice(result, func(i, j int) bool { return r.order[result[i].ID] > r.order[result[j].ID] })
	return page(result, filter.Limit, filter.Offset, 20), nil
}

func (r *ReplyRepository) ListSubmitted(_ context.Context) ([]domain.Reply, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []domain.Reply
	for _, reply := range r.replies {
		if reply.Status == domain.ReplyStatusSubmitted {
			result = append(result, reply)
		}
	}
	sort.Slice(result, func(i, j int) bool { return r.order[result[i].ID] < r.order[result[j].ID] })
	return result, nil
}

func (r *ReplyRepository) UpdateContent(_ context.Context, id string, expected domain.ReplyStatus, content string) (*domain.Reply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reply, ok := r.replies[id]
	if !ok || reply.Status != expected {
		return nil, pgx.ErrNoRows
	}
	reply.Content = content
	reply.UpdatedAt = r.now()
	r.replies[id] = reply
	return &reply, nil
}

func (r *ReplyRepository) Transition(_ context.Context, t repository.ReplyTransition) (*domain.Reply, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reply, ok := r.replies[t.ID]
	if !ok || reply.Status != t.From {
		return nil, pgx.ErrNoRows
	}
	reply.Status = t.To
	if t.ReviewedBy != nil {
		reply.ReviewedBy = t.ReviewedBy
	}
	if t.ReviewedAt != nil {
		reply.ReviewedAt = t.ReviewedAt
	}
	if t.Comment != nil {
		reply.Comment = t.Comment
	}
	if t.Content != nil {
		reply.Content = *t.Content
	}
	reply.UpdatedAt = r.now()
	r.replies[t.ID] = reply
	return &reply, nil
}

func (r *ReplyRepository) CountByStatus(_ context.Context) (map[domain.ReplyStatus]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.ReplyStatus]int)
	for _, reply := range r.replies {
		counts[reply.Status]++
	}
	return counts, nil
}

func containsStatus(statuses []domain.ReplyStatus, s domain.ReplyStatus) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func page[T any](items []T, limit, offset, def int) []T {
	if limit <= 0 {
		limit = def
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
