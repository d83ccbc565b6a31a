package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/repository"
)

// FeedbackRepository is an in-memory repository.FeedbackRepository.
type FeedbackRepository struct {
	mu       sync.RWMutex
	feedback map[string]domain.Feedback
}

// NewFeedbackRepository returns a store holding items.
func NewFeedbackRepository(items ...domain.Feedback) *FeedbackRepository {
	r := &FeedbackRepository{feedback: make(map[string]domain.Feedback, len(items))}
	for _, fb := range items {
		r.Put(fb)
	}
	return r
}

// SampleFeedback returns the items a database-less dev server starts with.
func SampleFeedback(now time.Time) []domain.Feedback {
	return []domain.Feedback{
		{
			ID:           "00000000-0000-4000-8000-000000000001",
			CustomerID:   "00000000-0000-4000-8000-0000000000c1",
			CustomerName: "Acme Corp",
			Content:      "Our order arrived two weeks late and nobody answered the support line.",
			CreatedAt:    now,
			UpdatedAt:    now,
		},
		{
			ID:        "00000000-0000-4000-8000-000000000002",
			Content:   "The mobile app logs me out every few minutes.",
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

var _ repository.FeedbackRepository = (*FeedbackRepository)(nil)

// Put stores fb, replacing any item with the same id.
func (r *FeedbackRepository) Put(fb domain.Feedback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feedback[fb.ID] = fb
}

func (r *FeedbackRepository) GetByID(_ context.Context, id string) (*domain.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fb, ok := r.feedback[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &fb, nil
}
