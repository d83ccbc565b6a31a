package repository

import (
	"context"

	"github.com/crmdesk/reply-service/internal/domain"
)

// FeedbackRepository reads feedback items. Feedback CRUD lives outside this service.
type FeedbackRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Feedback, error)
}

type feedbackRepository struct {
	db DB
}

// NewFeedbackRepository builds repository.
func NewFeedbackRepository(db DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) GetByID(ctx context.Context, id string) (*domain.Feedback, error) {
	const query = `
        SELECT f.id, f.customer_id, COALESCE(c.name, ''), f.content, f.assigned_to, f.created_at, f.updated_at
        FROM feedback f
        LEFT JOIN customers c ON c.id = f.customer_id
        WHERE f.id=$1`

	var fb domain.Feedback
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&fb.ID,
		&fb.CustomerID,
		&fb.CustomerName,
		&fb.Content,
		&fb.AssignedTo,
		&fb.CreatedAt,
		&fb.UpdatedAt,
	); err != nil {
		return nil, mapError(err, "feedback")
	}
	return &fb, nil
}
