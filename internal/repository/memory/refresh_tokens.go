package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crmdesk/reply-service/internal/domain"
	"github.com/crmdesk/reply-service/internal/repository"
)

// RefreshTokenRepository is an in-memory repository.RefreshTokenRepository.
type RefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]domain.RefreshToken
}

// NewRefreshTokenRepository returns an empty store.
func NewRefreshTokenRepository() *RefreshTokenRepository {
	return &RefreshTokenRepository{tokens: make(map[string]domain.RefreshToken)}
}

var _ repository.RefreshTokenRepository = (*RefreshTokenRepository)(nil)

func (r *RefreshTokenRepository) Create(_ context.Context, token *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(token)
}

func (r *RefreshTokenRepository) insertLocked(token *domain.RefreshToken) error {
	for _, existing := range r.tokens {
		if existing.TokenHash == token.TokenHash {
			return errDuplicate
		}
	}
	token.ID = uuid.NewString()
	token.CreatedAt = time.Now().UTC()
	r.tokens[token.ID] = *token
	return nil
}

func (r *RefreshTokenRepository) GetByHash(_ context.Context, hash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.TokenHash == hash {
			t := token
			return &t, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *RefreshTokenRepository) Rotate(_ context.Context, oldID string, rotatedAt time.Time, next *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.tokens[oldID]
	if !ok || old.RotatedAt != nil {
		return pgx.ErrNoRows
	}
	if err := r.insertLocked(next); err != nil {
		return err
	}
	at := rotatedAt
	old.RotatedAt = &at
	r.tokens[oldID] = old
	return nil
}

func (r *RefreshTokenRepository) DeleteByUserAndHash(_ context.Context, userID, hash string) (int64, error) {
	return r.deleteWhere(func(t domain.RefreshToken) bool {
		return t.UserID == userID && t.TokenHash == hash
	}), nil
}

func (r *RefreshTokenRepository) DeleteByUser(_ context.Context, userID string) (int64, error) {
	return r.deleteWhere(func(t domain.RefreshToken) bool { return t.UserID == userID }), nil
}

func (r *RefreshTokenRepository) DeleteStale(_ context.Context, now, rotatedBefore time.Time) (int64, error) {
	return r.deleteWhere(func(t domain.RefreshToken) bool {
		return t.ExpiresAt.Before(now) || (t.RotatedAt != nil && t.RotatedAt.Before(rotatedBefore))
	}), nil
}

func (r *RefreshTokenRepository) deleteWhere(match func(domain.RefreshToken) bool) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, token := range r.tokens {
		if match(token) {
			delete(r.tokens, id)
			n++
		}
	}
	return n
}
