package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crmdesk/reply-service/internal/domain"
)

// RefreshTokenRepository manages refresh token persistence. Tokens are stored hashed.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *domain.RefreshToken) error
	GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error)
	// Rotate marks the old token rotated and stores next in one transaction.
	// pgx.ErrNoRows when the old token was already rotated or removed.
	Rotate(ctx context.Context, oldID string, rotatedAt time.Time, next *domain.RefreshToken) error
	DeleteByUserAndHash(ctx context.Context, userID, hash string) (int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
	// DeleteStale removes tokens that expired or were rotated before cutoff.
	DeleteStale(ctx context.Context, now, rotatedBefore time.Time) (int64, error)
}

type refreshTokenRepository struct {
	db DB
}

// NewRefreshTokenRepository constructs repository.
func NewRefreshTokenRepository(db DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

const insertRefreshToken = `
        INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	err := r.db.QueryRow(ctx, insertRefreshToken,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
	return mapError(err, "refresh token")
}

func (r *refreshTokenRepository) GetByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	const query = `
        SELECT id, user_id, token_hash, expires_at, rotated_at, created_at
        FROM refresh_tokens WHERE token_hash=$1`
	var token domain.RefreshToken
	if err := r.db.QueryRow(ctx, query, hash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.RotatedAt,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *refreshTokenRepository) Rotate(ctx context.Context, oldID string, rotatedAt time.Time, next *domain.RefreshToken) error {
	err := WithTx(ctx, r.db, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx,
			`UPDATE refresh_tokens SET rotated_at=$1 WHERE id=$2 AND rotated_at IS NULL`,
			rotatedAt, oldID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return tx.QueryRow(ctx, insertRefreshToken,
			next.UserID,
			next.TokenHash,
			next.ExpiresAt,
		).Scan(&next.ID, &next.CreatedAt)
	})
	return mapError(err, "refresh token")
}

func (r *refreshTokenRepository) DeleteByUserAndHash(ctx context.Context, userID, hash string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id=$1 AND token_hash=$2`, userID, hash)
	if err != nil {
		return 0, mapError(err, "refresh token")
	}
	return cmd.RowsAffected(), nil
}

func (r *refreshTokenRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE user_id=$1`, userID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *refreshTokenRepository) DeleteStale(ctx context.Context, now, rotatedBefore time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1 OR rotated_at < $2`,
		now, rotatedBefore)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
