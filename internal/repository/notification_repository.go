package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crmdesk/reply-service/internal/domain"
)

// NotificationRepository persists per-user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	// SetStatus moves a notification to status, stamping deliveredAt when delivering.
	SetStatus(ctx context.Context, id string, status domain.NotificationStatus, at time.Time) error
	// MarkRead flips PENDING/DELIVERED rows owned by userID to READ. id nil means all of them.
	MarkRead(ctx context.Context, userID string, id *string, at time.Time) (int64, error)
	ListForUser(ctx context.Context, userID string, status *domain.NotificationStatus, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type notificationRepository struct {
	db DB
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(db DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, user_id, type, title, message, payload, status, delivered_at, read_at, created_at`

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, type, title, message, payload, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query,
		n.UserID,
		n.Type,
		n.Title,
		n.Message,
		n.Payload,
		n.Status,
	).Scan(&n.ID, &n.CreatedAt)
	return mapError(err, "notification")
}

func (r *notificationRepository) SetStatus(ctx context.Context, id string, status domain.NotificationStatus, at time.Time) error {
	const query = `
        UPDATE notifications SET status=$1,
            delivered_at=CASE WHEN $1='DELIVERED' THEN $2 ELSE delivered_at END
        WHERE id=$3`
	cmd, err := r.db.Exec(ctx, query, status, at, id)
	if err != nil {
		return mapError(err, "notification")
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID string, id *string, at time.Time) (int64, error) {
	const query = `
        UPDATE notifications SET status='READ', read_at=$1
        WHERE user_id=$2 AND ($3::uuid IS NULL OR id=$3) AND status IN ('PENDING','DELIVERED')`
	cmd, err := r.db.Exec(ctx, query, at, userID, id)
	if err != nil {
		// A malformed id matches nothing.
		if err = mapError(err, "notification"); IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID string, status *domain.NotificationStatus, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications
        WHERE user_id=$1 AND ($2::text IS NULL OR status=$2)
        ORDER BY created_at DESC LIMIT $3`
	rows, err := r.db.Query(ctx, query, userID, status, limit)
	if err != nil {
		return nil, mapError(err, "notification")
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.Payload,
			&n.Status,
			&n.DeliveredAt,
			&n.ReadAt,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND status IN ('PENDING','DELIVERED')`,
		userID).Scan(&count)
	return count, err
}

func (r *notificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE status='READ' AND created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
