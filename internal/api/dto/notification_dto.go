package dto

import (
	"time"

	"github.com/crmdesk/reply-service/internal/domain"
)

// NotificationResponse is the public view of a notification.
type NotificationResponse struct {
	ID          string                    `json:"id"`
	Type        domain.NotificationType   `json:"type"`
	Title       string                    `json:"title"`
	Message     string                    `json:"message"`
	Payload     map[string]any            `json:"payload"`
	Status      domain.NotificationStatus `json:"status"`
	DeliveredAt *time.Time                `json:"delivered_at"`
	ReadAt      *time.Time                `json:"read_at"`
	CreatedAt   time.Time                 `json:"created_at"`
}

// NewNotificationList maps notifications.
func NewNotificationList(items []domain.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{
			ID:          n.ID,
			Type:        n.Type,
			Title:       n.Title,
			Message:     n.Message,
			Payload:     n.Payload,
			Status:      n.Status,
			DeliveredAt: n.DeliveredAt,
			ReadAt:      n.ReadAt,
			CreatedAt:   n.CreatedAt,
		})
	}
	return out
}
