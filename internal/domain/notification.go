package domain

import "time"

// NotificationStatus tracks delivery of an in-app notification.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "PENDING"
	NotificationDelivered NotificationStatus = "DELIVERED"
	NotificationRead      NotificationStatus = "READ"
	NotificationFailed    NotificationStatus = "FAILED"
)

// NotificationType classifies notifications for clients.
type NotificationType string

const (
	NotificationReplyApproved    NotificationType = "REPLY_APPROVED"
	NotificationReplyRejected    NotificationType = "REPLY_REJECTED"
	NotificationReplySubmitted   NotificationType = "REPLY_SUBMITTED"
	NotificationFeedbackAssigned NotificationType = "FEEDBACK_ASSIGNED"
	NotificationCustomerUpdated  NotificationType = "CUSTOMER_UPDATED"
)

// Notification is addressed to a single user.
type Notification struct {
	ID          string
	UserID      string
	Type        NotificationType
	Title       string
	Message     string
	Payload     map[string]any
	Status      NotificationStatus
	DeliveredAt *time.Time
	ReadAt      *time.Time
	CreatedAt   time.Time
}
