package domain

import "time"

type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
	NotificationTypeError   NotificationType = "error"
)

type Notification struct {
	ID             int64            `db:"id" json:"id"`
	UserID         int64            `db:"user_id" json:"user_id"`
	Title          string           `db:"title" json:"title"`
	Message        string           `db:"message" json:"message"`
	Type           NotificationType `db:"type" json:"type"`
	Read           bool             `db:"read" json:"read"`
	RelatedOrderID *string          `db:"related_order_id" json:"related_order_id"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}
