package models

import (
	"time"
)

// Notification messages appended by graph mutations.
const (
	NotificationFollowed  = "followed you."
	NotificationLiked     = "liked your photo."
	NotificationCommented = "commented your photo."
)

// Notification is one entry of a user's mailbox.
type Notification struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	NotifiedBy uint      `gorm:"not null;index" json:"notifiedBy"`
	NotifiedTo uint      `gorm:"not null;index:idx_notifications_mailbox" json:"notifiedTo"`
	Message    string    `gorm:"not null" json:"notification"`
	New        bool      `gorm:"column:is_new;not null;default:true" json:"new"`
	CreatedAt  time.Time `gorm:"index:idx_notifications_mailbox" json:"createdAt"`
}
