package models

import "time"

// NotificationType is the activity that produced a notification.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
	NotificationMention NotificationType = "mention"
)

// Notification is an activity record addressed to RecipientID.
type Notification struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RecipientID uint             `gorm:"not null;index:idx_notification_inbox,priority:1" json:"recipient_id"`
	SenderID    uint             `gorm:"not null" json:"sender_id"`
	Sender      User             `gorm:"foreignKey:SenderID;constraint:OnDelete:CASCADE" json:"sender"`
	Recipient   User             `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE" json:"-"`
	Type        NotificationType `gorm:"size:20;not null" json:"notification_type"`
	PostID      *uint            `gorm:"index" json:"post_id,omitempty"`
	Text        string           `gorm:"size:255;not null" json:"text"`
	IsRead      bool             `gorm:"not null;default:false;index:idx_notification_inbox,priority:2" json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}
