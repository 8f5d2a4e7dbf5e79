package model

import "time"

// Notification is an in-app message addressed to one recipient email.
type Notification struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RecipientEmail string    `gorm:"type:varchar(255);not null;index:idx_notification_recipient_read" json:"recipientEmail"`
	Title          string    `gorm:"type:varchar(255);not null" json:"title"`
	Message        string    `gorm:"type:text" json:"message"`
	Link           string    `gorm:"type:varchar(512)" json:"link"`
	Read           bool      `gorm:"column:is_read;not null;default:false;index:idx_notification_recipient_read" json:"read"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
