package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification channel types
const (
	NotificationTypeEmail = "email"
	NotificationTypeSMS   = "sms"
)

// Notification represents a message recorded for a user by the system or an
// admin (awards, bidding reminders)
type Notification struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"` // recipient
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	Type      string         `gorm:"not null" json:"type"` // email, sms
	Content   string         `gorm:"type:text;not null" json:"content"`
	SenderID  uint           `gorm:"not null;index" json:"sender_id"`
	Sender    User           `gorm:"foreignKey:SenderID" json:"sender"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}
