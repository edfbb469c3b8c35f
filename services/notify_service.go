package services

import (
	"log"

	"github.com/doha-pm/dpm-api/models"
	"gorm.io/gorm"
)

// RecordNotification stores a notification row for a user. Failures are
// logged and swallowed: notifications are a best-effort side channel and
// must never fail or roll back the state transition that triggered them.
func RecordNotification(db *gorm.DB, userID uint, notificationType, content string, senderID uint) {
	notification := models.Notification{
		UserID:   userID,
		Type:     notificationType,
		Content:  content,
		SenderID: senderID,
	}
	if err := db.Create(&notification).Error; err != nil {
		log.Printf("Failed to record notification for user %d: %v", userID, err)
	}
}

// NotifyByEmail sends a best-effort email. Delivery failure is logged and
// never surfaced to the caller.
func NotifyByEmail(to, subject, body string) {
	sender := GetEmailService()
	if sender == nil {
		log.Printf("Email service not initialized, dropping email to %s", to)
		return
	}
	if err := sender.Send(to, subject, body); err != nil {
		log.Printf("Failed to send email to %s: %v", to, err)
	}
}

// NotifyBySMS sends a best-effort SMS. Delivery failure is logged and never
// surfaced to the caller.
func NotifyBySMS(number, text string) {
	sender := GetSMSService()
	if sender == nil {
		log.Printf("SMS service not initialized, dropping SMS to %s", number)
		return
	}
	if err := sender.Send(number, text); err != nil {
		log.Printf("Failed to send SMS to %s: %v", number, err)
	}
}
