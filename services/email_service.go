package services

import (
	"fmt"
	"net/smtp"

	"github.com/doha-pm/dpm-api/config"
)

// EmailInterface defines the interface for outbound email delivery
type EmailInterface interface {
	Send(to, subject, body string) error
}

// EmailService sends mail over SMTP using the configured account
type EmailService struct {
	host     string
	user     string
	password string
}

var emailServiceInstance EmailInterface

// InitEmailService initializes the email service from configuration
func InitEmailService() EmailInterface {
	cfg := config.GetConfig()
	emailServiceInstance = &EmailService{
		host:     cfg.EmailHost,
		user:     cfg.EmailUser,
		password: cfg.EmailPassword,
	}
	return emailServiceInstance
}

// GetEmailService returns the initialized email service instance
func GetEmailService() EmailInterface {
	return emailServiceInstance
}

// SetEmailService sets the email service instance (primarily for testing)
func SetEmailService(service EmailInterface) {
	emailServiceInstance = service
}

// Send delivers a single email
func (s *EmailService) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s", s.user, to, subject, body)

	auth := smtp.PlainAuth("", s.user, s.password, s.host)
	addr := fmt.Sprintf("%s:465", s.host)

	if err := smtp.SendMail(addr, auth, s.user, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
