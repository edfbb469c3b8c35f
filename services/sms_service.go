package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/doha-pm/dpm-api/config"
)

// SMSInterface defines the interface for outbound SMS delivery
type SMSInterface interface {
	Send(number, text string) error
}

// SMSService posts messages to the bulk SMS gateway
type SMSService struct {
	baseURL string
	tokenID string
	client  *http.Client
}

var smsServiceInstance SMSInterface

// InitSMSService initializes the SMS service from configuration
func InitSMSService() SMSInterface {
	cfg := config.GetConfig()
	smsServiceInstance = &SMSService{
		baseURL: cfg.BulkSMSAPIBaseURL,
		tokenID: cfg.BulkSMSTokenID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	return smsServiceInstance
}

// GetSMSService returns the initialized SMS service instance
func GetSMSService() SMSInterface {
	return smsServiceInstance
}

// SetSMSService sets the SMS service instance (primarily for testing)
func SetSMSService(service SMSInterface) {
	smsServiceInstance = service
}

// Send delivers a single SMS through the gateway
func (s *SMSService) Send(number, text string) error {
	payload, err := json.Marshal(map[string]string{
		"to":   number,
		"body": text,
	})
	if err != nil {
		return fmt.Errorf("failed to encode SMS payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.baseURL+"messages", bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to build SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Basic %s", s.tokenID))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send SMS to %s: %w", number, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("SMS gateway returned status %d", resp.StatusCode)
	}
	return nil
}
