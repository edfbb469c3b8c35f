package services

import "sync"

// SentSMS captures one delivery made through the mock
type SentSMS struct {
	Number string
	Text   string
}

// MockSMSService is a recording SMSInterface for testing
type MockSMSService struct {
	mu   sync.Mutex
	sent []SentSMS
}

// NewMockSMSService creates a new mock SMS service
func NewMockSMSService() *MockSMSService {
	return &MockSMSService{}
}

// SetAsMockForTesting sets this mock as the global SMS service instance
func (m *MockSMSService) SetAsMockForTesting() {
	SetSMSService(m)
}

// Send records the SMS instead of delivering it
func (m *MockSMSService) Send(number, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentSMS{Number: number, Text: text})
	return nil
}

// Sent returns a copy of the recorded deliveries
func (m *MockSMSService) Sent() []SentSMS {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentSMS, len(m.sent))
	copy(out, m.sent)
	return out
}
