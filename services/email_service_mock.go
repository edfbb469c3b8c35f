package services

import (
	"errors"
	"sync"
)

var errMockDeliveryFailed = errors.New("mock delivery failed")

// SentEmail captures one delivery made through the mock
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// MockEmailService is a recording EmailInterface for testing
type MockEmailService struct {
	mu   sync.Mutex
	sent []SentEmail
	fail bool
}

// NewMockEmailService creates a new mock email service
func NewMockEmailService() *MockEmailService {
	return &MockEmailService{}
}

// SetAsMockForTesting sets this mock as the global email service instance
func (m *MockEmailService) SetAsMockForTesting() {
	SetEmailService(m)
}

// FailNextSends makes subsequent Send calls return an error
func (m *MockEmailService) FailNextSends(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// Send records the email instead of delivering it
func (m *MockEmailService) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errMockDeliveryFailed
	}
	m.sent = append(m.sent, SentEmail{To: to, Subject: subject, Body: body})
	return nil
}

// Sent returns a copy of the recorded deliveries
func (m *MockEmailService) Sent() []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

// Clear removes all recorded deliveries
func (m *MockEmailService) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
