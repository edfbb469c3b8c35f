package services

import (
	"sort"
	"sync"
	"time"
)

// MockScheduler is a recording TenderScheduler for testing. Armed actions
// never fire on their own; tests trigger them with Fire.
type MockScheduler struct {
	mu      sync.Mutex
	entries map[uint]mockEntry
}

type mockEntry struct {
	fireAt time.Time
	action func()
}

// NewMockScheduler creates an empty mock scheduler
func NewMockScheduler() *MockScheduler {
	return &MockScheduler{
		entries: make(map[uint]mockEntry),
	}
}

// SetAsMockForTesting sets this mock as the global scheduler instance
func (m *MockScheduler) SetAsMockForTesting() {
	SetScheduler(m)
}

// Arm records the action, replacing any pending one for the key
func (m *MockScheduler) Arm(tenderID uint, fireAt time.Time, action func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[tenderID] = mockEntry{fireAt: fireAt, action: action}
}

// Cancel removes the recorded action for the key
func (m *MockScheduler) Cancel(tenderID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, tenderID)
}

// Pending returns the keys with a recorded action, in ascending order
func (m *MockScheduler) Pending() []uint {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]uint, 0, len(m.entries))
	for id := range m.entries {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// FireAtFor returns the recorded fire time for a key (for test assertions)
func (m *MockScheduler) FireAtFor(tenderID uint) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, exists := m.entries[tenderID]
	return entry.fireAt, exists
}

// Fire runs and removes the recorded action for a key, simulating the timer
// going off. It reports whether an action was armed.
func (m *MockScheduler) Fire(tenderID uint) bool {
	m.mu.Lock()
	entry, exists := m.entries[tenderID]
	if exists {
		delete(m.entries, tenderID)
	}
	m.mu.Unlock()

	if !exists {
		return false
	}
	entry.action()
	return true
}

// Clear removes all recorded actions
func (m *MockScheduler) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[uint]mockEntry)
}
