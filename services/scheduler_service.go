package services

import (
	"sort"
	"sync"
	"time"
)

// TenderScheduler arms one-shot deferred actions keyed by tender ID. At most
// one pending action exists per key: arming an already-armed key cancels the
// previous action first. Armed actions are in-memory only and do not survive
// a restart; RecoverTenderSchedules re-arms them at boot.
type TenderScheduler interface {
	// Arm schedules action to run once at fireAt, replacing any pending
	// action for the same key. A fireAt already in the past fires
	// immediately.
	Arm(tenderID uint, fireAt time.Time, action func())
	// Cancel removes the pending action for the key if present. Once Cancel
	// returns the old action can no longer fire.
	Cancel(tenderID uint)
	// Pending returns the keys that still have an armed action.
	Pending() []uint
}

// TimerScheduler is the production TenderScheduler backed by time.AfterFunc
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[uint]*time.Timer
}

var (
	schedulerInstance         TenderScheduler
	reminderSchedulerInstance TenderScheduler
)

// InitScheduler initializes the process-wide close and reminder schedulers.
// Close actions are keyed by tender ID, bidding reminders by bid ID; the two
// key spaces must not share a map or a reminder would cancel a pending close.
func InitScheduler() TenderScheduler {
	schedulerInstance = NewTimerScheduler()
	reminderSchedulerInstance = NewTimerScheduler()
	return schedulerInstance
}

// GetScheduler returns the tender-close scheduler instance
func GetScheduler() TenderScheduler {
	return schedulerInstance
}

// SetScheduler sets the tender-close scheduler instance (primarily for testing)
func SetScheduler(s TenderScheduler) {
	schedulerInstance = s
}

// GetReminderScheduler returns the bidding-reminder scheduler instance
func GetReminderScheduler() TenderScheduler {
	return reminderSchedulerInstance
}

// SetReminderScheduler sets the bidding-reminder scheduler instance
// (primarily for testing)
func SetReminderScheduler(s TenderScheduler) {
	reminderSchedulerInstance = s
}

// NewTimerScheduler creates an empty timer-backed scheduler
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{
		timers: make(map[uint]*time.Timer),
	}
}

// Arm schedules action at fireAt for tenderID, cancelling any pending timer
// for the same tender first
func (s *TimerScheduler) Arm(tenderID uint, fireAt time.Time, action func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, exists := s.timers[tenderID]; exists {
		timer.Stop()
	}

	// time.AfterFunc runs immediately for a non-positive duration, which is
	// exactly what a fire-at-past-timestamp arm should do.
	var timer *time.Timer
	timer = time.AfterFunc(time.Until(fireAt), func() {
		s.mu.Lock()
		// A Stop that raced with the firing leaves the callback running;
		// only the handle still registered for the key may act.
		current := s.timers[tenderID] == timer
		if current {
			delete(s.timers, tenderID)
		}
		s.mu.Unlock()
		if current {
			action()
		}
	})
	s.timers[tenderID] = timer
}

// Cancel stops and removes the pending timer for tenderID, if any
func (s *TimerScheduler) Cancel(tenderID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, exists := s.timers[tenderID]; exists {
		timer.Stop()
		delete(s.timers, tenderID)
	}
}

// Pending returns the tender IDs with an armed timer, in ascending order
func (s *TimerScheduler) Pending() []uint {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]uint, 0, len(s.timers))
	for id := range s.timers {
		keys = append(keys, id)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
