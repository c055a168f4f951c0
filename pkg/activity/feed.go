// Package activity keeps a bounded in-memory feed of recent auth and
// dashboard events, with fan-out to live subscribers.
package activity

import (
	"sync"
	"time"

	"github.com/segmentio/ksuid"
)

type EventType string

const (
	EventLogin          EventType = "login"
	EventLogout         EventType = "logout"
	EventTokenRefreshed EventType = "token_refreshed"
	EventDashboard      EventType = "dashboard_viewed"
)

type Event struct {
	ID      string    `json:"id"`
	Type    EventType `json:"type"`
	UserID  int64     `json:"userId"`
	Message string    `json:"message,omitempty"`
	At      time.Time `json:"at"`
}

// Feed is a fixed-capacity ring of events. Slow subscribers are skipped
// rather than blocking the writer.
type Feed struct {
	lock        sync.RWMutex
	events      []Event
	capacity    int
	subscribers map[chan Event]struct{}
	now         func() time.Time
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 64
	}
	return &Feed{
		capacity:    capacity,
		subscribers: make(map[chan Event]struct{}),
		now:         time.Now,
	}
}

// Record appends an event and notifies subscribers.
func (f *Feed) Record(eventType EventType, userID int64, message string) Event {
	event := Event{
		ID:      ksuid.New().String(),
		Type:    eventType,
		UserID:  userID,
		Message: message,
	}

	f.lock.Lock()
	event.At = f.now()
	f.events = append(f.events, event)
	if len(f.events) > f.capacity {
		f.events = f.events[len(f.events)-f.capacity:]
	}
	for ch := range f.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
	f.lock.Unlock()

	return event
}

// Recent returns the user's latest events, newest first.
func (f *Feed) Recent(userID int64, limit int) []Event {
	f.lock.RLock()
	defer f.lock.RUnlock()

	recent := make([]Event, 0, limit)
	for i := len(f.events) - 1; i >= 0 && len(recent) < limit; i-- {
		if f.events[i].UserID == userID {
			recent = append(recent, f.events[i])
		}
	}
	return recent
}

// Subscribe registers a live event channel. The returned func cancels the
// subscription and closes the channel.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	f.lock.Lock()
	f.subscribers[ch] = struct{}{}
	f.lock.Unlock()

	cancel := func() {
		f.lock.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.lock.Unlock()
	}

	return ch, cancel
}
