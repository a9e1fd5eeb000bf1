package dispatch

import (
	"sync"
	"time"
)

type timerEntry struct {
	driverID string
	gen      int64
	timer    *time.Timer
}

// TimerTable tracks the single in-flight response timer per booking, fenced
// by a generation number (the state version at offer time). Arming with a
// newer generation physically cancels the prior timer; an Arm that lost a
// race to a newer offer is refused, so it can never cancel the live
// candidate's timer.
type TimerTable struct {
	mu     sync.Mutex
	timers map[string]*timerEntry
}

func NewTimerTable() *TimerTable {
	return &TimerTable{timers: make(map[string]*timerEntry)}
}

// Arm schedules fn after d for the (bookingID, driverID) pair and reports
// whether the timer was installed. It returns false when a timer with an
// equal or newer generation already holds the booking.
func (t *TimerTable) Arm(bookingID, driverID string, gen int64, d time.Duration, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.timers[bookingID]; ok {
		if cur.gen >= gen {
			return false
		}
		cur.timer.Stop()
	}
	e := &timerEntry{driverID: driverID, gen: gen}
	e.timer = time.AfterFunc(d, func() {
		t.drop(bookingID, e)
		fn()
	})
	t.timers[bookingID] = e
	return true
}

// Cancel stops the booking's timer if it is armed for this driver and
// reports whether it was.
func (t *TimerTable) Cancel(bookingID, driverID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.timers[bookingID]
	if !ok || cur.driverID != driverID {
		return false
	}
	cur.timer.Stop()
	delete(t.timers, bookingID)
	return true
}

// CancelBooking stops whatever timer is still armed for the booking.
func (t *TimerTable) CancelBooking(bookingID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.timers[bookingID]; ok {
		cur.timer.Stop()
		delete(t.timers, bookingID)
	}
}

func (t *TimerTable) drop(bookingID string, e *timerEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.timers[bookingID]; ok && cur == e {
		delete(t.timers, bookingID)
	}
}
