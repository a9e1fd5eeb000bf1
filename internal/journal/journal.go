package journal

import (
	"context"
	"sync"
	"time"
)

// Terminal outcome labels recorded per booking.
const (
	OutcomeAssigned  = "assigned"
	OutcomeExhausted = "exhausted"
	OutcomeCancelled = "cancelled"
)

// Entry is one terminal dispatch outcome. The journal is an audit sink only;
// the live dispatch state in Redis stays authoritative.
type Entry struct {
	BookingID  string
	RideID     string
	Outcome    string
	DriverID   string
	Reason     string
	Candidates int
	Tried      int
	At         time.Time
}

type Journal interface {
	Record(ctx context.Context, e Entry) error
}

// Nop discards entries; used when no database is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

// Memory keeps entries in process, for tests.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Record(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
