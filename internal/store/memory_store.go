package store

import (
	"context"
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

type memEntry struct {
	state    models.DispatchState
	deadline time.Time
}

type memOffer struct {
	offer    models.OfferMessage
	deadline time.Time
}

// MemoryStore is the in-process BookingStore used in tests and local runs
// without Redis. Same version-conditioned update semantics.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	offers  map[string]memOffer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memEntry),
		offers:  make(map[string]memOffer),
	}
}

func (m *MemoryStore) Create(_ context.Context, st *models.DispatchState, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[st.BookingID]; ok && time.Now().Before(e.deadline) {
		return ErrExists
	}
	m.entries[st.BookingID] = memEntry{state: *st, deadline: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, bookingID string) (*models.DispatchState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[bookingID]
	if !ok || time.Now().After(e.deadline) {
		delete(m.entries, bookingID)
		return nil, ErrNotFound
	}
	st := e.state
	st.Candidates = append([]models.Candidate(nil), e.state.Candidates...)
	return &st, nil
}

func (m *MemoryStore) Update(_ context.Context, st *models.DispatchState, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[st.BookingID]
	if !ok || time.Now().After(e.deadline) {
		delete(m.entries, st.BookingID)
		return ErrNotFound
	}
	if e.state.Version != st.Version {
		return ErrVersionConflict
	}
	st.Version++
	m.entries[st.BookingID] = memEntry{state: *st, deadline: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, bookingID)
	return nil
}

func (m *MemoryStore) PutOffer(_ context.Context, bookingID, driverID string, offer *models.OfferMessage, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offers[driverID+":"+bookingID] = memOffer{offer: *offer, deadline: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryStore) GetOffer(_ context.Context, bookingID, driverID string) (*models.OfferMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offers[driverID+":"+bookingID]
	if !ok || time.Now().After(o.deadline) {
		delete(m.offers, driverID+":"+bookingID)
		return nil, ErrNotFound
	}
	offer := o.offer
	return &offer, nil
}

func (m *MemoryStore) DeleteOffer(_ context.Context, bookingID, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.offers, driverID+":"+bookingID)
	return nil
}
