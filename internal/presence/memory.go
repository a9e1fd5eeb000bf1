package presence

import (
	"context"
	"sync"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

// MemoryDirectory mirrors RedisDirectory semantics in process, for local runs
// and tests. Heartbeats expire by wall clock rather than key TTL.
type MemoryDirectory struct {
	mu           sync.RWMutex
	heartbeatTTL time.Duration
	heartbeats   map[string]time.Time
	geo          map[Pool]map[string]models.Coord
	details      map[Pool]map[string]*models.DriverProfile
}

func NewMemoryDirectory(heartbeatTTL time.Duration) *MemoryDirectory {
	if heartbeatTTL <= 0 {
		heartbeatTTL = 120 * time.Second
	}
	return &MemoryDirectory{
		heartbeatTTL: heartbeatTTL,
		heartbeats:   make(map[string]time.Time),
		geo: map[Pool]map[string]models.Coord{
			PoolAvailable: {},
			PoolOnRide:    {},
		},
		details: map[Pool]map[string]*models.DriverProfile{
			PoolAvailable: {},
			PoolOnRide:    {},
		},
	}
}

func (d *MemoryDirectory) Heartbeat(_ context.Context, driverID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.heartbeats[driverID] = time.Now().Add(d.heartbeatTTL)
	return nil
}

func (d *MemoryDirectory) IsOnline(_ context.Context, driverID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	deadline, ok := d.heartbeats[driverID]
	return ok && time.Now().Before(deadline), nil
}

func (d *MemoryDirectory) AddGeo(_ context.Context, driverID string, lat, lng float64, pool Pool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.geo[pool][driverID] = models.Coord{Lat: lat, Lng: lng}
	return nil
}

func (d *MemoryDirectory) Geo(_ context.Context, driverID string, pool Pool) (*models.Coord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.geo[pool][driverID]
	if !ok {
		return nil, nil
	}
	return &models.Coord{Lat: c.Lat, Lng: c.Lng}, nil
}

func (d *MemoryDirectory) SetDetails(_ context.Context, details *models.DriverProfile, pool Pool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := *details
	d.details[pool][details.DriverID] = &cp
	return nil
}

func (d *MemoryDirectory) Details(_ context.Context, driverID string, pool Pool) (*models.DriverProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.details[pool][driverID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (d *MemoryDirectory) Remove(_ context.Context, driverID string, pool Pool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.heartbeats, driverID)
	delete(d.geo[pool], driverID)
	delete(d.details[pool], driverID)
	return nil
}
