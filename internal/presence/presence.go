package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-dispatch/internal/models"
)

// Pool discriminates the two presence sets: drivers waiting for work and
// drivers currently on a ride.
type Pool string

const (
	PoolAvailable Pool = "available"
	PoolOnRide    Pool = "onRide"
)

const (
	heartbeatPrefix  = "driver:heartbeat:"
	geoKeyAvailable  = "onlineDrivers:geo"
	geoKeyOnRide     = "onRideDrivers:geo"
	detailsAvailable = "onlineDriver:details:"
	detailsOnRide    = "onRideDriver:details:"
)

// Directory is the engine's view of driver presence. Heartbeat entries expire
// on their own; the driver client refreshes them.
type Directory interface {
	Heartbeat(ctx context.Context, driverID string) error
	IsOnline(ctx context.Context, driverID string) (bool, error)
	AddGeo(ctx context.Context, driverID string, lat, lng float64, pool Pool) error
	Geo(ctx context.Context, driverID string, pool Pool) (*models.Coord, error)
	SetDetails(ctx context.Context, details *models.DriverProfile, pool Pool) error
	Details(ctx context.Context, driverID string, pool Pool) (*models.DriverProfile, error)
	Remove(ctx context.Context, driverID string, pool Pool) error
}

// RedisDirectory keeps heartbeats as TTL keys, positions in a GEO set per
// pool and detail blobs as JSON values per pool.
type RedisDirectory struct {
	client       redis.Cmdable
	heartbeatTTL time.Duration
}

func NewRedisDirectory(client redis.Cmdable, heartbeatTTL time.Duration) *RedisDirectory {
	if heartbeatTTL <= 0 {
		heartbeatTTL = 120 * time.Second
	}
	return &RedisDirectory{client: client, heartbeatTTL: heartbeatTTL}
}

func geoKey(pool Pool) string {
	if pool == PoolOnRide {
		return geoKeyOnRide
	}
	return geoKeyAvailable
}

func detailsKey(driverID string, pool Pool) string {
	if pool == PoolOnRide {
		return detailsOnRide + driverID
	}
	return detailsAvailable + driverID
}

func (d *RedisDirectory) Heartbeat(ctx context.Context, driverID string) error {
	key := heartbeatPrefix + driverID
	if err := d.client.Set(ctx, key, time.Now().UnixMilli(), d.heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("redis set heartbeat: %w", err)
	}
	return nil
}

func (d *RedisDirectory) IsOnline(ctx context.Context, driverID string) (bool, error) {
	n, err := d.client.Exists(ctx, heartbeatPrefix+driverID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists heartbeat: %w", err)
	}
	return n > 0, nil
}

func (d *RedisDirectory) AddGeo(ctx context.Context, driverID string, lat, lng float64, pool Pool) error {
	loc := &redis.GeoLocation{Name: driverID, Latitude: lat, Longitude: lng}
	if err := d.client.GeoAdd(ctx, geoKey(pool), loc).Err(); err != nil {
		return fmt.Errorf("redis geoadd: %w", err)
	}
	return nil
}

func (d *RedisDirectory) Geo(ctx context.Context, driverID string, pool Pool) (*models.Coord, error) {
	pos, err := d.client.GeoPos(ctx, geoKey(pool), driverID).Result()
	if err != nil {
		return nil, fmt.Errorf("redis geopos: %w", err)
	}
	if len(pos) == 0 || pos[0] == nil {
		return nil, nil
	}
	return &models.Coord{Lat: pos[0].Latitude, Lng: pos[0].Longitude}, nil
}

func (d *RedisDirectory) SetDetails(ctx context.Context, details *models.DriverProfile, pool Pool) error {
	b, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal driver details: %w", err)
	}
	if err := d.client.Set(ctx, detailsKey(details.DriverID, pool), b, d.heartbeatTTL).Err(); err != nil {
		return fmt.Errorf("redis set details: %w", err)
	}
	return nil
}

func (d *RedisDirectory) Details(ctx context.Context, driverID string, pool Pool) (*models.DriverProfile, error) {
	raw, err := d.client.Get(ctx, detailsKey(driverID, pool)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get details: %w", err)
	}
	var details models.DriverProfile
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, fmt.Errorf("unmarshal driver details: %w", err)
	}
	return &details, nil
}

func (d *RedisDirectory) Remove(ctx context.Context, driverID string, pool Pool) error {
	if err := d.client.Del(ctx, heartbeatPrefix+driverID, detailsKey(driverID, pool)).Err(); err != nil {
		return fmt.Errorf("redis del presence: %w", err)
	}
	if err := d.client.ZRem(ctx, geoKey(pool), driverID).Err(); err != nil {
		return fmt.Errorf("redis zrem geo: %w", err)
	}
	return nil
}

// StaleGeoMembers lists drivers that still sit in the pool's geo set but
// whose heartbeat has lapsed. Used by the sweeper.
func (d *RedisDirectory) StaleGeoMembers(ctx context.Context, pool Pool) ([]string, error) {
	members, err := d.client.ZRange(ctx, geoKey(pool), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrange geo: %w", err)
	}
	var stale []string
	for _, id := range members {
		online, err := d.IsOnline(ctx, id)
		if err != nil {
			return nil, err
		}
		if !online {
			stale = append(stale, id)
		}
	}
	return stale, nil
}
