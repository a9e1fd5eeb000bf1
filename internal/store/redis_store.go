package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-dispatch/internal/models"
)

const (
	bookingKeyPrefix = "booking:request:"
	offerKeyPrefix   = "driver:request:"
)

// casUpdate applies the new state only if the stored record still carries the
// version the caller read. Return codes: 1 applied, -1 key missing, -2 stale
// version. Running it as a script keeps read-check-write atomic on the server.
var casUpdate = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if not cur then
  return -1
end
local obj = cjson.decode(cur)
if tonumber(obj.version) ~= tonumber(ARGV[2]) then
  return -2
end
redis.call('SET', KEYS[1], ARGV[1], 'EX', ARGV[3])
return 1
`)

// RedisStore implements BookingStore on a single Redis instance. Every write
// refreshes the record TTL so state cannot expire mid-dispatch under normal
// operation.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func bookingKey(bookingID string) string { return bookingKeyPrefix + bookingID }

func offerKey(bookingID, driverID string) string {
	return offerKeyPrefix + driverID + ":" + bookingID
}

func (s *RedisStore) Create(ctx context.Context, st *models.DispatchState, ttl time.Duration) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal dispatch state: %w", err)
	}
	ok, err := s.client.SetNX(ctx, bookingKey(st.BookingID), b, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, bookingID string) (*models.DispatchState, error) {
	raw, err := s.client.Get(ctx, bookingKey(bookingID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var st models.DispatchState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("unmarshal dispatch state: %w", err)
	}
	return &st, nil
}

func (s *RedisStore) Update(ctx context.Context, st *models.DispatchState, ttl time.Duration) error {
	readVersion := st.Version
	st.Version++
	b, err := json.Marshal(st)
	if err != nil {
		st.Version = readVersion
		return fmt.Errorf("marshal dispatch state: %w", err)
	}
	res, err := casUpdate.Run(ctx, s.client, []string{bookingKey(st.BookingID)},
		b, readVersion, int(ttl.Seconds())).Int()
	if err != nil {
		st.Version = readVersion
		return fmt.Errorf("redis cas update: %w", err)
	}
	switch res {
	case 1:
		return nil
	case -1:
		st.Version = readVersion
		return ErrNotFound
	default:
		st.Version = readVersion
		return ErrVersionConflict
	}
}

func (s *RedisStore) Delete(ctx context.Context, bookingID string) error {
	if err := s.client.Del(ctx, bookingKey(bookingID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) PutOffer(ctx context.Context, bookingID, driverID string, offer *models.OfferMessage, ttl time.Duration) error {
	b, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("marshal offer: %w", err)
	}
	if err := s.client.Set(ctx, offerKey(bookingID, driverID), b, ttl).Err(); err != nil {
		return fmt.Errorf("redis set offer: %w", err)
	}
	return nil
}

func (s *RedisStore) GetOffer(ctx context.Context, bookingID, driverID string) (*models.OfferMessage, error) {
	raw, err := s.client.Get(ctx, offerKey(bookingID, driverID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get offer: %w", err)
	}
	var offer models.OfferMessage
	if err := json.Unmarshal(raw, &offer); err != nil {
		return nil, fmt.Errorf("unmarshal offer: %w", err)
	}
	return &offer, nil
}

func (s *RedisStore) DeleteOffer(ctx context.Context, bookingID, driverID string) error {
	if err := s.client.Del(ctx, offerKey(bookingID, driverID)).Err(); err != nil {
		return fmt.Errorf("redis del offer: %w", err)
	}
	return nil
}
