package store

import (
	"context"
	"errors"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

var (
	// ErrNotFound means the booking has no live dispatch record; callers
	// treat this as "too late", not a fault.
	ErrNotFound = errors.New("dispatch state not found")
	// ErrExists is returned by Create when a record for the booking is
	// already present.
	ErrExists = errors.New("dispatch state already exists")
	// ErrVersionConflict means another writer got there first. The caller
	// must re-read and re-run its transition logic, never blindly overwrite.
	ErrVersionConflict = errors.New("dispatch state version conflict")
)

// BookingStore holds the mutable per-booking dispatch record plus the
// ephemeral offer record for the candidate currently in flight. All
// operations are keyed by booking id; bookings are independent, so no
// cross-booking coordination is required.
//
// Update is conditioned on the version carried by the passed state: the
// write applies only if the stored version still matches, and the store bumps
// both the stored and the in-memory version on success. This conditioned
// write is the serialization point for racing accept/reject/timeout signals.
type BookingStore interface {
	Create(ctx context.Context, st *models.DispatchState, ttl time.Duration) error
	Get(ctx context.Context, bookingID string) (*models.DispatchState, error)
	Update(ctx context.Context, st *models.DispatchState, ttl time.Duration) error
	Delete(ctx context.Context, bookingID string) error

	PutOffer(ctx context.Context, bookingID, driverID string, offer *models.OfferMessage, ttl time.Duration) error
	GetOffer(ctx context.Context, bookingID, driverID string) (*models.OfferMessage, error)
	DeleteOffer(ctx context.Context, bookingID, driverID string) error
}

// IdempotencyGate deduplicates inbound requests by caller-supplied request id
// within a bounded window. Not a durable guarantee: redelivery after the
// window re-admits the request, so callers needing stronger protection must
// pick a window longer than the worst expected redelivery delay.
type IdempotencyGate interface {
	// MarkProcessed returns true exactly once per request id within ttl;
	// concurrent callers racing on the same id see exactly one true.
	MarkProcessed(ctx context.Context, requestID string, ttl time.Duration) (bool, error)
}
