// Package relay forwards post-assignment ride lifecycle events to the
// parties' realtime channels. These events never touch dispatch state; the
// booking is already out of the engine's hands by the time they arrive.
package relay

import (
	"context"
	"log/slog"

	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/notify"
	"github.com/example/ride-dispatch/internal/payments"
	"github.com/example/ride-dispatch/internal/presence"
)

type Relay struct {
	notifier notify.Notifier
	presence presence.Directory
	captor   payments.Captor
	log      *slog.Logger
}

func New(notifier notify.Notifier, dir presence.Directory, captor payments.Captor, log *slog.Logger) *Relay {
	if captor == nil {
		captor = payments.Nop{}
	}
	return &Relay{notifier: notifier, presence: dir, captor: captor, log: log}
}

// RideStarted tells the rider the driver verified the pin and is en route.
func (r *Relay) RideStarted(_ context.Context, ev models.RideLifecycle) error {
	payload := map[string]any{
		"rideId":    ev.RideID,
		"bookingId": ev.BookingID,
		"message":   "Your ride has started",
	}
	if err := r.notifier.Push(notify.UserChannel(ev.UserID), "ride:started", payload); err != nil {
		r.log.Debug("ride started push failed", "ride_id", ev.RideID, "user_id", ev.UserID, "error", err)
	}
	r.log.Info("ride started", "ride_id", ev.RideID, "booking_id", ev.BookingID)
	return nil
}

// RideCompleted settles the fare hold, returns the driver to the available
// pool and notifies both parties. Push and presence failures are logged; the
// event is still acknowledged so it is not redelivered forever.
func (r *Relay) RideCompleted(ctx context.Context, ev models.RideLifecycle) error {
	if ev.PaymentIntentID != "" {
		if err := r.captor.Capture(ctx, ev.PaymentIntentID); err != nil {
			r.log.Error("fare capture failed",
				"ride_id", ev.RideID, "payment_intent", ev.PaymentIntentID, "error", err)
		}
	}

	coords, err := r.presence.Geo(ctx, ev.DriverID, presence.PoolOnRide)
	if err != nil {
		r.log.Warn("on-ride geo lookup failed", "driver_id", ev.DriverID, "error", err)
	}
	details, err := r.presence.Details(ctx, ev.DriverID, presence.PoolOnRide)
	if err != nil {
		r.log.Warn("on-ride details lookup failed", "driver_id", ev.DriverID, "error", err)
	}
	if err := r.presence.Remove(ctx, ev.DriverID, presence.PoolOnRide); err != nil {
		r.log.Warn("on-ride pool removal failed", "driver_id", ev.DriverID, "error", err)
	}
	if details != nil {
		if err := r.presence.SetDetails(ctx, details, presence.PoolAvailable); err != nil {
			r.log.Warn("available details store failed", "driver_id", ev.DriverID, "error", err)
		}
	}
	if coords != nil {
		if err := r.presence.AddGeo(ctx, ev.DriverID, coords.Lat, coords.Lng, presence.PoolAvailable); err != nil {
			r.log.Warn("available geo store failed", "driver_id", ev.DriverID, "error", err)
		}
	}
	if err := r.presence.Heartbeat(ctx, ev.DriverID); err != nil {
		r.log.Warn("heartbeat refresh failed", "driver_id", ev.DriverID, "error", err)
	}

	payload := map[string]any{
		"rideId":    ev.RideID,
		"bookingId": ev.BookingID,
		"fare":      ev.Fare,
		"message":   "Ride completed",
	}
	if err := r.notifier.Push(notify.UserChannel(ev.UserID), "ride:completed", payload); err != nil {
		r.log.Debug("ride completed push failed", "ride_id", ev.RideID, "user_id", ev.UserID, "error", err)
	}
	if err := r.notifier.Push(notify.DriverChannel(ev.DriverID), "ride:completed", payload); err != nil {
		r.log.Debug("ride completed push failed", "ride_id", ev.RideID, "driver_id", ev.DriverID, "error", err)
	}
	r.log.Info("ride completed", "ride_id", ev.RideID, "driver_id", ev.DriverID)
	return nil
}

// RideCancelled releases the fare hold when the cancelled booking carries a
// payment intent. The dispatch-side cancellation (state transition and
// notification pushes) has already run by the time this is called.
func (r *Relay) RideCancelled(ctx context.Context, req models.CancelRequest) error {
	if req.PaymentIntentID == "" {
		return nil
	}
	if err := r.captor.Release(ctx, req.PaymentIntentID); err != nil {
		r.log.Error("fare hold release failed",
			"booking_id", req.BookingID, "payment_intent", req.PaymentIntentID, "error", err)
		return nil
	}
	r.log.Info("fare hold released", "booking_id", req.BookingID, "payment_intent", req.PaymentIntentID)
	return nil
}

// PaymentCompleted relays the settlement confirmation to both parties.
func (r *Relay) PaymentCompleted(_ context.Context, ev models.PaymentEvent) error {
	payload := map[string]any{
		"bookingId": ev.BookingID,
		"amount":    ev.Amount,
		"method":    ev.Method,
		"message":   "Payment completed",
	}
	if err := r.notifier.Push(notify.UserChannel(ev.UserID), "payment:conformation", payload); err != nil {
		r.log.Debug("payment push failed", "booking_id", ev.BookingID, "user_id", ev.UserID, "error", err)
	}
	if ev.DriverID != "" {
		if err := r.notifier.Push(notify.DriverChannel(ev.DriverID), "payment:conformation", payload); err != nil {
			r.log.Debug("payment push failed", "booking_id", ev.BookingID, "driver_id", ev.DriverID, "error", err)
		}
	}
	r.log.Info("payment relayed", "booking_id", ev.BookingID)
	return nil
}
