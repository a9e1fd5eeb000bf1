package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/ride-dispatch/internal/config"
	"github.com/example/ride-dispatch/internal/dispatch"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/observability"
)

// Dispatcher is the slice of the engine the inbound routes need.
type Dispatcher interface {
	Submit(ctx context.Context, req *models.DispatchRequest) error
	Cancel(ctx context.Context, req models.CancelRequest) error
}

// Relay handles the thin pass-through events that do not touch dispatch
// state.
type Relay interface {
	RideStarted(ctx context.Context, ev models.RideLifecycle) error
	RideCompleted(ctx context.Context, ev models.RideLifecycle) error
	RideCancelled(ctx context.Context, req models.CancelRequest) error
	PaymentCompleted(ctx context.Context, ev models.PaymentEvent) error
}

// Routes binds inbound topics to their handlers. Duplicate submissions are
// acknowledged silently; everything else that fails lands in the DLQ.
func Routes(cfg config.Config, eng Dispatcher, relay Relay, log *slog.Logger) map[string]HandlerFunc {
	return map[string]HandlerFunc{
		cfg.BookingRequestTopic: func(ctx context.Context, payload []byte) error {
			var req models.DispatchRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				return fmt.Errorf("decode booking request: %w", err)
			}
			err := eng.Submit(ctx, &req)
			if errors.Is(err, dispatch.ErrDuplicateRequest) {
				observability.DuplicatesTotal.Inc()
				log.Info("duplicate booking request dropped", "booking_id", req.BookingID, "request_id", req.RequestID)
				return nil
			}
			return err
		},
		cfg.RideCancelTopic: func(ctx context.Context, payload []byte) error {
			var req models.CancelRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				return fmt.Errorf("decode cancel request: %w", err)
			}
			if err := eng.Cancel(ctx, req); err != nil {
				return err
			}
			return relay.RideCancelled(ctx, req)
		},
		cfg.RideStartTopic: func(ctx context.Context, payload []byte) error {
			var ev models.RideLifecycle
			if err := json.Unmarshal(payload, &ev); err != nil {
				return fmt.Errorf("decode ride start: %w", err)
			}
			return relay.RideStarted(ctx, ev)
		},
		cfg.RideCompletedTopic: func(ctx context.Context, payload []byte) error {
			var ev models.RideLifecycle
			if err := json.Unmarshal(payload, &ev); err != nil {
				return fmt.Errorf("decode ride completed: %w", err)
			}
			return relay.RideCompleted(ctx, ev)
		},
		cfg.PaymentTopic: func(ctx context.Context, payload []byte) error {
			var ev models.PaymentEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				return fmt.Errorf("decode payment event: %w", err)
			}
			return relay.PaymentCompleted(ctx, ev)
		},
		cfg.DocExpiredTopic: func(ctx context.Context, payload []byte) error {
			// Consumed so the queue drains; the driver service owns the
			// follow-up workflow.
			log.Debug("driver document expiry acknowledged")
			return nil
		},
	}
}
