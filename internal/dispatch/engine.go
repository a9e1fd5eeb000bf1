package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/ride-dispatch/internal/journal"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/notify"
	"github.com/example/ride-dispatch/internal/observability"
	"github.com/example/ride-dispatch/internal/presence"
	"github.com/example/ride-dispatch/internal/store"
)

// Publisher is the outbound event-bus surface the engine needs.
type Publisher interface {
	DriverOutcome(ctx context.Context, out models.DriverOutcome) error
	Assignment(ctx context.Context, a models.Assignment) error
	UserNotification(ctx context.Context, n models.UserNotification) error
	BookingStatus(ctx context.Context, u models.BookingStatusUpdate) error
}

// Options tunes the engine. Zero values fall back to production defaults.
type Options struct {
	// OfferTimeout applies when the request does not carry its own window.
	OfferTimeout time.Duration
	// SkipStagger is the pause between consecutive offline skips so a long
	// run of offline candidates does not starve other work.
	SkipStagger time.Duration
	// DedupWindow bounds the idempotency gate.
	DedupWindow time.Duration
	// StateGraceTTL pads the state TTL beyond the worst-case remaining
	// offer time.
	StateGraceTTL time.Duration
	// OfferTTLSlack pads the ephemeral offer record past its response
	// window.
	OfferTTLSlack time.Duration
}

func (o *Options) withDefaults() {
	if o.OfferTimeout <= 0 {
		o.OfferTimeout = 30 * time.Second
	}
	if o.SkipStagger < 0 {
		o.SkipStagger = 0
	} else if o.SkipStagger == 0 {
		o.SkipStagger = time.Second
	}
	if o.DedupWindow <= 0 {
		o.DedupWindow = 10 * time.Minute
	}
	if o.StateGraceTTL <= 0 {
		o.StateGraceTTL = 2 * time.Minute
	}
	if o.OfferTTLSlack <= 0 {
		o.OfferTTLSlack = 30 * time.Second
	}
}

// Engine drives each booking through its ranked candidate list, one offer at
// a time, to a terminal outcome. It owns no global state beyond the timer
// table; every mutation goes through the store's version-conditioned update,
// which serializes racing accept/reject/timeout signals. State transitions
// commit before notification side effects and are never rolled back by a
// failed publish.
type Engine struct {
	store    store.BookingStore
	gate     store.IdempotencyGate
	presence presence.Directory
	notifier notify.Notifier
	bus      Publisher
	journal  journal.Journal
	timers   *TimerTable
	opts     Options
	log      *slog.Logger
}

func NewEngine(
	st store.BookingStore,
	gate store.IdempotencyGate,
	dir presence.Directory,
	notifier notify.Notifier,
	bus Publisher,
	jnl journal.Journal,
	opts Options,
	log *slog.Logger,
) *Engine {
	opts.withDefaults()
	if jnl == nil {
		jnl = journal.Nop{}
	}
	return &Engine{
		store:    st,
		gate:     gate,
		presence: dir,
		notifier: notifier,
		bus:      bus,
		journal:  jnl,
		timers:   NewTimerTable(),
		opts:     opts,
		log:      log,
	}
}

// Submit takes a booking through the idempotency gate, creates its dispatch
// record and starts the offer sequence. Duplicates yield
// ErrDuplicateRequest; an empty candidate list exhausts immediately.
func (e *Engine) Submit(ctx context.Context, req *models.DispatchRequest) error {
	if req == nil || req.RequestID == "" {
		return &ValidationError{Field: "requestId"}
	}
	if req.BookingID == "" {
		return &ValidationError{Field: "bookingId"}
	}

	first, err := e.gate.MarkProcessed(ctx, req.RequestID, e.opts.DedupWindow)
	if err != nil {
		return fmt.Errorf("idempotency gate: %w", err)
	}
	if !first {
		return ErrDuplicateRequest
	}

	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	st := &models.DispatchState{
		DispatchRequest: *req,
		Cursor:          0,
		Status:          models.StatusPending,
		Version:         1,
	}
	if err := e.store.Create(ctx, st, e.stateTTL(st)); err != nil {
		if errors.Is(err, store.ErrExists) {
			return ErrDuplicateRequest
		}
		return fmt.Errorf("create dispatch state: %w", err)
	}
	observability.ActiveDispatches.Inc()
	e.log.Info("dispatch started",
		"booking_id", req.BookingID, "ride_id", req.RideID,
		"candidates", len(req.Candidates), "timeout_s", req.TimeoutSeconds)

	return e.advance(ctx, req.BookingID)
}

// advance walks the candidate list from the cursor: skips offline candidates
// with a stagger delay, offers to the first online one and arms its response
// timer, or exhausts the booking when the list runs out.
func (e *Engine) advance(ctx context.Context, bookingID string) error {
	staggered := false
	for {
		if staggered {
			staggered = false
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.opts.SkipStagger):
			}
		}

		st, err := e.store.Get(ctx, bookingID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load dispatch state: %w", err)
		}
		if st.Status.Terminal() {
			return nil
		}

		cand, ok := st.Current()
		if !ok {
			return e.exhaust(ctx, st)
		}

		online, err := e.presence.IsOnline(ctx, cand.DriverID)
		if err != nil {
			return fmt.Errorf("presence lookup: %w", err)
		}
		if !online {
			st.Cursor++
			st.Status = models.StatusPending
			if err := e.store.Update(ctx, st, e.stateTTL(st)); err != nil {
				if errors.Is(err, store.ErrVersionConflict) {
					continue
				}
				if errors.Is(err, store.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("advance past offline candidate: %w", err)
			}
			observability.OfflineSkipsTotal.Inc()
			e.log.Info("candidate offline, skipping",
				"booking_id", bookingID, "driver_id", cand.DriverID, "cursor", st.Cursor)
			staggered = true
			continue
		}

		st.Status = models.StatusOffered
		st.OfferedAt = time.Now().UTC()
		if err := e.store.Update(ctx, st, e.stateTTL(st)); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				continue
			}
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("mark candidate offered: %w", err)
		}

		// The timer arms before the offer leaves the process. A response can
		// only arrive after the push, so no signal for this candidate can
		// race an unarmed or stale timer.
		window := e.offerWindow(st)
		driverID := cand.DriverID
		armed := e.timers.Arm(bookingID, driverID, st.Version, window, func() {
			tctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			e.OnTimeout(tctx, bookingID, driverID)
		})
		if !armed {
			// A newer offer already holds the booking: a racing signal
			// released this candidate and moved on before we got here.
			e.log.Debug("stale offer dropped", "booking_id", bookingID, "driver_id", driverID)
			return nil
		}

		offer := buildOffer(st, cand)
		offer.RequestTimeout = int(window.Seconds())
		if err := e.store.PutOffer(ctx, bookingID, driverID, offer, window+e.opts.OfferTTLSlack); err != nil {
			e.log.Error("offer record store failed",
				"booking_id", bookingID, "driver_id", driverID, "error", err)
		}
		if err := e.notifier.Push(notify.DriverChannel(driverID), "ride:request", offer); err != nil {
			// The timer still runs; an unreachable driver times out like a
			// silent one.
			e.log.Warn("offer push failed",
				"booking_id", bookingID, "driver_id", driverID, "error", err)
		}
		observability.OffersTotal.Inc()
		e.log.Info("offer sent",
			"booking_id", bookingID, "driver_id", driverID,
			"cursor", st.Cursor, "window", window.String())
		return nil
	}
}

// OnTimeout fires when an offered candidate's response window lapses. If the
// candidate is no longer current the accept or reject that beat the timer
// already advanced the booking and this is a no-op.
func (e *Engine) OnTimeout(ctx context.Context, bookingID, driverID string) {
	res, err := e.resolveLoss(ctx, bookingID, driverID, models.ReasonTimeout)
	if err != nil {
		e.log.Error("timeout handling failed",
			"booking_id", bookingID, "driver_id", driverID, "error", err)
		return
	}
	if !res.Success {
		e.log.Debug("stale timeout ignored", "booking_id", bookingID, "driver_id", driverID)
	}
}

// OnReject handles a driver's explicit rejection. Idempotent: a pair that is
// no longer current gets a "not current" result without mutating state.
func (e *Engine) OnReject(ctx context.Context, bookingID, driverID string) (models.ActionResult, error) {
	e.timers.Cancel(bookingID, driverID)
	return e.resolveLoss(ctx, bookingID, driverID, models.ReasonRejection)
}

// resolveLoss advances the cursor past the offered candidate, publishes the
// outcome and re-enters advance. Exactly one of accept/reject/timeout wins
// per candidate: the conditioned update decides, everyone else sees "not
// current".
func (e *Engine) resolveLoss(ctx context.Context, bookingID, driverID, reason string) (models.ActionResult, error) {
	for {
		st, err := e.store.Get(ctx, bookingID)
		if errors.Is(err, store.ErrNotFound) {
			return notCurrent(bookingID), nil
		}
		if err != nil {
			return models.ActionResult{}, fmt.Errorf("load dispatch state: %w", err)
		}
		cand, ok := st.Current()
		if st.Status != models.StatusOffered || !ok || cand.DriverID != driverID {
			return notCurrent(bookingID), nil
		}

		offeredAt := st.OfferedAt
		st.Cursor++
		st.Status = models.StatusPending
		st.OfferedAt = time.Time{}
		if err := e.store.Update(ctx, st, e.stateTTL(st)); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				continue
			}
			if errors.Is(err, store.ErrNotFound) {
				return notCurrent(bookingID), nil
			}
			return models.ActionResult{}, fmt.Errorf("advance past %s: %w", reason, err)
		}

		if !offeredAt.IsZero() {
			observability.OfferResponseSeconds.Observe(time.Since(offeredAt).Seconds())
		}
		observability.DriverOutcomesTotal.WithLabelValues(reason).Inc()
		if err := e.store.DeleteOffer(ctx, bookingID, driverID); err != nil {
			e.log.Warn("offer record cleanup failed",
				"booking_id", bookingID, "driver_id", driverID, "error", err)
		}
		out := models.DriverOutcome{
			DriverID:  driverID,
			BookingID: bookingID,
			RequestID: fmt.Sprintf("%s_%d", reason, time.Now().UnixMilli()),
			Reason:    reason,
			Timestamp: time.Now().UTC(),
		}
		if err := e.bus.DriverOutcome(ctx, out); err != nil {
			e.log.Error("driver outcome publish failed",
				"booking_id", bookingID, "driver_id", driverID, "reason", reason, "error", err)
		}
		e.log.Info("candidate released",
			"booking_id", bookingID, "driver_id", driverID, "reason", reason, "cursor", st.Cursor)

		// The cursor already moved; the follow-on offer sequence must not be
		// cut short by the caller's deadline (a ws frame budget or the timer
		// callback's own bound), so it runs on a detached context.
		if err := e.advance(context.WithoutCancel(ctx), bookingID); err != nil {
			e.log.Error("advance after loss failed", "booking_id", bookingID, "error", err)
		}
		return models.ActionResult{
			Success:   true,
			BookingID: bookingID,
			Message:   "Ride " + reason + " recorded",
		}, nil
	}
}

// OnAccept resolves a driver's acceptance. The conditioned update is the
// assignment decision: only the caller that still holds the current version
// wins, so double assignment is impossible. All notification side effects
// run after the transition commits.
func (e *Engine) OnAccept(ctx context.Context, bookingID, driverID string) (models.ActionResult, error) {
	e.timers.Cancel(bookingID, driverID)
	for {
		st, err := e.store.Get(ctx, bookingID)
		if errors.Is(err, store.ErrNotFound) {
			return unavailable(bookingID), nil
		}
		if err != nil {
			return models.ActionResult{}, fmt.Errorf("load dispatch state: %w", err)
		}
		cand, ok := st.Current()
		if st.Status != models.StatusOffered || !ok || cand.DriverID != driverID {
			return unavailable(bookingID), nil
		}

		offeredAt := st.OfferedAt
		st.Status = models.StatusAssigned
		if err := e.store.Update(ctx, st, e.opts.StateGraceTTL); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				continue
			}
			if errors.Is(err, store.ErrNotFound) {
				return unavailable(bookingID), nil
			}
			return models.ActionResult{}, fmt.Errorf("assign booking: %w", err)
		}

		if !offeredAt.IsZero() {
			observability.OfferResponseSeconds.Observe(time.Since(offeredAt).Seconds())
		}
		e.completeAssignment(ctx, st, cand)
		return models.ActionResult{
			Success:   true,
			BookingID: bookingID,
			Message:   "Ride accepted successfully! Please navigate to pickup location.",
		}, nil
	}
}

// completeAssignment runs the post-commit side of an acceptance: live geo
// and detail lookup, pool move, downstream events, rider push, journal and
// cleanup. Failures here are logged, never unwound.
func (e *Engine) completeAssignment(ctx context.Context, st *models.DispatchState, cand models.Candidate) {
	bookingID := st.BookingID
	coords, err := e.presence.Geo(ctx, cand.DriverID, presence.PoolAvailable)
	if err != nil {
		e.log.Warn("driver geo lookup failed", "driver_id", cand.DriverID, "error", err)
	}
	details, err := e.presence.Details(ctx, cand.DriverID, presence.PoolAvailable)
	if err != nil {
		e.log.Warn("driver details lookup failed", "driver_id", cand.DriverID, "error", err)
	}

	// Move the driver into the on-ride pool before anything observes the
	// assignment.
	if err := e.presence.Remove(ctx, cand.DriverID, presence.PoolAvailable); err != nil {
		e.log.Warn("available pool removal failed", "driver_id", cand.DriverID, "error", err)
	}
	if details != nil {
		if err := e.presence.SetDetails(ctx, details, presence.PoolOnRide); err != nil {
			e.log.Warn("on-ride details store failed", "driver_id", cand.DriverID, "error", err)
		}
	}
	if coords != nil {
		if err := e.presence.AddGeo(ctx, cand.DriverID, coords.Lat, coords.Lng, presence.PoolOnRide); err != nil {
			e.log.Warn("on-ride geo store failed", "driver_id", cand.DriverID, "error", err)
		}
	}

	now := time.Now().UTC()
	if err := e.bus.Assignment(ctx, models.Assignment{
		BookingID: bookingID,
		RideID:    st.RideID,
		Driver:    cand,
		Coords:    coords,
		Timestamp: now,
	}); err != nil {
		e.log.Error("assignment publish failed", "booking_id", bookingID, "error", err)
	}
	if err := e.bus.BookingStatus(ctx, models.BookingStatusUpdate{
		BookingID: bookingID,
		RequestID: st.RequestID,
		Status:    string(models.StatusAssigned),
		DriverID:  cand.DriverID,
		Timestamp: now,
	}); err != nil {
		e.log.Error("booking status publish failed", "booking_id", bookingID, "error", err)
	}
	if err := e.bus.UserNotification(ctx, models.UserNotification{
		UserID:    st.User.UserID,
		BookingID: bookingID,
		Type:      models.NotifyDriverAssigned,
		Message:   "Driver has accepted your ride",
		Timestamp: now,
	}); err != nil {
		e.log.Error("user notification publish failed", "booking_id", bookingID, "error", err)
	}

	status := models.RideStatus{
		RideID:  st.RideID,
		UserID:  st.User.UserID,
		Status:  "Accepted",
		Message: "Driver has accepted your ride",
		Booking: models.BookingCard{
			BookingID:    bookingID,
			RideID:       st.RideID,
			Date:         st.CreatedAt,
			Distance:     st.Distance,
			Duration:     st.EstimatedDuration,
			Price:        st.Price,
			Pin:          st.Pin,
			Pickup:       st.Pickup,
			Drop:         st.Drop,
			Status:       "Accept",
			VehicleModel: cand.VehicleModel,
		},
		Driver: cand,
		Coords: coords,
	}
	if err := e.notifier.Push(notify.UserChannel(st.User.UserID), "booking:driver:assigned", status); err != nil {
		e.log.Warn("assignment push failed", "booking_id", bookingID, "error", err)
	}

	e.record(ctx, st, journal.OutcomeAssigned, cand.DriverID, "")

	if err := e.store.DeleteOffer(ctx, bookingID, cand.DriverID); err != nil {
		e.log.Warn("offer record cleanup failed", "booking_id", bookingID, "error", err)
	}
	e.timers.CancelBooking(bookingID)
	if err := e.store.Delete(ctx, bookingID); err != nil {
		e.log.Warn("dispatch state cleanup failed", "booking_id", bookingID, "error", err)
	}
	observability.AssignmentsTotal.Inc()
	observability.ActiveDispatches.Dec()
	e.log.Info("driver assigned", "booking_id", bookingID, "driver_id", cand.DriverID)
}

// exhaust terminates a booking whose cursor ran past the candidate list:
// exactly one "no drivers available" notification, then cleanup.
func (e *Engine) exhaust(ctx context.Context, st *models.DispatchState) error {
	for {
		st.Status = models.StatusExhausted
		err := e.store.Update(ctx, st, e.opts.StateGraceTTL)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return fmt.Errorf("mark exhausted: %w", err)
		}
		st, err = e.store.Get(ctx, st.BookingID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reload dispatch state: %w", err)
		}
		if st.Status.Terminal() {
			return nil
		}
		if _, ok := st.Current(); ok {
			// A racing writer left a live candidate at the cursor.
			return e.advance(ctx, st.BookingID)
		}
	}

	bookingID := st.BookingID
	now := time.Now().UTC()
	if err := e.bus.UserNotification(ctx, models.UserNotification{
		UserID:    st.User.UserID,
		BookingID: bookingID,
		Type:      models.NotifyNoDrivers,
		Message:   "Currently no drivers are available. Please try again later.",
		Timestamp: now,
	}); err != nil {
		e.log.Error("no-drivers publish failed", "booking_id", bookingID, "error", err)
	}
	if err := e.notifier.Push(notify.UserChannel(st.User.UserID), "booking:no_drivers", map[string]string{
		"bookingId": bookingID,
		"message":   "Currently no drivers are available. Please try again later.",
	}); err != nil {
		e.log.Warn("no-drivers push failed", "booking_id", bookingID, "error", err)
	}

	e.record(ctx, st, journal.OutcomeExhausted, "", "")

	e.timers.CancelBooking(bookingID)
	if err := e.store.Delete(ctx, bookingID); err != nil {
		e.log.Warn("dispatch state cleanup failed", "booking_id", bookingID, "error", err)
	}
	observability.ExhaustedTotal.Inc()
	observability.ActiveDispatches.Dec()
	e.log.Info("candidates exhausted", "booking_id", bookingID, "tried", st.Cursor)
	return nil
}

// Cancel aborts a booking on the caller's behalf. Idempotent against a
// concurrently-firing timeout or accept: whoever wins the conditioned update
// performs the terminal transition, the rest are no-ops. A cancel that
// arrives after assignment (mid-ride) still relays the notification using
// the driver id carried by the request.
func (e *Engine) Cancel(ctx context.Context, req models.CancelRequest) error {
	if req.BookingID == "" {
		return &ValidationError{Field: "bookingId"}
	}
	for {
		st, err := e.store.Get(ctx, req.BookingID)
		if errors.Is(err, store.ErrNotFound) {
			e.relayCancel(req.BookingID, req.UserID, req.DriverID, req.Reason)
			return nil
		}
		if err != nil {
			return fmt.Errorf("load dispatch state: %w", err)
		}
		if st.Status.Terminal() {
			return nil
		}

		offered, hadOffer := st.Current()
		wasOffered := st.Status == models.StatusOffered && hadOffer
		st.Status = models.StatusCancelled
		if err := e.store.Update(ctx, st, e.opts.StateGraceTTL); err != nil {
			if errors.Is(err, store.ErrVersionConflict) {
				continue
			}
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("cancel booking: %w", err)
		}

		e.timers.CancelBooking(req.BookingID)
		driverID := req.DriverID
		if wasOffered {
			driverID = offered.DriverID
			if err := e.store.DeleteOffer(ctx, req.BookingID, offered.DriverID); err != nil {
				e.log.Warn("offer record cleanup failed", "booking_id", req.BookingID, "error", err)
			}
		}
		e.relayCancel(req.BookingID, st.User.UserID, driverID, req.Reason)

		now := time.Now().UTC()
		if err := e.bus.BookingStatus(ctx, models.BookingStatusUpdate{
			BookingID: req.BookingID,
			RequestID: st.RequestID,
			Status:    string(models.StatusCancelled),
			DriverID:  driverID,
			Reason:    req.Reason,
			Timestamp: now,
		}); err != nil {
			e.log.Error("booking status publish failed", "booking_id", req.BookingID, "error", err)
		}
		if err := e.bus.UserNotification(ctx, models.UserNotification{
			UserID:    st.User.UserID,
			BookingID: req.BookingID,
			Type:      models.NotifyBookingCancelled,
			Message:   "Your booking was cancelled",
			Timestamp: now,
		}); err != nil {
			e.log.Error("user notification publish failed", "booking_id", req.BookingID, "error", err)
		}

		e.record(ctx, st, journal.OutcomeCancelled, driverID, req.Reason)

		if err := e.store.Delete(ctx, req.BookingID); err != nil {
			e.log.Warn("dispatch state cleanup failed", "booking_id", req.BookingID, "error", err)
		}
		observability.CancelledTotal.Inc()
		observability.ActiveDispatches.Dec()
		e.log.Info("booking cancelled", "booking_id", req.BookingID, "reason", req.Reason)
		return nil
	}
}

func (e *Engine) relayCancel(bookingID, userID, driverID, reason string) {
	payload := map[string]string{
		"bookingId": bookingID,
		"message":   "Booking has been cancelled",
		"reason":    reason,
	}
	if driverID != "" {
		if err := e.notifier.Push(notify.DriverChannel(driverID), "booking:cancelled", payload); err != nil {
			e.log.Debug("cancel push to driver failed", "booking_id", bookingID, "driver_id", driverID, "error", err)
		}
	}
	if userID != "" {
		if err := e.notifier.Push(notify.UserChannel(userID), "booking:cancelled", payload); err != nil {
			e.log.Debug("cancel push to user failed", "booking_id", bookingID, "user_id", userID, "error", err)
		}
	}
}

func (e *Engine) record(ctx context.Context, st *models.DispatchState, outcome, driverID, reason string) {
	entry := journal.Entry{
		BookingID:  st.BookingID,
		RideID:     st.RideID,
		Outcome:    outcome,
		DriverID:   driverID,
		Reason:     reason,
		Candidates: len(st.Candidates),
		Tried:      st.Cursor,
		At:         time.Now().UTC(),
	}
	if err := e.journal.Record(ctx, entry); err != nil {
		e.log.Warn("outcome journal write failed", "booking_id", st.BookingID, "error", err)
	}
}

// stateTTL keeps the record alive at least as long as every remaining offer
// window plus grace, and is re-applied on every write.
func (e *Engine) stateTTL(st *models.DispatchState) time.Duration {
	remaining := len(st.Candidates) - st.Cursor
	if remaining < 1 {
		remaining = 1
	}
	return time.Duration(remaining)*e.offerWindow(st) + e.opts.StateGraceTTL
}

// offerWindow is the per-candidate response window: the request's own value
// when it carries one, the engine default otherwise.
func (e *Engine) offerWindow(st *models.DispatchState) time.Duration {
	if st.TimeoutSeconds > 0 {
		return time.Duration(st.TimeoutSeconds) * time.Second
	}
	return e.opts.OfferTimeout
}

func buildOffer(st *models.DispatchState, cand models.Candidate) *models.OfferMessage {
	return &models.OfferMessage{
		Customer: st.User,
		Booking: models.OfferBooking{
			BookingID:         st.BookingID,
			RideID:            st.RideID,
			EstimatedDistance: st.Distance,
			EstimatedDuration: st.EstimatedDuration,
			FareAmount:        st.Price,
			SecurityPin:       st.Pin,
			VehicleType:       cand.VehicleModel,
			Pickup:            st.Pickup,
			Drop:              st.Drop,
			Status:            string(st.Status),
			CreatedAt:         st.CreatedAt,
		},
		RequestTimeout: st.TimeoutSeconds,
	}
}

func notCurrent(bookingID string) models.ActionResult {
	return models.ActionResult{
		Success:   false,
		BookingID: bookingID,
		Message:   "Offer is no longer current for this driver",
	}
}

func unavailable(bookingID string) models.ActionResult {
	return models.ActionResult{
		Success:   false,
		BookingID: bookingID,
		Message:   "Booking no longer available or already assigned",
	}
}
