package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/example/ride-dispatch/internal/journal"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/notify"
	"github.com/example/ride-dispatch/internal/presence"
	"github.com/example/ride-dispatch/internal/store"
)

type push struct {
	Channel string
	Event   string
	Payload any
}

type fakeNotifier struct {
	mu     sync.Mutex
	pushes []push
	// hook, when set, runs synchronously inside Push after the push is
	// recorded, with the notifier lock released.
	hook func(channel, event string)
}

func (f *fakeNotifier) Push(channel, event string, payload any) error {
	f.mu.Lock()
	f.pushes = append(f.pushes, push{channel, event, payload})
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook(channel, event)
	}
	return nil
}

func (f *fakeNotifier) count(channel, event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.pushes {
		if p.Channel == channel && p.Event == event {
			n++
		}
	}
	return n
}

type fakeBus struct {
	mu            sync.Mutex
	outcomes      []models.DriverOutcome
	assignments   []models.Assignment
	notifications []models.UserNotification
	statuses      []models.BookingStatusUpdate
}

func (f *fakeBus) DriverOutcome(_ context.Context, out models.DriverOutcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, out)
	return nil
}

func (f *fakeBus) Assignment(_ context.Context, a models.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assignments = append(f.assignments, a)
	return nil
}

func (f *fakeBus) UserNotification(_ context.Context, n models.UserNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeBus) BookingStatus(_ context.Context, u models.BookingStatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, u)
	return nil
}

func (f *fakeBus) outcomeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.outcomes)
}

type testRig struct {
	engine   *Engine
	store    *store.MemoryStore
	dir      *presence.MemoryDirectory
	notifier *fakeNotifier
	bus      *fakeBus
	journal  *journal.Memory
}

func newTestRig(t *testing.T, offerTimeout time.Duration) *testRig {
	t.Helper()
	st := store.NewMemoryStore()
	dir := presence.NewMemoryDirectory(0)
	notifier := &fakeNotifier{}
	bus := &fakeBus{}
	jnl := journal.NewMemory()
	eng := NewEngine(st, store.NewMemoryGate(), dir, notifier, bus, jnl, Options{
		OfferTimeout: offerTimeout,
		SkipStagger:  time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &testRig{engine: eng, store: st, dir: dir, notifier: notifier, bus: bus, journal: jnl}
}

func (r *testRig) online(t *testing.T, driverID string) {
	t.Helper()
	ctx := context.Background()
	if err := r.dir.Heartbeat(ctx, driverID); err != nil {
		t.Fatal(err)
	}
	if err := r.dir.AddGeo(ctx, driverID, 12.97, 77.59, presence.PoolAvailable); err != nil {
		t.Fatal(err)
	}
	if err := r.dir.SetDetails(ctx, &models.DriverProfile{DriverID: driverID, Name: driverID}, presence.PoolAvailable); err != nil {
		t.Fatal(err)
	}
}

func newRequest(bookingID, requestID string, driverIDs ...string) *models.DispatchRequest {
	cands := make([]models.Candidate, 0, len(driverIDs))
	for i, id := range driverIDs {
		cands = append(cands, models.Candidate{DriverID: id, Distance: float64(i), Rating: 4.5})
	}
	return &models.DispatchRequest{
		BookingID:  bookingID,
		RideID:     "ride-" + bookingID,
		RequestID:  requestID,
		User:       models.Rider{UserID: "u1", Name: "Asha"},
		Pickup:     models.Location{Lat: 12.97, Lng: 77.59, Address: "MG Road"},
		Drop:       models.Location{Lat: 12.93, Lng: 77.61, Address: "Koramangala"},
		Price:      240,
		Pin:        4321,
		Candidates: cands,
	}
}

func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSubmitOffersFirstOnlineCandidate(t *testing.T) {
	rig := newTestRig(t, time.Minute)
	rig.online(t, "d1")
	rig.online(t, "d2")

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1", "d2")); err != nil {
		t.Fatal(err)
	}
	if got := rig.notifier.count(notify.DriverChannel("d1"), "ride:request"); got != 1 {
		t.Fatalf("d1 offers = %d, want 1", got)
	}
	if got := rig.notifier.count(notify.DriverChannel("d2"), "ride:request"); got != 0 {
		t.Fatalf("d2 offers = %d, want 0", got)
	}
	st, err := rig.store.Get(context.Background(), "b1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != models.StatusOffered || st.Cursor != 0 {
		t.Fatalf("state = %s cursor %d, want offered cursor 0", st.Status, st.Cursor)
	}
}

func TestSubmitValidation(t *testing.T) {
	rig := newTestRig(t, time.Minute)
	var verr *ValidationError
	if err := rig.engine.Submit(context.Background(), &models.DispatchRequest{BookingID: "b1"}); !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if err := rig.engine.Submit(context.Background(), &models.DispatchRequest{RequestID: "r1"}); !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestDuplicateSubmitRejected(t *testing.T) {
	rig := newTestRig(t, time.Minute)
	rig.online(t, "d1")

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1")); err != nil {
		t.Fatal(err)
	}
	err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1"))
	if !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("err = %v, want ErrDuplicateRequest", err)
	}
	if got := rig.notifier.count(notify.DriverChannel("d1"), "ride:request"); got != 1 {
		t.Fatalf("offers = %d, want exactly 1", got)
	}
}

func TestOfflineCandidateSkippedWithoutOffer(t *testing.T) {
	rig := newTestRig(t, time.Minute)
	rig.online(t, "d2")

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1", "d2")); err != nil {
		t.Fatal(err)
	}
	if got := rig.notifier.count(notify.DriverChannel("d1"), "ride:request"); got != 0 {
		t.Fatalf("offline d1 received %d offers", got)
	}
	if got := rig.notifier.count(notify.DriverChannel("d2"), "ride:request"); got != 1 {
		t.Fatalf("d2 offers = %d, want 1", got)
	}
	if got := rig.bus.outcomeCount(); got != 0 {
		t.Fatalf("offline skip published %d outcomes", got)
	}
	st, err := rig.store.Get(context.Background(), "b1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Cursor != 1 {
		t.Fatalf("cursor = %d, want 1", st.Cursor)
	}
}

func TestEmptyCandidateListExhaustsImmediately(t *testing.T) {
	rig := newTestRig(t, time.Minute)

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1")); err != nil {
		t.Fatal(err)
	}
	if got := rig.notifier.count(notify.UserChannel("u1"), "booking:no_drivers"); got != 1 {
		t.Fatalf("no_drivers pushes = %d, want 1", got)
	}
	if _, err := rig.store.Get(context.Background(), "b1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("state not cleaned up: %v", err)
	}
	entries := rig.journal.Entries()
	if len(entries) != 1 || entries[0].Outcome != journal.OutcomeExhausted {
		t.Fatalf("journal = %+v, want one exhausted entry", entries)
	}
}

func TestAllOfflineExhausts(t *testing.T) {
	rig := newTestRig(t, time.Minute)

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1", "d2", "d3")); err != nil {
		t.Fatal(err)
	}
	if got := rig.notifier.count(notify.UserChannel("u1"), "booking:no_drivers"); got != 1 {
		t.Fatalf("no_drivers pushes = %d, want 1", got)
	}
	rig.bus.mu.Lock()
	defer rig.bus.mu.Unlock()
	if len(rig.bus.notifications) != 1 || rig.bus.notifications[0].Type != models.NotifyNoDrivers {
		t.Fatalf("notifications = %+v, want one no_drivers", rig.bus.notifications)
	}
	if len(rig.bus.outcomes) != 0 {
		t.Fatalf("offline candidates produced %d outcomes", len(rig.bus.outcomes))
	}
}

func TestTimeoutAdvancesToNextCandidate(t *testing.T) {
	rig := newTestRig(t, 30*time.Millisecond)
	rig.online(t, "d1")
	rig.online(t, "d2")

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1", "d2")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "offer to d2", func() bool {
		return rig.notifier.count(notify.DriverChannel("d2"), "ride:request") == 1
	})

	rig.bus.mu.Lock()
	defer rig.bus.mu.Unlock()
	if len(rig.bus.outcomes) != 1 {
		t.Fatalf("outcomes = %d, want 1", len(rig.bus.outcomes))
	}
	out := rig.bus.outcomes[0]
	if out.DriverID != "d1" || out.Reason != models.ReasonTimeout {
		t.Fatalf("outcome = %+v, want d1 timeout", out)
	}
}

func TestTimeoutOfLastCandidateExhausts(t *testing.T) {
	rig := newTestRig(t, 30*time.Millisecond)
	rig.online(t, "d1")

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "no_drivers push", func() bool {
		return rig.notifier.count(notify.UserChannel("u1"), "booking:no_drivers") == 1
	})
	if _, err := rig.store.Get(context.Background(), "b1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("state not cleaned up: %v", err)
	}
}

func TestRejectAdvancesImmediately(t *testing.T) {
	rig := newTestRig(t, time.Minute)
	rig.online(t, "d1")
	rig.online(t, "d2")

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1", "d2")); err != nil {
		t.Fatal(err)
	}
	res, err := rig.engine.OnReject(context.Background(), "b1", "d1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("reject result = %+v, want success", res)
	}
	if got := rig.notifier.count(notify.DriverChannel("d2"), "ride:request"); got != 1 {
		t.Fatalf("d2 offers = %d, want 1", got)
	}
	rig.bus.mu.Lock()
	defer rig.bus.mu.Unlock()
	if len(rig.bus.outcomes) != 1 || rig.bus.outcomes[0].Reason != models.ReasonRejection {
		t.Fatalf("outcomes = %+v, want one rejection", rig.bus.outcomes)
	}
}

func TestRejectFromNonCurrentDriverIsNoop(t *testing.T) {
	rig := newTestRig(t, time.Minute)
	rig.online(t, "d1")
	rig.online(t, "d2")

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1", "d2")); err != nil {
		t.Fatal(err)
	}
	res, err := rig.engine.OnReject(context.Background(), "b1", "d2")
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatalf("non-current reject succeeded: %+v", res)
	}
	st, err := rig.store.Get(context.Background(), "b1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Cursor != 0 || st.Status != models.StatusOffered {
		t.Fatalf("state mutated by non-current reject: %+v", st)
	}
}

func TestAcceptAssignsAndCleansUp(t *testing.T) {
	rig := newTestRig(t, time.Minute)
	rig.online(t, "d1")

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1")); err != nil {
		t.Fatal(err)
	}
	res, err := rig.engine.OnAccept(context.Background(), "b1", "d1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("accept result = %+v, want success", res)
	}

	if _, err := rig.store.Get(context.Background(), "b1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("state not cleaned up: %v", err)
	}
	if got := rig.notifier.count(notify.UserChannel("u1"), "booking:driver:assigned"); got != 1 {
		t.Fatalf("assigned pushes = %d, want 1", got)
	}

	ctx := context.Background()
	if c, _ := rig.dir.Geo(ctx, "d1", presence.PoolOnRide); c == nil {
		t.Fatal("driver not moved to on-ride pool")
	}
	if c, _ := rig.dir.Geo(ctx, "d1", presence.PoolAvailable); c != nil {
		t.Fatal("driver still in available pool")
	}

	rig.bus.mu.Lock()
	defer rig.bus.mu.Unlock()
	if len(rig.bus.assignments) != 1 || rig.bus.assignments[0].Driver.DriverID != "d1" {
		t.Fatalf("assignments = %+v", rig.bus.assignments)
	}
	if len(rig.bus.statuses) != 1 || rig.bus.statuses[0].Status != string(models.StatusAssigned) {
		t.Fatalf("statuses = %+v", rig.bus.statuses)
	}
}

func TestAcceptAfterTimeoutLoses(t *testing.T) {
	rig := newTestRig(t, 30*time.Millisecond)
	rig.online(t, "d1")
	rig.online(t, "d2")

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1", "d2")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, "offer to d2", func() bool {
		return rig.notifier.count(notify.DriverChannel("d2"), "ride:request") == 1
	})

	res, err := rig.engine.OnAccept(context.Background(), "b1", "d1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Success {
		t.Fatal("stale accept won after timeout already advanced")
	}
	rig.bus.mu.Lock()
	defer rig.bus.mu.Unlock()
	if len(rig.bus.assignments) != 0 {
		t.Fatalf("assignments = %+v, want none", rig.bus.assignments)
	}
}

func TestLateTimeoutAfterAcceptIsNoop(t *testing.T) {
	rig := newTestRig(t, time.Minute)
	rig.online(t, "d1")

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1")); err != nil {
		t.Fatal(err)
	}
	if res, err := rig.engine.OnAccept(context.Background(), "b1", "d1"); err != nil || !res.Success {
		t.Fatalf("accept failed: %+v %v", res, err)
	}

	rig.engine.OnTimeout(context.Background(), "b1", "d1")

	if got := rig.bus.outcomeCount(); got != 0 {
		t.Fatalf("late timeout published %d outcomes", got)
	}
	if got := rig.notifier.count(notify.UserChannel("u1"), "booking:no_drivers"); got != 0 {
		t.Fatalf("late timeout exhausted an assigned booking")
	}
}

func TestConcurrentSignalsExactlyOneWinner(t *testing.T) {
	rig := newTestRig(t, time.Minute)
	rig.online(t, "d1")
	rig.online(t, "d2")

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1", "d2")); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make([]models.ActionResult, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0], _ = rig.engine.OnAccept(context.Background(), "b1", "d1")
	}()
	go func() {
		defer wg.Done()
		results[1], _ = rig.engine.OnReject(context.Background(), "b1", "d1")
	}()
	wg.Wait()

	wins := 0
	for _, r := range results {
		if r.Success {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("winners = %d, want exactly 1 (results %+v)", wins, results)
	}
}

func TestRejectDuringOfferDeliveryKeepsNextTimerLive(t *testing.T) {
	rig := newTestRig(t, 30*time.Millisecond)
	rig.online(t, "d1")
	rig.online(t, "d2")

	// The rejection lands while d1's offer push is still on the stack, so
	// the tail of d1's offer path runs after d2 is already offered. d2's
	// response timer must survive that tail.
	var once sync.Once
	rig.notifier.hook = func(channel, event string) {
		if channel != notify.DriverChannel("d1") || event != "ride:request" {
			return
		}
		once.Do(func() {
			if _, err := rig.engine.OnReject(context.Background(), "b1", "d1"); err != nil {
				t.Error(err)
			}
		})
	}

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1", "d2")); err != nil {
		t.Fatal(err)
	}
	if got := rig.notifier.count(notify.DriverChannel("d2"), "ride:request"); got != 1 {
		t.Fatalf("d2 offers = %d, want 1", got)
	}

	waitFor(t, time.Second, "no_drivers push after d2 times out", func() bool {
		return rig.notifier.count(notify.UserChannel("u1"), "booking:no_drivers") == 1
	})
	if _, err := rig.store.Get(context.Background(), "b1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("booking stranded: %v", err)
	}

	rig.bus.mu.Lock()
	defer rig.bus.mu.Unlock()
	if len(rig.bus.outcomes) != 2 {
		t.Fatalf("outcomes = %+v, want d1 rejection then d2 timeout", rig.bus.outcomes)
	}
	if rig.bus.outcomes[0].DriverID != "d1" || rig.bus.outcomes[0].Reason != models.ReasonRejection {
		t.Fatalf("first outcome = %+v, want d1 rejection", rig.bus.outcomes[0])
	}
	if rig.bus.outcomes[1].DriverID != "d2" || rig.bus.outcomes[1].Reason != models.ReasonTimeout {
		t.Fatalf("second outcome = %+v, want d2 timeout", rig.bus.outcomes[1])
	}
}

func TestRejectWithCancelledCallerContextStillAdvances(t *testing.T) {
	rig := newTestRig(t, time.Minute)
	rig.online(t, "d1")
	rig.online(t, "d3")

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1", "d2", "d3")); err != nil {
		t.Fatal(err)
	}

	// A ws frame's context may be cancelled the moment the reply is written.
	// The offline skip of d2 and the offer to d3 happen after the cursor
	// moved and must not be cut short by that.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := rig.engine.OnReject(ctx, "b1", "d1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Fatalf("reject result = %+v, want success", res)
	}
	if got := rig.notifier.count(notify.DriverChannel("d3"), "ride:request"); got != 1 {
		t.Fatalf("d3 offers = %d, want 1", got)
	}
	st, err := rig.store.Get(context.Background(), "b1")
	if err != nil {
		t.Fatal(err)
	}
	if st.Status != models.StatusOffered || st.Cursor != 2 {
		t.Fatalf("state = %s cursor %d, want offered cursor 2", st.Status, st.Cursor)
	}
}

func TestCancelActiveDispatch(t *testing.T) {
	rig := newTestRig(t, time.Minute)
	rig.online(t, "d1")

	if err := rig.engine.Submit(context.Background(), newRequest("b1", "req-1", "d1")); err != nil {
		t.Fatal(err)
	}
	if err := rig.engine.Cancel(context.Background(), models.CancelRequest{BookingID: "b1", UserID: "u1", Reason: "rider_cancelled"}); err != nil {
		t.Fatal(err)
	}

	if got := rig.notifier.count(notify.DriverChannel("d1"), "booking:cancelled"); got != 1 {
		t.Fatalf("driver cancel pushes = %d, want 1", got)
	}
	if got := rig.notifier.count(notify.UserChannel("u1"), "booking:cancelled"); got != 1 {
		t.Fatalf("user cancel pushes = %d, want 1", got)
	}
	if _, err := rig.store.Get(context.Background(), "b1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("state not cleaned up: %v", err)
	}

	// A timeout firing after cancellation must not resurrect the booking.
	rig.engine.OnTimeout(context.Background(), "b1", "d1")
	if got := rig.bus.outcomeCount(); got != 0 {
		t.Fatalf("post-cancel timeout published %d outcomes", got)
	}
}

func TestCancelUnknownBookingRelaysOnly(t *testing.T) {
	rig := newTestRig(t, time.Minute)

	err := rig.engine.Cancel(context.Background(), models.CancelRequest{
		BookingID: "b-gone", UserID: "u1", DriverID: "d1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := rig.notifier.count(notify.DriverChannel("d1"), "booking:cancelled"); got != 1 {
		t.Fatalf("driver relays = %d, want 1", got)
	}
	if got := rig.notifier.count(notify.UserChannel("u1"), "booking:cancelled"); got != 1 {
		t.Fatalf("user relays = %d, want 1", got)
	}
}
