package dispatch

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTimerFires(t *testing.T) {
	tt := NewTimerTable()
	var fired atomic.Int32
	if !tt.Arm("b1", "d1", 1, 10*time.Millisecond, func() { fired.Add(1) }) {
		t.Fatal("first arm refused")
	}

	time.Sleep(50 * time.Millisecond)
	if fired.Load() != 1 {
		t.Fatalf("fired = %d, want 1", fired.Load())
	}
}

func TestCancelPreventsFire(t *testing.T) {
	tt := NewTimerTable()
	var fired atomic.Int32
	tt.Arm("b1", "d1", 1, 20*time.Millisecond, func() { fired.Add(1) })

	if !tt.Cancel("b1", "d1") {
		t.Fatal("cancel reported no armed timer")
	}
	time.Sleep(50 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("cancelled timer fired %d times", fired.Load())
	}
	if tt.Cancel("b1", "d1") {
		t.Fatal("second cancel reported an armed timer")
	}
}

func TestNewerArmSupersedesPriorTimer(t *testing.T) {
	tt := NewTimerTable()
	var first, second atomic.Int32
	tt.Arm("b1", "d1", 1, 20*time.Millisecond, func() { first.Add(1) })
	if !tt.Arm("b1", "d2", 2, 20*time.Millisecond, func() { second.Add(1) }) {
		t.Fatal("newer arm refused")
	}

	time.Sleep(60 * time.Millisecond)
	if first.Load() != 0 {
		t.Fatal("superseded timer still fired")
	}
	if second.Load() != 1 {
		t.Fatalf("current timer fired %d times, want 1", second.Load())
	}
}

func TestStaleArmCannotSupersedeNewerTimer(t *testing.T) {
	tt := NewTimerTable()
	var current, stale atomic.Int32
	tt.Arm("b1", "d2", 4, 20*time.Millisecond, func() { current.Add(1) })
	if tt.Arm("b1", "d1", 2, 20*time.Millisecond, func() { stale.Add(1) }) {
		t.Fatal("stale arm was accepted")
	}

	time.Sleep(60 * time.Millisecond)
	if current.Load() != 1 {
		t.Fatalf("live timer fired %d times, want 1", current.Load())
	}
	if stale.Load() != 0 {
		t.Fatalf("refused timer fired %d times", stale.Load())
	}
	// Cancel for the refused pair must not touch the live booking entry.
	if tt.Cancel("b1", "d1") {
		t.Fatal("cancel matched a driver that never held the timer")
	}
}

func TestCancelBookingStopsAll(t *testing.T) {
	tt := NewTimerTable()
	var fired atomic.Int32
	tt.Arm("b1", "d1", 1, 20*time.Millisecond, func() { fired.Add(1) })
	tt.Arm("b2", "d1", 1, 20*time.Millisecond, func() { fired.Add(1) })

	tt.CancelBooking("b1")
	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 1 {
		t.Fatalf("fired = %d, want only the b2 timer", fired.Load())
	}
}
