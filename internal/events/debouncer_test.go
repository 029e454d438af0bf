package events

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerBatchesMultipleTriggers(t *testing.T) {
	var count int32
	debouncer := NewDebouncer(50*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})
	t.Cleanup(debouncer.Cancel)

	debouncer.Trigger()
	debouncer.Trigger()
	debouncer.Trigger()

	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&count); got != 0 {
		t.Errorf("action fired too early: got %d, want 0", got)
	}

	time.Sleep(45 * time.Millisecond)
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("action should have fired once: got %d, want 1", got)
	}
}

func TestDebouncerResetsTimerOnSubsequentTriggers(t *testing.T) {
	var count int32
	debouncer := NewDebouncer(50*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})
	t.Cleanup(debouncer.Cancel)

	debouncer.Trigger()
	time.Sleep(20 * time.Millisecond)
	debouncer.Trigger()
	time.Sleep(20 * time.Millisecond)

	if got := atomic.LoadInt32(&count); got != 0 {
		t.Errorf("action fired too early after reset: got %d, want 0", got)
	}

	time.Sleep(45 * time.Millisecond)
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("action should have fired once: got %d, want 1", got)
	}
}

func TestDebouncerCancelPreventsAction(t *testing.T) {
	var count int32
	debouncer := NewDebouncer(30*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})

	debouncer.Trigger()
	debouncer.Cancel()

	time.Sleep(60 * time.Millisecond)
	if got := atomic.LoadInt32(&count); got != 0 {
		t.Errorf("canceled debouncer fired: got %d, want 0", got)
	}
}

func TestDebouncerSimulatesBurstFileEvents(t *testing.T) {
	var count int32
	debouncer := NewDebouncer(10*time.Millisecond, func() {
		atomic.AddInt32(&count, 1)
	})
	t.Cleanup(debouncer.Cancel)

	for i := 0; i < 100; i++ {
		debouncer.Trigger()
	}

	time.Sleep(40 * time.Millisecond)
	if got := atomic.LoadInt32(&count); got != 1 {
		t.Errorf("100 bursted triggers should collapse to 1 action: got %d", got)
	}
}
