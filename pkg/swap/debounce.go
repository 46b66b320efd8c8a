package swap

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. Tests replace it to fire timers by hand.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs only the last function handed to Trigger within the delay.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	after AfterFunc
	timer Timer
}

func NewDebouncer(delay time.Duration, after AfterFunc) *Debouncer {
	if after == nil {
		after = realAfterFunc
	}
	return &Debouncer{delay: delay, after: after}
}

// Trigger cancels any pending call and schedules f. A zero delay runs f
// on the caller's goroutine.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.delay <= 0 {
		d.mu.Unlock()
		f()
		return
	}
	d.timer = d.after(d.delay, f)
	d.mu.Unlock()
}

// Stop drops the pending call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
