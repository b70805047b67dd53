// Package autosave coalesces bursts of edits into one write. There is a
// single pending timer; every Touch resets it, and when it fires the current
// value is fetched at that moment, never a copy captured at Touch time.
package autosave

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period after the last change.
const DefaultDelay = 500 * time.Millisecond

// Debouncer runs save with the value returned by current once edits stop
// for delay.
type Debouncer[T any] struct {
	delay   time.Duration
	current func() T
	save    func(T) error
	onError func(error)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool
}

// New creates a Debouncer. onError may be nil.
func New[T any](delay time.Duration, current func() T, save func(T) error, onError func(error)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{delay: delay, current: current, save: save, onError: onError}
}

// Touch records a change and restarts the quiet period.
func (d *Debouncer[T]) Touch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Pending reports whether a write is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush writes immediately if a write is pending.
func (d *Debouncer[T]) Flush() error {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	pending := d.pending
	d.pending = false
	d.mu.Unlock()
	if !pending {
		return nil
	}
	return d.save(d.current())
}

// Stop flushes any pending write and disables further Touches.
func (d *Debouncer[T]) Stop() error {
	err := d.Flush()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	return err
}

// fire ignores timers superseded by a later Touch.
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	if err := d.save(d.current()); err != nil && d.onError != nil {
		d.onError(err)
	}
}
