package watcher

import (
	"sync"
	"time"
)

// Debouncer collects events and emits them as one batch once a quiet period
// has passed. Each Add resets the timer, so a burst of edits produces a
// single emission after the burst ends.
type Debouncer struct {
	delay  time.Duration
	timer  *time.Timer
	mu     sync.Mutex
	events []Event
	emit   func([]Event)
}

// NewDebouncer creates a debouncer that calls emit after delay of quiet.
func NewDebouncer(delay time.Duration, emit func([]Event)) *Debouncer {
	return &Debouncer{
		delay:  delay,
		events: make([]Event, 0),
		emit:   emit,
	}
}

// Add appends an event to the pending batch and resets the quiet timer.
func (d *Debouncer) Add(event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.events = append(d.events, event)

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.flush)
}

// flush emits the collected batch.
func (d *Debouncer) flush() {
	d.mu.Lock()
	events := d.events
	d.events = make([]Event, 0)
	d.timer = nil
	d.mu.Unlock()

	if len(events) > 0 && d.emit != nil {
		d.emit(events)
	}
}

// Cancel drops any pending batch without emitting it.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.events = make([]Event, 0)
}

// Flush immediately emits any pending batch.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.flush()
}

// Pending returns the number of events waiting to be emitted.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}
