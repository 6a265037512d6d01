package location

import (
	"time"

	"github.com/facebookgo/clock"
)

// debounce is a cancellable one-shot timer. Only the most recent arm can fire:
// each arm stops the previous timer and bumps the generation, and accept
// rejects fires carrying an older generation. It is not safe for concurrent
// use; the controller loop owns it.
type debounce struct {
	clock clock.Clock
	delay time.Duration
	fire  func(gen uint64)

	gen   uint64
	timer *clock.Timer
}

func newDebounce(clk clock.Clock, delay time.Duration, fire func(gen uint64)) *debounce {
	return &debounce{clock: clk, delay: delay, fire: fire}
}

// arm cancels any pending timer and starts a new one.
func (d *debounce) arm() {
	d.cancel()
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

// cancel stops the pending timer, if any.
func (d *debounce) cancel() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// armed reports whether a timer is pending.
func (d *debounce) armed() bool {
	return d.timer != nil
}

// accept reports whether a fire with gen is current and disarms the timer.
func (d *debounce) accept(gen uint64) bool {
	if d.timer == nil || gen != d.gen {
		return false
	}
	d.timer = nil
	d.gen++
	return true
}
