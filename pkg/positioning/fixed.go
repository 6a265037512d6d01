package positioning

import (
	"context"
	"time"

	"github.com/facebookgo/clock"

	"github.com/sells-group/eastwest/internal/geo"
	"github.com/sells-group/eastwest/internal/location"
)

// Fixed reports the same coordinate after an optional delay. With Err set it
// fails instead.
type Fixed struct {
	Coordinate geo.Coordinate
	Accuracy   float64
	Delay      time.Duration
	Err        error
	Clock      clock.Clock
}

// NewFixed creates a Fixed source at c.
func NewFixed(c geo.Coordinate, accuracy float64, delay time.Duration) *Fixed {
	return &Fixed{Coordinate: c, Accuracy: accuracy, Delay: delay, Clock: clock.New()}
}

func (f *Fixed) clock() clock.Clock {
	if f.Clock == nil {
		return clock.New()
	}
	return f.Clock
}

// CurrentPosition implements location.PositionSource.
func (f *Fixed) CurrentPosition(ctx context.Context, _ location.PositionOptions) (location.Position, error) {
	if f.Delay > 0 {
		select {
		case <-f.clock().After(f.Delay):
		case <-ctx.Done():
			return location.Position{}, positionTimeout(ctx, ctx.Err())
		}
	}
	if f.Err != nil {
		return location.Position{}, f.Err
	}
	return location.Position{
		Coordinate: f.Coordinate,
		Accuracy:   f.Accuracy,
		Timestamp:  f.clock().Now(),
	}, nil
}

// WatchPosition implements location.PositionSource. A fixed position never
// changes, so fn is called once.
func (f *Fixed) WatchPosition(ctx context.Context, opts location.PositionOptions, fn func(location.Position, error)) (location.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		pos, err := f.CurrentPosition(ctx, opts)
		if ctx.Err() != nil {
			return
		}
		fn(pos, err)
	}()
	return cancelSubscription(cancel), nil
}

// cancelSubscription stops a watch goroutine. A sample already being
// delivered may still arrive.
type cancelSubscription context.CancelFunc

func (s cancelSubscription) Unsubscribe() error {
	s()
	return nil
}
