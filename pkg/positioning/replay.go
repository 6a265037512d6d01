package positioning

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/eastwest/internal/location"
)

// ErrReplayExhausted is returned once every sample has been played and the
// replay does not loop.
var ErrReplayExhausted = &location.PositionError{Code: location.CodePositionUnavailable, Message: "replay exhausted"}

// Replay plays back recorded samples at a fixed rate. Fetches and watches
// share one cursor.
type Replay struct {
	samples []Sample
	limiter *rate.Limiter
	loop    bool

	mu   sync.Mutex
	next int
}

// NewReplay creates a replay of samples paced at perSecond samples per second.
// A non-positive rate plays without pacing.
func NewReplay(samples []Sample, perSecond float64, loop bool) *Replay {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Replay{
		samples: samples,
		limiter: rate.NewLimiter(limit, 1),
		loop:    loop,
	}
}

// LoadReplay reads a JSON Lines file with one Sample per line. Blank lines
// and lines starting with # are skipped.
func LoadReplay(path string, perSecond float64, loop bool) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "positioning: open replay %s", path)
	}
	defer func() { _ = f.Close() }()

	var samples []Sample
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}
		s, err := DecodeSample(text)
		if err != nil {
			return nil, eris.Wrapf(err, "positioning: replay %s line %d", path, line)
		}
		samples = append(samples, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "positioning: read replay %s", path)
	}
	if len(samples) == 0 {
		return nil, eris.Errorf("positioning: replay %s has no samples", path)
	}

	zap.L().Debug("replay loaded",
		zap.String("component", "positioning.replay"),
		zap.String("path", path),
		zap.Int("samples", len(samples)),
		zap.Float64("rate", perSecond),
		zap.Bool("loop", loop),
	)
	return NewReplay(samples, perSecond, loop), nil
}

// Len returns the number of recorded samples.
func (r *Replay) Len() int { return len(r.samples) }

func (r *Replay) take() (Sample, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next >= len(r.samples) {
		if !r.loop || len(r.samples) == 0 {
			return Sample{}, false
		}
		r.next = 0
	}
	s := r.samples[r.next]
	r.next++
	return s, true
}

func (r *Replay) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			// the limiter refuses waits that would overrun the deadline
			return timeoutError()
		}
		return positionTimeout(ctx, err)
	}
	return nil
}

// CurrentPosition implements location.PositionSource.
func (r *Replay) CurrentPosition(ctx context.Context, _ location.PositionOptions) (location.Position, error) {
	if err := r.wait(ctx); err != nil {
		return location.Position{}, err
	}
	s, ok := r.take()
	if !ok {
		return location.Position{}, ErrReplayExhausted
	}
	return s.Position()
}

// WatchPosition implements location.PositionSource. Samples are delivered
// until the replay is exhausted or the subscription is cancelled.
func (r *Replay) WatchPosition(ctx context.Context, _ location.PositionOptions, fn func(location.Position, error)) (location.Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		for {
			if err := r.limiter.Wait(ctx); err != nil {
				return
			}
			s, ok := r.take()
			if !ok || ctx.Err() != nil {
				return
			}
			fn(s.Position())
		}
	}()
	return cancelSubscription(cancel), nil
}
