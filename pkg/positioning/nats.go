package positioning

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/eastwest/internal/location"
)

// NATSSource reads fixes that a GPS bridge publishes as JSON samples on a
// subject.
type NATSSource struct {
	conn    *nats.Conn
	subject string
	log     *zap.Logger
	now     func() time.Time

	mu   sync.Mutex
	last *location.Position
	seen time.Time
}

// DialNATS connects to url and reads fixes from subject.
func DialNATS(url, subject string) (*NATSSource, error) {
	log := zap.L().With(zap.String("component", "positioning.nats"))
	conn, err := nats.Connect(url,
		nats.Name("eastwest"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "positioning: nats connect %s", url)
	}
	return NewNATSSource(conn, subject), nil
}

// NewNATSSource uses an existing connection.
func NewNATSSource(conn *nats.Conn, subject string) *NATSSource {
	return &NATSSource{
		conn:    conn,
		subject: subject,
		log:     zap.L().With(zap.String("component", "positioning.nats"), zap.String("subject", subject)),
		now:     time.Now,
	}
}

// Subject returns the subject fixes are read from.
func (s *NATSSource) Subject() string { return s.subject }

// Close drains the connection.
func (s *NATSSource) Close() error {
	if err := s.conn.Drain(); err != nil {
		return eris.Wrap(err, "positioning: nats drain")
	}
	return nil
}

// Publish sends a fix or failure to the subject.
func (s *NATSSource) Publish(pos location.Position, fixErr error) error {
	return s.PublishSample(SampleOf(pos, fixErr))
}

// PublishSample sends a sample as is.
func (s *NATSSource) PublishSample(sample Sample) error {
	data, err := EncodeSample(sample)
	if err != nil {
		return err
	}
	if err := s.conn.Publish(s.subject, data); err != nil {
		return eris.Wrapf(err, "positioning: nats publish %s", s.subject)
	}
	return s.conn.Flush()
}

// cached returns the last fix if it is younger than maxAge.
func (s *NATSSource) cached(maxAge time.Duration) (location.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || maxAge <= 0 || s.now().Sub(s.seen) > maxAge {
		return location.Position{}, false
	}
	return *s.last, true
}

func (s *NATSSource) remember(pos location.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &pos
	s.seen = s.now()
}

// decode parses a message and caches fixes. ok is false for malformed payloads.
func (s *NATSSource) decode(msg *nats.Msg) (Sample, bool) {
	sample, err := DecodeSample(msg.Data)
	if err != nil {
		s.log.Warn("dropping malformed sample", zap.Error(err))
		return Sample{}, false
	}
	if sample.Error == nil {
		pos, _ := sample.Position()
		s.remember(pos)
	}
	return sample, true
}

// CurrentPosition implements location.PositionSource. A cached fix within
// opts.MaximumAge is returned at once; otherwise it waits up to opts.Timeout
// for the next sample.
func (s *NATSSource) CurrentPosition(ctx context.Context, opts location.PositionOptions) (location.Position, error) {
	if pos, ok := s.cached(opts.MaximumAge); ok {
		return pos, nil
	}

	sub, err := s.conn.SubscribeSync(s.subject)
	if err != nil {
		return location.Position{}, eris.Wrapf(err, "positioning: nats subscribe %s", s.subject)
	}
	defer func() { _ = sub.Unsubscribe() }()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	for {
		msg, err := sub.NextMsgWithContext(ctx)
		if err != nil {
			return location.Position{}, positionTimeout(ctx, err)
		}
		if sample, ok := s.decode(msg); ok {
			return sample.Position()
		}
	}
}

// watchDelivery serializes callbacks for one watch and drops the cached fix
// once a live sample has been delivered.
type watchDelivery struct {
	ctx context.Context
	fn  func(location.Position, error)

	mu   sync.Mutex
	live bool
}

func (d *watchDelivery) deliverLive(pos location.Position, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx.Err() != nil {
		return
	}
	d.live = true
	d.fn(pos, err)
}

func (d *watchDelivery) deliverCached(pos location.Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.live || d.ctx.Err() != nil {
		return
	}
	d.fn(pos, nil)
}

// WatchPosition implements location.PositionSource. A cached fix within
// opts.MaximumAge is delivered first unless a live sample beats it.
func (s *NATSSource) WatchPosition(ctx context.Context, opts location.PositionOptions, fn func(location.Position, error)) (location.Subscription, error) {
	d := &watchDelivery{ctx: ctx, fn: fn}
	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		if sample, ok := s.decode(msg); ok {
			d.deliverLive(sample.Position())
		}
	})
	if err != nil {
		return nil, eris.Wrapf(err, "positioning: nats subscribe %s", s.subject)
	}

	if pos, ok := s.cached(opts.MaximumAge); ok {
		go d.deliverCached(pos)
	}
	s.log.Debug("watching position feed")
	return sub, nil
}
