package location

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/facebookgo/clock"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/eastwest/internal/geo"
)

// Config controls controller behavior.
type Config struct {
	// Debounce delays the loading and pending transitions. Default: 1s.
	Debounce time.Duration

	// Position is passed to every fetch and watch.
	Position PositionOptions

	// Clock drives the debounce timers. Default: the wall clock.
	Clock clock.Clock

	// OnChange is called from the controller goroutine after every visible
	// change. It must not block and must not call Close.
	OnChange func(Snapshot)
}

// DefaultConfig returns a 1s debounce and DefaultPositionOptions.
func DefaultConfig() Config {
	return Config{
		Debounce: time.Second,
		Position: DefaultPositionOptions(),
	}
}

// Snapshot is a consistent copy of controller state.
type Snapshot struct {
	Status     Status          `json:"status"`
	Phase      Phase           `json:"phase"`
	Message    string          `json:"message,omitempty"`
	District   string          `json:"district,omitempty"`
	Coordinate *geo.Coordinate `json:"coordinate,omitempty"`
	Accuracy   float64         `json:"accuracy,omitempty"`
	Permission Permission      `json:"permission"`
	Checking   bool            `json:"checking"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// initialSnapshot is the state before Start and after Close.
func initialSnapshot() Snapshot {
	return Snapshot{Status: StatusPending, Phase: PhaseIdle, Permission: PermissionUnknown, Checking: true}
}

func (s Snapshot) sameAs(o Snapshot) bool {
	if s.Status != o.Status || s.Phase != o.Phase || s.Message != o.Message ||
		s.District != o.District || s.Accuracy != o.Accuracy ||
		s.Permission != o.Permission || s.Checking != o.Checking {
		return false
	}
	if (s.Coordinate == nil) != (o.Coordinate == nil) {
		return false
	}
	return s.Coordinate == nil || *s.Coordinate == *o.Coordinate
}

type event any

type timerKind int

const (
	loadingTimer timerKind = iota
	pendingTimer
)

type (
	requestEvent    struct{}
	barrierEvent    struct{ done chan struct{} }
	permissionEvent struct {
		seq   uint64
		state PermissionState
		err   error
	}
	permissionChange struct{ state PermissionState }
	fixEvent         struct {
		seq uint64
		pos Position
		err error
	}
	watchEvent struct {
		seq uint64
		pos Position
		err error
	}
	timerEvent struct {
		kind timerKind
		gen  uint64
	}
)

// Controller owns the location status state machine. All state lives on a
// single goroutine started by Start; sources, timers and callers only post
// events to it.
type Controller struct {
	cfg         Config
	classifier  Classifier
	positions   PositionSource
	permissions PermissionSource
	log         *zap.Logger

	events  chan event
	done    chan struct{}
	stopped chan struct{}
	running atomic.Bool

	lifeMu  sync.Mutex
	started bool
	closed  bool

	mu        sync.RWMutex
	published Snapshot

	// Owned by the loop goroutine.
	ctx         context.Context
	state       Snapshot
	loading     *debounce
	pending     *debounce
	permSeq     uint64
	fetchSeq    uint64
	fetchCancel context.CancelFunc
	watchSeq    uint64
	watch       Subscription
	watchCancel context.CancelFunc
	notify      Subscription
}

// New creates a controller. A nil positions source means the platform cannot
// position at all; a nil permissions source means permission cannot be
// queried and the controller waits for RequestPermission.
func New(cfg Config, classifier Classifier, positions PositionSource, permissions PermissionSource) *Controller {
	def := DefaultConfig()
	if cfg.Debounce < 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.Position.Timeout <= 0 {
		cfg.Position.Timeout = def.Position.Timeout
	}
	if cfg.Position.MaximumAge < 0 {
		cfg.Position.MaximumAge = def.Position.MaximumAge
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	c := &Controller{
		cfg:         cfg,
		classifier:  classifier,
		positions:   positions,
		permissions: permissions,
		log:         zap.L().With(zap.String("component", "location.controller")),
		events:      make(chan event, 32),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		published:   initialSnapshot(),
		state:       initialSnapshot(),
		ctx:         context.Background(),
	}
	c.loading = newDebounce(cfg.Clock, cfg.Debounce, func(gen uint64) {
		c.post(timerEvent{kind: loadingTimer, gen: gen})
	})
	c.pending = newDebounce(cfg.Clock, cfg.Debounce, func(gen uint64) {
		c.post(timerEvent{kind: pendingTimer, gen: gen})
	})
	return c
}

// Start runs the initialization protocol and starts the controller goroutine.
// Cancelling ctx tears the controller down like Close. Only the first call
// has any effect, and none after Close.
func (c *Controller) Start(ctx context.Context) {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.started || c.closed {
		return
	}
	c.started = true
	c.ctx = ctx
	c.running.Store(true)
	go c.run(ctx)
}

// RequestPermission is the user-initiated fetch. It shows loading at once and
// asks the position source for a fix. Calls before Start are ignored.
func (c *Controller) RequestPermission() {
	c.post(requestEvent{})
}

// Snapshot returns the most recently published state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.published
}

// Close cancels both debounce timers, the watch subscription, the permission
// listener and any in-flight fetch. No OnChange call happens after Close
// returns. Close is idempotent.
func (c *Controller) Close() {
	first := c.markClosed()

	c.lifeMu.Lock()
	started := c.started
	c.lifeMu.Unlock()

	if started {
		<-c.stopped
		return
	}
	if first {
		c.teardown()
	}
}

func (c *Controller) markClosed() bool {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.done)
	return true
}

// post delivers an event to the loop unless it is not running.
func (c *Controller) post(ev event) bool {
	if !c.running.Load() {
		return false
	}
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// barrier returns once every event posted before it has been handled.
func (c *Controller) barrier() {
	done := make(chan struct{})
	if !c.post(barrierEvent{done: done}) {
		return
	}
	select {
	case <-done:
	case <-c.stopped:
	}
}

func (c *Controller) run(ctx context.Context) {
	defer close(c.stopped)
	defer c.running.Store(false)

	c.onStart()
	c.publish()

	for {
		select {
		case <-c.done:
			c.teardown()
			return
		case <-ctx.Done():
			c.markClosed()
			c.teardown()
			return
		case ev := <-c.events:
			c.handle(ev)
			c.publish()
		}
	}
}

func (c *Controller) handle(ev event) {
	switch e := ev.(type) {
	case requestEvent:
		c.onRequest()
	case permissionEvent:
		if e.seq == c.permSeq {
			c.onPermissionResult(e.state, e.err)
		}
	case permissionChange:
		c.onPermissionChange(e.state)
	case fixEvent:
		if e.seq != c.fetchSeq {
			c.log.Debug("dropping stale fetch result", zap.Uint64("seq", e.seq))
			return
		}
		c.fetchCancel = nil
		c.onSample(e.pos, e.err)
	case watchEvent:
		if c.watch == nil || e.seq != c.watchSeq {
			return
		}
		c.onSample(e.pos, e.err)
	case timerEvent:
		switch {
		case e.kind == loadingTimer && c.loading.accept(e.gen):
			c.onLoadingFired()
		case e.kind == pendingTimer && c.pending.accept(e.gen):
			c.onPendingFired()
		}
	case barrierEvent:
		close(e.done)
	}
}

func (c *Controller) onStart() {
	c.log.Info("location controller started",
		zap.Duration("debounce", c.cfg.Debounce),
		zap.Bool("high_accuracy", c.cfg.Position.HighAccuracy),
	)

	if c.positions == nil {
		c.unsupported()
		return
	}
	if c.permissions == nil {
		c.state.Checking = false
		return
	}

	if n, ok := c.permissions.(PermissionNotifier); ok {
		sub, err := n.NotifyPermission(func(s PermissionState) { c.post(permissionChange{state: s}) })
		if err != nil {
			c.log.Warn("permission change notifications unavailable", zap.Error(err))
		} else {
			c.notify = sub
		}
	}

	c.state.Phase = PhaseCheckingPermission
	c.pending.arm()
	c.permSeq++
	seq, src, ctx := c.permSeq, c.permissions, c.ctx
	go func() {
		state, err := src.Permission(ctx)
		c.post(permissionEvent{seq: seq, state: state, err: err})
	}()
}

func (c *Controller) onPermissionResult(state PermissionState, err error) {
	c.pending.cancel()
	if err != nil {
		c.log.Warn("permission query failed", zap.Error(err))
		c.ambiguous()
		return
	}

	switch state {
	case PermissionStateGranted:
		c.granted()
	case PermissionStateDenied:
		c.denied()
	default:
		c.ambiguous()
	}
}

func (c *Controller) onPermissionChange(state PermissionState) {
	c.log.Debug("permission changed", zap.String("state", string(state)))
	if c.state.Phase == PhaseError && c.state.Message == MsgUnsupported {
		return
	}

	switch state {
	case PermissionStateGranted:
		if c.state.Permission == PermissionGranted {
			return
		}
		c.granted()
	case PermissionStateDenied:
		c.denied()
	default:
		c.setPermission(PermissionUnknown)
		if c.state.Phase == PhaseTracking {
			c.state.Phase = PhaseIdle
		}
	}
}

func (c *Controller) onRequest() {
	if c.positions == nil || c.state.Message == MsgUnsupported {
		c.unsupported()
		return
	}
	c.pending.cancel()
	c.state.Checking = false
	c.state.Status = StatusLoading
	c.state.Phase = PhaseAwaitingFirstFix
	c.fetch()
}

// granted is the permission-granted branch of initialization.
func (c *Controller) granted() {
	c.pending.cancel()
	c.setPermission(PermissionGranted)
	c.state.Phase = PhaseAwaitingFirstFix
	c.loading.arm()
	c.fetch()
}

func (c *Controller) denied() {
	c.loading.cancel()
	c.pending.cancel()
	c.cancelFetch()
	c.setPermission(PermissionDenied)
	c.fail(MsgPermissionDenied)
}

// ambiguous leaves the controller waiting for RequestPermission. A grant
// already proven by a fix is kept.
func (c *Controller) ambiguous() {
	c.state.Checking = false
	if c.state.Permission == PermissionGranted {
		return
	}
	c.setPermission(PermissionUnknown)
	if c.state.Phase == PhaseCheckingPermission {
		c.state.Phase = PhaseIdle
	}
}

func (c *Controller) unsupported() {
	c.loading.cancel()
	c.pending.cancel()
	c.cancelFetch()
	c.setPermission(PermissionDenied)
	c.fail(MsgUnsupported)
}

func (c *Controller) onSample(pos Position, err error) {
	if c.loading.armed() {
		c.log.Debug("sample arrived inside loading debounce")
	}
	c.loading.cancel()
	c.pending.cancel()

	if err != nil {
		switch {
		case eris.Is(err, ErrUnsupported):
			c.unsupported()
		case IsPermissionDenied(err):
			c.log.Warn("position permission denied", zap.Error(err))
			c.cancelFetch()
			c.setPermission(PermissionDenied)
			c.fail(MsgPermissionDenied)
		default:
			c.log.Warn("position fetch failed", zap.Error(err))
			c.fail(failureMessage(err))
		}
		return
	}

	res := c.classifier.Classify(pos.Coordinate)
	coord := pos.Coordinate

	c.state.Checking = false
	c.setPermission(PermissionGranted)
	c.state.Status = StatusFromVerdict(res.Verdict)
	c.state.District = res.District
	c.state.Coordinate = &coord
	c.state.Accuracy = pos.Accuracy
	c.state.Message = ""
	c.state.Phase = PhaseTracking
}

// fail sets the error status and clears everything location-related.
func (c *Controller) fail(msg string) {
	c.state.Status = StatusError
	c.state.Message = msg
	c.state.Checking = false
	c.state.Coordinate = nil
	c.state.District = ""
	c.state.Accuracy = 0
	c.state.Phase = PhaseError
}

func (c *Controller) onLoadingFired() {
	c.state.Status = StatusLoading
	c.state.Checking = false
}

func (c *Controller) onPendingFired() {
	if c.state.Permission == PermissionGranted {
		return
	}
	c.state.Status = StatusPending
}

// setPermission records p and keeps exactly one watch alive while it is
// granted.
func (c *Controller) setPermission(p Permission) {
	c.state.Permission = p
	if p == PermissionGranted {
		c.startWatch()
	} else {
		c.stopWatch()
	}
}

// fetch starts a one-shot position request, superseding any in flight.
func (c *Controller) fetch() {
	c.cancelFetch()
	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.Position.Timeout)
	c.fetchCancel = cancel
	seq, src, opts := c.fetchSeq, c.positions, c.cfg.Position

	go func() {
		defer cancel()
		pos, err := src.CurrentPosition(ctx, opts)
		c.post(fixEvent{seq: seq, pos: pos, err: err})
	}()
}

// cancelFetch abandons the outstanding fetch; its result will be dropped.
func (c *Controller) cancelFetch() {
	c.fetchSeq++
	if c.fetchCancel != nil {
		c.fetchCancel()
		c.fetchCancel = nil
	}
}

func (c *Controller) startWatch() {
	if c.watch != nil || c.positions == nil {
		return
	}

	c.watchSeq++
	seq := c.watchSeq
	ctx, cancel := context.WithCancel(c.ctx)
	sub, err := c.positions.WatchPosition(ctx, c.cfg.Position, func(pos Position, err error) {
		c.post(watchEvent{seq: seq, pos: pos, err: err})
	})
	if err != nil {
		cancel()
		c.log.Warn("position watch failed", zap.Error(err))
		return
	}
	c.watch = sub
	c.watchCancel = cancel
	c.log.Info("position watch started", zap.Uint64("seq", seq))
}

func (c *Controller) stopWatch() {
	if c.watch == nil {
		return
	}
	if err := c.watch.Unsubscribe(); err != nil {
		c.log.Warn("position watch unsubscribe failed", zap.Error(err))
	}
	c.watchCancel()
	c.watch = nil
	c.watchCancel = nil
	c.watchSeq++
	c.log.Info("position watch stopped")
}

// teardown runs once, on the loop goroutine when it exits, or on the caller
// when the loop never started.
func (c *Controller) teardown() {
	c.loading.cancel()
	c.pending.cancel()
	c.cancelFetch()
	c.stopWatch()
	if c.notify != nil {
		if err := c.notify.Unsubscribe(); err != nil {
			c.log.Warn("permission listener unsubscribe failed", zap.Error(err))
		}
		c.notify = nil
	}

	c.state = initialSnapshot()
	c.mu.Lock()
	c.published = initialSnapshot()
	c.mu.Unlock()
	c.log.Info("location controller stopped")
}

func (c *Controller) publish() {
	c.mu.RLock()
	prev := c.published
	c.mu.RUnlock()
	if c.state.sameAs(prev) {
		return
	}

	c.state.UpdatedAt = c.cfg.Clock.Now()
	next := c.state
	c.mu.Lock()
	c.published = next
	c.mu.Unlock()

	c.log.Debug("location status changed",
		zap.String("status", string(next.Status)),
		zap.Stringer("phase", next.Phase),
		zap.Stringer("permission", next.Permission),
		zap.Bool("checking", next.Checking),
		zap.String("district", next.District),
	)
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(next)
	}
}
