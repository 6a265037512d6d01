package location

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/eastwest/internal/boundary"
	"github.com/sells-group/eastwest/internal/geo"
)

type fakeReply struct {
	pos Position
	err error
}

// fakeRequest is one CurrentPosition call, resolved by the test.
type fakeRequest struct {
	opts  PositionOptions
	reply chan fakeReply
	once  sync.Once
}

func (r *fakeRequest) resolve(lat, lon float64) {
	r.send(fakeReply{pos: Position{Coordinate: geo.Coordinate{Lat: lat, Lon: lon}, Accuracy: 20}})
}

func (r *fakeRequest) fail(err error) {
	r.send(fakeReply{err: err})
}

func (r *fakeRequest) send(rep fakeReply) {
	r.once.Do(func() { r.reply <- rep })
}

type fakeWatch struct {
	opts         PositionOptions
	fn           func(Position, error)
	unsubscribed atomic.Int32
}

func (w *fakeWatch) Unsubscribe() error {
	w.unsubscribed.Add(1)
	return nil
}

func (w *fakeWatch) emit(lat, lon float64) {
	w.fn(Position{Coordinate: geo.Coordinate{Lat: lat, Lon: lon}, Accuracy: 15}, nil)
}

func (w *fakeWatch) emitErr(err error) {
	w.fn(Position{}, err)
}

// fakeSource records every fetch and watch. Fetches block until the test
// resolves them and ignore ctx, like a platform that answers late.
type fakeSource struct {
	mu       sync.Mutex
	requests []*fakeRequest
	watches  []*fakeWatch
}

func newFakeSource(t *testing.T) *fakeSource {
	f := &fakeSource{}
	t.Cleanup(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, r := range f.requests {
			r.fail(errors.New("test finished"))
		}
	})
	return f
}

func (f *fakeSource) CurrentPosition(_ context.Context, opts PositionOptions) (Position, error) {
	req := &fakeRequest{opts: opts, reply: make(chan fakeReply, 1)}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	rep := <-req.reply
	return rep.pos, rep.err
}

func (f *fakeSource) WatchPosition(_ context.Context, opts PositionOptions, fn func(Position, error)) (Subscription, error) {
	w := &fakeWatch{opts: opts, fn: fn}
	f.mu.Lock()
	f.watches = append(f.watches, w)
	f.mu.Unlock()
	return w, nil
}

func (f *fakeSource) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeSource) watchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watches)
}

// request waits for the i-th fetch.
func (f *fakeSource) request(t *testing.T, i int) *fakeRequest {
	t.Helper()
	require.Eventually(t, func() bool { return f.requestCount() > i }, time.Second, time.Millisecond)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[i]
}

func (f *fakeSource) watch(t *testing.T, i int) *fakeWatch {
	t.Helper()
	require.Eventually(t, func() bool { return f.watchCount() > i }, time.Second, time.Millisecond)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.watches[i]
}

type mockPermissions struct {
	mock.Mock
}

func (m *mockPermissions) Permission(ctx context.Context) (PermissionState, error) {
	args := m.Called(ctx)
	return args.Get(0).(PermissionState), args.Error(1)
}

type subscriptionFunc func() error

func (f subscriptionFunc) Unsubscribe() error { return f() }

// notifyingPermissions adds change notifications to mockPermissions.
type notifyingPermissions struct {
	mockPermissions

	mu           sync.Mutex
	listener     func(PermissionState)
	unsubscribed int
}

func (n *notifyingPermissions) NotifyPermission(fn func(PermissionState)) (Subscription, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listener = fn
	return subscriptionFunc(func() error {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.unsubscribed++
		return nil
	}), nil
}

func (n *notifyingPermissions) change(s PermissionState) {
	n.mu.Lock()
	fn := n.listener
	n.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (n *notifyingPermissions) unsubscribeCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.unsubscribed
}

// harness wires a controller to the Berlin dataset, a fake source and a
// mock clock, and records every published snapshot.
type harness struct {
	c     *Controller
	clock *clock.Mock
	src   *fakeSource

	mu      sync.Mutex
	history []Snapshot
}

func newHarness(t *testing.T, perms PermissionSource) *harness {
	t.Helper()
	h := &harness{clock: clock.NewMock(), src: newFakeSource(t)}

	cfg := DefaultConfig()
	cfg.Clock = h.clock
	cfg.OnChange = func(s Snapshot) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.history = append(h.history, s)
	}

	h.c = New(cfg, boundary.Default(), h.src, perms)
	t.Cleanup(h.c.Close)
	return h
}

func (h *harness) start() {
	h.c.Start(context.Background())
	h.c.barrier()
}

// snapshot returns state after every queued event has been handled.
func (h *harness) snapshot() Snapshot {
	h.c.barrier()
	return h.c.Snapshot()
}

func (h *harness) advance(d time.Duration) {
	h.clock.Add(d)
	h.c.barrier()
}

func (h *harness) waitFor(t *testing.T, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	require.Eventually(t, func() bool { return cond(h.c.Snapshot()) }, time.Second, time.Millisecond)
	return h.c.Snapshot()
}

func (h *harness) changes() []Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Snapshot(nil), h.history...)
}

func statusIs(s Status) func(Snapshot) bool {
	return func(snap Snapshot) bool { return snap.Status == s }
}
