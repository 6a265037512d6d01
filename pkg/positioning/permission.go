package positioning

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/eastwest/internal/location"
)

// StaticPermission is a permission subsystem whose state is set by the
// application, for example from configuration or an operator command.
type StaticPermission struct {
	mu        sync.Mutex
	state     location.PermissionState
	nextID    int
	listeners map[int]func(location.PermissionState)
}

// NewStaticPermission starts in state.
func NewStaticPermission(state location.PermissionState) *StaticPermission {
	return &StaticPermission{state: state, listeners: make(map[int]func(location.PermissionState))}
}

// ParsePermissionState accepts granted, denied or prompt in any case.
func ParsePermissionState(s string) (location.PermissionState, error) {
	switch st := location.PermissionState(strings.ToLower(strings.TrimSpace(s))); st {
	case location.PermissionStateGranted, location.PermissionStateDenied, location.PermissionStatePrompt:
		return st, nil
	default:
		return "", eris.Errorf("positioning: unknown permission state %q", s)
	}
}

// Permission implements location.PermissionSource.
func (p *StaticPermission) Permission(_ context.Context) (location.PermissionState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state, nil
}

// NotifyPermission implements location.PermissionNotifier.
func (p *StaticPermission) NotifyPermission(fn func(location.PermissionState)) (location.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return cancelSubscription(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}), nil
}

// Set changes the state and notifies listeners if it differs.
func (p *StaticPermission) Set(state location.PermissionState) {
	p.mu.Lock()
	if p.state == state {
		p.mu.Unlock()
		return
	}
	p.state = state
	fns := make([]func(location.PermissionState), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
