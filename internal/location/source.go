package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/eastwest/internal/geo"
)

// Fixed status messages.
const (
	MsgUnsupported      = "Geolocation not supported"
	MsgPermissionDenied = "Geolocation permission denied"
)

// ErrUnsupported is returned by a PositionSource that cannot produce
// positions at all. The controller treats it like a missing source.
var ErrUnsupported = eris.New("location: positioning not supported")

// Position is one fix reported by a PositionSource.
type Position struct {
	geo.Coordinate
	Accuracy  float64   `json:"accuracy"` // metres
	Timestamp time.Time `json:"timestamp"`
}

// PositionOptions are passed to every fetch and watch.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	// MaximumAge is how old a cached fix may be and still be returned.
	MaximumAge time.Duration
}

// DefaultPositionOptions returns low accuracy, a 10s timeout and 30s max age.
func DefaultPositionOptions() PositionOptions {
	return PositionOptions{
		HighAccuracy: false,
		Timeout:      10 * time.Second,
		MaximumAge:   30 * time.Second,
	}
}

// ErrorCode classifies a platform position failure.
type ErrorCode int

const (
	CodePermissionDenied    ErrorCode = 1
	CodePositionUnavailable ErrorCode = 2
	CodeTimeout             ErrorCode = 3
)

func (c ErrorCode) String() string {
	switch c {
	case CodePermissionDenied:
		return "permission denied"
	case CodePositionUnavailable:
		return "position unavailable"
	case CodeTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("error code %d", int(c))
	}
}

// PositionError is a failure reported by the platform.
type PositionError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Message
}

// IsPermissionDenied reports whether err carries a PermissionDenied code.
func IsPermissionDenied(err error) bool {
	var pe *PositionError
	return errors.As(err, &pe) && pe.Code == CodePermissionDenied
}

// failureMessage is the text shown for a non-permission failure.
func failureMessage(err error) string {
	var pe *PositionError
	if errors.As(err, &pe) {
		return pe.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return (&PositionError{Code: CodeTimeout, Message: "CodeTimeout expired"}).Error()
	}
	return err.Error()
}

// PositionSource produces position fixes.
type PositionSource interface {
	// CurrentPosition returns one fix or a failure.
	CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
	// WatchPosition calls fn with the current position and again whenever it
	// changes, until the subscription is cancelled. fn must not be called
	// from inside WatchPosition itself.
	WatchPosition(ctx context.Context, opts PositionOptions, fn func(Position, error)) (Subscription, error)
}

// Subscription cancels a watch or notification registration.
type Subscription interface {
	Unsubscribe() error
}

// PermissionState is what a permission subsystem reports.
type PermissionState string

const (
	PermissionStateGranted PermissionState = "granted"
	PermissionStateDenied  PermissionState = "denied"
	PermissionStatePrompt  PermissionState = "prompt"
)

// PermissionSource reports the current positioning permission.
type PermissionSource interface {
	Permission(ctx context.Context) (PermissionState, error)
}

// PermissionNotifier is implemented by permission sources that can report
// later changes.
type PermissionNotifier interface {
	NotifyPermission(fn func(PermissionState)) (Subscription, error)
}

// Classifier turns a coordinate into a verdict. *boundary.Dataset satisfies it.
type Classifier interface {
	Classify(c geo.Coordinate) geo.Result
}
