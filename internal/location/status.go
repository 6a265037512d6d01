// Package location tracks where the user is relative to the city partition.
// A Controller owns the status state machine: it resolves permission, fetches
// and watches positions, debounces transient states and classifies every fix.
package location

import (
	"github.com/sells-group/eastwest/internal/geo"
)

// Status is the externally visible state of a Controller.
type Status string

const (
	StatusEast    Status = "east"
	StatusWest    Status = "west"
	StatusOutside Status = "outside"
	StatusLoading Status = "loading"
	StatusError   Status = "error"
	StatusPending Status = "pending"
)

// StatusFromVerdict maps a classification verdict onto a Status.
func StatusFromVerdict(v geo.Verdict) Status {
	switch v {
	case geo.East:
		return StatusEast
	case geo.West:
		return StatusWest
	default:
		return StatusOutside
	}
}

// Permission is the controller's view of the positioning permission.
type Permission int

const (
	// PermissionUnknown means the user has not decided yet, or the
	// permission subsystem could not tell.
	PermissionUnknown Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// MarshalText renders the permission by name.
func (p Permission) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Phase is the controller's lifecycle state. Status is what a display shows;
// Phase is what the controller is waiting for.
//
//	Idle               -> CheckingPermission  Start with a permission source
//	Idle               -> AwaitingFirstFix    RequestPermission, change to granted
//	CheckingPermission -> AwaitingFirstFix    query reports granted
//	CheckingPermission -> Error               query reports denied
//	CheckingPermission -> Idle                query reports prompt or fails
//	AwaitingFirstFix   -> Tracking            position sample
//	AwaitingFirstFix   -> Error               position failure, change to denied
//	Tracking           -> Tracking            position sample
//	Tracking           -> Error               position failure, change to denied
//	Tracking           -> Idle                change to prompt
//	Error              -> AwaitingFirstFix    RequestPermission, change to granted
//	Error              -> Tracking            watch sample
//
// Start without a position source moves Idle -> Error and nothing leaves it.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCheckingPermission
	PhaseAwaitingFirstFix
	PhaseTracking
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCheckingPermission:
		return "checking-permission"
	case PhaseAwaitingFirstFix:
		return "awaiting-first-fix"
	case PhaseTracking:
		return "tracking"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
