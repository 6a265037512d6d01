package location

import (
	"strconv"
)

// Display texts.
const (
	TextEast    = "East"
	TextWest    = "West"
	TextLoading = "Loading..."
	TextError   = "Error"
	TextPrompt  = "East or West?"
	// PromptLabel labels the permission-request trigger.
	PromptLabel = "Wo bin ich?"
)

// DisplayText returns the headline for s. A pending status renders empty
// while the permission check is still running.
func DisplayText(s Snapshot, city string) string {
	switch s.Status {
	case StatusEast:
		return TextEast
	case StatusWest:
		return TextWest
	case StatusOutside:
		if city == "" {
			return "Not in the city"
		}
		return "Not in " + city
	case StatusError:
		if s.Message != "" {
			return s.Message
		}
		return TextError
	case StatusLoading:
		return TextLoading
	case StatusPending:
		if s.Checking {
			return ""
		}
		return TextPrompt
	default:
		return ""
	}
}

// ShowPrompt reports whether a surface should offer RequestPermission.
func ShowPrompt(s Snapshot) bool {
	return s.Status == StatusPending && !s.Checking
}

// Color names the accent colour for a status.
func Color(s Status) string {
	switch s {
	case StatusEast:
		return "red"
	case StatusWest:
		return "blue"
	case StatusOutside:
		return "gray"
	default:
		return "darkgray"
	}
}

// FormatCoordinate renders one axis with six decimals.
func FormatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
