// Package positioning provides position and permission sources for the
// location controller: a fixed coordinate, a replayed recording, a NATS feed
// published by a GPS bridge, and a settable permission state.
package positioning

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/eastwest/internal/geo"
	"github.com/sells-group/eastwest/internal/location"
)

// Sample is the wire form of one fix or failure, shared by replay files and
// the NATS feed.
type Sample struct {
	Lat       float64                 `json:"lat"`
	Lon       float64                 `json:"lon"`
	Accuracy  float64                 `json:"accuracy,omitempty"`
	Timestamp time.Time               `json:"timestamp,omitzero"`
	Error     *location.PositionError `json:"error,omitempty"`
}

// Position converts the sample, returning its error if it carries one.
func (s Sample) Position() (location.Position, error) {
	if s.Error != nil {
		return location.Position{}, s.Error
	}
	return location.Position{
		Coordinate: geo.Coordinate{Lat: s.Lat, Lon: s.Lon},
		Accuracy:   s.Accuracy,
		Timestamp:  s.Timestamp,
	}, nil
}

// SampleOf builds the wire form of a fix or failure. Errors that are not
// PositionErrors are sent as CodePositionUnavailable.
func SampleOf(pos location.Position, err error) Sample {
	if err != nil {
		var pe *location.PositionError
		if !errors.As(err, &pe) {
			pe = &location.PositionError{Code: location.CodePositionUnavailable, Message: err.Error()}
		}
		return Sample{Error: pe}
	}
	return Sample{
		Lat:       pos.Lat,
		Lon:       pos.Lon,
		Accuracy:  pos.Accuracy,
		Timestamp: pos.Timestamp,
	}
}

// DecodeSample parses one JSON sample.
func DecodeSample(data []byte) (Sample, error) {
	var s Sample
	if err := json.Unmarshal(data, &s); err != nil {
		return Sample{}, eris.Wrap(err, "positioning: decode sample")
	}
	if s.Error != nil && s.Error.Code == 0 {
		s.Error.Code = location.CodePositionUnavailable
	}
	return s, nil
}

// EncodeSample renders a sample as JSON.
func EncodeSample(s Sample) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "positioning: encode sample")
	}
	return data, nil
}

func timeoutError() error {
	return &location.PositionError{Code: location.CodeTimeout, Message: "Timeout expired"}
}

// positionTimeout converts a deadline failure into the platform's timeout error.
func positionTimeout(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return timeoutError()
	}
	return err
}
