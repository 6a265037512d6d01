package main

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/eastwest/internal/config"
	"github.com/sells-group/eastwest/internal/geo"
	"github.com/sells-group/eastwest/internal/location"
	"github.com/sells-group/eastwest/pkg/positioning"
)

// sources holds the configured collaborators. A nil Positions means the
// platform cannot position; a nil Permissions means permission cannot be
// queried.
type sources struct {
	Positions   location.PositionSource
	Permissions location.PermissionSource
	// Static is set when Permissions can be changed at runtime.
	Static *positioning.StaticPermission
	close  func()
}

// Close releases any connection the sources hold.
func (s *sources) Close() {
	if s.close != nil {
		s.close()
	}
}

func buildSources(c *config.Config) (*sources, error) {
	log := zap.L().With(zap.String("component", "cmd.sources"))
	s := &sources{}

	switch strings.ToLower(c.Source.Kind) {
	case "fixed":
		s.Positions = positioning.NewFixed(
			geo.Coordinate{Lat: c.Source.Fixed.Lat, Lon: c.Source.Fixed.Lon},
			c.Source.Fixed.Accuracy,
			time.Duration(c.Source.Fixed.DelayMs)*time.Millisecond,
		)
	case "replay":
		r, err := positioning.LoadReplay(c.Source.Replay.Path, c.Source.Replay.Rate, c.Source.Replay.Loop)
		if err != nil {
			return nil, err
		}
		s.Positions = r
	case "nats":
		n, err := positioning.DialNATS(c.NATS.URL, c.NATS.Subject)
		if err != nil {
			return nil, err
		}
		s.Positions = n
		s.close = func() {
			if err := n.Close(); err != nil {
				log.Warn("close nats source", zap.Error(err))
			}
		}
	case "none":
	default:
		return nil, eris.Errorf("cmd: unknown source kind %q", c.Source.Kind)
	}

	if !strings.EqualFold(c.Source.Permission, "none") {
		state, err := positioning.ParsePermissionState(c.Source.Permission)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Static = positioning.NewStaticPermission(state)
		s.Permissions = s.Static
	}

	log.Debug("sources configured",
		zap.String("kind", c.Source.Kind),
		zap.String("permission", c.Source.Permission),
	)
	return s, nil
}

func controllerConfig(c *config.Config) location.Config {
	lc := location.DefaultConfig()
	lc.Debounce = time.Duration(c.Tracking.DebounceMs) * time.Millisecond
	lc.Position = location.PositionOptions{
		HighAccuracy: c.Tracking.HighAccuracy,
		Timeout:      time.Duration(c.Tracking.TimeoutMs) * time.Millisecond,
		MaximumAge:   time.Duration(c.Tracking.MaxAgeMs) * time.Millisecond,
	}
	return lc
}
