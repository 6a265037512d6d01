package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/eastwest/internal/config"
	"github.com/sells-group/eastwest/internal/location"
	"github.com/sells-group/eastwest/pkg/positioning"
)

func testConfig() *config.Config {
	return &config.Config{
		Tracking: config.TrackingConfig{DebounceMs: 250, HighAccuracy: true, TimeoutMs: 5000, MaxAgeMs: 0},
		Source: config.SourceConfig{
			Kind:       "fixed",
			Permission: "prompt",
			Fixed:      config.FixedConfig{Lat: 52.52, Lon: 13.405, Accuracy: 25, DelayMs: 100},
		},
		NATS: config.NATSConfig{URL: "nats://127.0.0.1:1", Subject: "eastwest.position"},
	}
}

func TestBuildSources_Fixed(t *testing.T) {
	src, err := buildSources(testConfig())
	require.NoError(t, err)
	defer src.Close()

	fixed, ok := src.Positions.(*positioning.Fixed)
	require.True(t, ok)
	assert.InDelta(t, 52.52, fixed.Coordinate.Lat, 1e-9)
	assert.InDelta(t, 13.405, fixed.Coordinate.Lon, 1e-9)
	assert.Equal(t, 25.0, fixed.Accuracy)
	assert.Equal(t, 100*time.Millisecond, fixed.Delay)

	require.NotNil(t, src.Static)
	assert.Same(t, src.Static, src.Permissions)
}

func TestBuildSources_Replay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walk.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"lat":52.52,"lon":13.40}
{"lat":52.51,"lon":13.30}
`), 0o600))

	c := testConfig()
	c.Source.Kind = "Replay"
	c.Source.Replay = config.ReplayConfig{Path: path, Rate: 0, Loop: true}

	src, err := buildSources(c)
	require.NoError(t, err)
	defer src.Close()

	r, ok := src.Positions.(*positioning.Replay)
	require.True(t, ok)
	assert.Equal(t, 2, r.Len())
}

func TestBuildSources_ReplayMissingFile(t *testing.T) {
	c := testConfig()
	c.Source.Kind = "replay"
	c.Source.Replay.Path = filepath.Join(t.TempDir(), "missing.jsonl")

	_, err := buildSources(c)
	assert.Error(t, err)
}

func TestBuildSources_None(t *testing.T) {
	c := testConfig()
	c.Source.Kind = "none"
	c.Source.Permission = "none"

	src, err := buildSources(c)
	require.NoError(t, err)
	defer src.Close()

	assert.Nil(t, src.Positions)
	assert.Nil(t, src.Permissions)
	assert.Nil(t, src.Static)
}

func TestBuildSources_PermissionState(t *testing.T) {
	c := testConfig()
	c.Source.Permission = "GRANTED"

	src, err := buildSources(c)
	require.NoError(t, err)
	defer src.Close()

	state, err := src.Permissions.Permission(t.Context())
	require.NoError(t, err)
	assert.Equal(t, location.PermissionStateGranted, state)
}

func TestBuildSources_Errors(t *testing.T) {
	c := testConfig()
	c.Source.Kind = "satellite"
	_, err := buildSources(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source kind")

	c = testConfig()
	c.Source.Permission = "maybe"
	_, err = buildSources(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown permission state")
}

func TestBuildSources_NATSUnreachable(t *testing.T) {
	c := testConfig()
	c.Source.Kind = "nats"

	_, err := buildSources(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nats connect")
}

func TestControllerConfig(t *testing.T) {
	lc := controllerConfig(testConfig())

	assert.Equal(t, 250*time.Millisecond, lc.Debounce)
	assert.True(t, lc.Position.HighAccuracy)
	assert.Equal(t, 5*time.Second, lc.Position.Timeout)
	assert.Equal(t, time.Duration(0), lc.Position.MaximumAge)
	assert.Nil(t, lc.Clock)
	assert.Nil(t, lc.OnChange)
}
