package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var testBox = BoundingBox{MinLat: 52.3383, MaxLat: 52.6755, MinLon: 13.0884, MaxLon: 13.7611}

var square = Polygon{{0, 0}, {0, 10}, {10, 10}, {10, 0}}

func TestIsInRegion(t *testing.T) {
	tests := []struct {
		name     string
		c        Coordinate
		expected bool
	}{
		{name: "center", c: Coordinate{52.52, 13.405}, expected: true},
		{name: "south-west corner", c: Coordinate{testBox.MinLat, testBox.MinLon}, expected: true},
		{name: "south-east corner", c: Coordinate{testBox.MinLat, testBox.MaxLon}, expected: true},
		{name: "north-west corner", c: Coordinate{testBox.MaxLat, testBox.MinLon}, expected: true},
		{name: "north-east corner", c: Coordinate{testBox.MaxLat, testBox.MaxLon}, expected: true},
		{name: "just south", c: Coordinate{testBox.MinLat - 1e-9, 13.4}, expected: false},
		{name: "just north", c: Coordinate{testBox.MaxLat + 1e-9, 13.4}, expected: false},
		{name: "just west", c: Coordinate{52.5, testBox.MinLon - 1e-9}, expected: false},
		{name: "just east", c: Coordinate{52.5, testBox.MaxLon + 1e-9}, expected: false},
		{name: "potsdam", c: Coordinate{52.3906, 13.0645}, expected: false},
		{name: "southern hemisphere", c: Coordinate{-52.52, 13.405}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsInRegion(tt.c, testBox))
			assert.Equal(t, tt.expected, testBox.Contains(tt.c))
		})
	}
}

func TestIsPointInPolygon_Square(t *testing.T) {
	assert.True(t, IsPointInPolygon(Coordinate{5, 5}, square))
	assert.False(t, IsPointInPolygon(Coordinate{50, 50}, square))
	assert.False(t, IsPointInPolygon(Coordinate{-1, 5}, square))
	assert.False(t, IsPointInPolygon(Coordinate{5, 11}, square))
	assert.True(t, IsPointInPolygon(Coordinate{0.5, 9.5}, square))
}

func TestIsPointInPolygon_Concave(t *testing.T) {
	// U shape opening north: the notch between lon 4 and 6 above lat 2 is outside.
	u := Polygon{{0, 0}, {10, 0}, {10, 4}, {2, 4}, {2, 6}, {10, 6}, {10, 10}, {0, 10}}

	assert.True(t, IsPointInPolygon(Coordinate{1, 5}, u))
	assert.True(t, IsPointInPolygon(Coordinate{8, 2}, u))
	assert.True(t, IsPointInPolygon(Coordinate{8, 8}, u))
	assert.False(t, IsPointInPolygon(Coordinate{8, 5}, u))
}

func TestIsPointInPolygon_ClosingVertexIgnored(t *testing.T) {
	closed := append(Polygon{}, square...)
	closed = append(closed, square[0])

	for _, c := range []Coordinate{{5, 5}, {50, 50}, {9, 1}, {11, 1}} {
		assert.Equal(t, IsPointInPolygon(c, square), IsPointInPolygon(c, closed), "coordinate %v", c)
	}
}

func TestIsPointInPolygon_Degenerate(t *testing.T) {
	assert.False(t, IsPointInPolygon(Coordinate{5, 5}, nil))
	assert.False(t, IsPointInPolygon(Coordinate{5, 5}, Polygon{{5, 5}}))
	assert.False(t, IsPointInPolygon(Coordinate{5, 5}, Polygon{{0, 0}, {10, 10}}))
}

func TestClassifyDistrict(t *testing.T) {
	districts := []District{
		{Name: "south", Polygon: Polygon{{0, 0}, {0, 10}, {5, 10}, {5, 0}}},
		{Name: "north", Polygon: Polygon{{5, 0}, {5, 10}, {10, 10}, {10, 0}}},
	}

	name, ok := ClassifyDistrict(Coordinate{2, 2}, districts)
	assert.True(t, ok)
	assert.Equal(t, "south", name)

	name, ok = ClassifyDistrict(Coordinate{7, 2}, districts)
	assert.True(t, ok)
	assert.Equal(t, "north", name)

	name, ok = ClassifyDistrict(Coordinate{20, 20}, districts)
	assert.False(t, ok)
	assert.Empty(t, name)

	_, ok = ClassifyDistrict(Coordinate{2, 2}, nil)
	assert.False(t, ok)
}

func TestClassifyDistrict_FirstMatchWins(t *testing.T) {
	wide := District{Name: "wide", Polygon: Polygon{{-100, -100}, {-100, 100}, {100, 100}, {100, -100}}}
	small := District{Name: "small", Polygon: square}
	pt := Coordinate{5, 5}

	for i := 0; i < 3; i++ {
		name, ok := ClassifyDistrict(pt, []District{small, wide})
		assert.True(t, ok)
		assert.Equal(t, "small", name)

		name, ok = ClassifyDistrict(pt, []District{wide, small})
		assert.True(t, ok)
		assert.Equal(t, "wide", name)
	}
}

func TestClassifyLocation(t *testing.T) {
	box := BoundingBox{MinLat: 0, MaxLat: 10, MinLon: 0, MaxLon: 20}
	partition := Polygon{{0, 0}, {0, 10}, {10, 10}, {10, 0}}
	districts := []District{
		{Name: "left", Polygon: Polygon{{0, 0}, {0, 5}, {10, 5}, {10, 0}}},
		{Name: "right", Polygon: Polygon{{0, 15}, {0, 20}, {10, 20}, {10, 15}}},
	}

	tests := []struct {
		name     string
		c        Coordinate
		expected Result
	}{
		{name: "west with district", c: Coordinate{5, 2}, expected: Result{Verdict: West, District: "left"}},
		{name: "west without district", c: Coordinate{5, 7}, expected: Result{Verdict: West}},
		{name: "east with district", c: Coordinate{5, 17}, expected: Result{Verdict: East, District: "right"}},
		{name: "east without district", c: Coordinate{5, 12}, expected: Result{Verdict: East}},
		{name: "outside", c: Coordinate{50, 50}, expected: Result{Verdict: Outside}},
		{name: "on box corner", c: Coordinate{10, 20}, expected: Result{Verdict: East}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyLocation(tt.c, box, partition, districts))
		})
	}
}

func TestClassifyLocation_OutsideShortCircuits(t *testing.T) {
	box := BoundingBox{MinLat: 0, MaxLat: 1, MinLon: 0, MaxLon: 1}
	everywhere := Polygon{{-90, -180}, {-90, 180}, {90, 180}, {90, -180}}
	districts := []District{{Name: "everywhere", Polygon: everywhere}}

	for _, c := range []Coordinate{{5, 5}, {-5, 0.5}, {0.5, 1.0001}, {89, -179}} {
		got := ClassifyLocation(c, box, everywhere, districts)
		assert.Equal(t, Outside, got.Verdict, "coordinate %v", c)
		assert.Empty(t, got.District, "coordinate %v", c)
	}
}

func TestPolygonBounds(t *testing.T) {
	p := Polygon{{52.4, 13.1}, {52.6, 13.2}, {52.5, 13.7}}
	b := p.Bounds()

	assert.InDelta(t, 52.4, b.MinLat, 1e-12)
	assert.InDelta(t, 52.6, b.MaxLat, 1e-12)
	assert.InDelta(t, 13.1, b.MinLon, 1e-12)
	assert.InDelta(t, 13.7, b.MaxLon, 1e-12)
	assert.Equal(t, BoundingBox{}, Polygon(nil).Bounds())
}
