// Package geo classifies coordinates against a city bounding box, the polygon
// splitting the city into its two historical halves, and named district polygons.
package geo

import "math"

// Coordinate is a WGS 84 position in signed decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// BoundingBox is an axis-aligned rectangle in degrees. All four bounds are inclusive.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether c lies inside the box.
func (b BoundingBox) Contains(c Coordinate) bool {
	return IsInRegion(c, b)
}

// Polygon is an implicitly closed ring of vertices: the last vertex connects
// back to the first.
type Polygon []Coordinate

// Bounds returns the smallest box enclosing every vertex. An empty polygon
// yields the zero box.
func (p Polygon) Bounds() BoundingBox {
	if len(p) == 0 {
		return BoundingBox{}
	}
	b := BoundingBox{
		MinLat: math.Inf(1),
		MaxLat: math.Inf(-1),
		MinLon: math.Inf(1),
		MaxLon: math.Inf(-1),
	}
	for _, v := range p {
		b.MinLat = math.Min(b.MinLat, v.Lat)
		b.MaxLat = math.Max(b.MaxLat, v.Lat)
		b.MinLon = math.Min(b.MinLon, v.Lon)
		b.MaxLon = math.Max(b.MaxLon, v.Lon)
	}
	return b
}

// District is a named sub-area used for display only.
type District struct {
	Name    string  `json:"name"`
	Polygon Polygon `json:"polygon"`
}
