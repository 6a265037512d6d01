package geo

// Verdict is the region classification of a single coordinate.
type Verdict string

// Region classification values.
const (
	East    Verdict = "east"    // inside the region, outside the partition polygon
	West    Verdict = "west"    // inside the partition polygon
	Outside Verdict = "outside" // outside the region bounding box
)

// Result is the outcome of ClassifyLocation. District is empty when no
// district polygon matched, and always empty for Outside.
type Result struct {
	Verdict  Verdict `json:"status"`
	District string  `json:"district,omitempty"`
}

// IsInRegion reports whether c lies within box, bounds inclusive.
func IsInRegion(c Coordinate, box BoundingBox) bool {
	return c.Lat >= box.MinLat &&
		c.Lat <= box.MaxLat &&
		c.Lon >= box.MinLon &&
		c.Lon <= box.MaxLon
}

// IsPointInPolygon applies the even-odd rule. For every edge whose longitudes
// straddle the query longitude, the latitude where the edge crosses that
// longitude is interpolated; the parity flips when the query lies below it.
// Points exactly on an edge may go either way. Polygons with fewer than three
// vertices are accepted and simply tend to report false.
func IsPointInPolygon(c Coordinate, poly Polygon) bool {
	inside := false
	n := len(poly)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		lat1, lon1 := poly[i].Lat, poly[i].Lon
		lat2, lon2 := poly[j].Lat, poly[j].Lon

		if (lon1 > c.Lon) != (lon2 > c.Lon) &&
			c.Lat < lat1+(c.Lon-lon1)*(lat2-lat1)/(lon2-lon1) {
			inside = !inside
		}
	}
	return inside
}

// ClassifyDistrict returns the name of the first district, in slice order,
// whose polygon contains c. Overlaps resolve to the earlier entry.
func ClassifyDistrict(c Coordinate, districts []District) (string, bool) {
	for _, d := range districts {
		if IsPointInPolygon(c, d.Polygon) {
			return d.Name, true
		}
	}
	return "", false
}

// ClassifyLocation is the single place a coordinate is classified. Outside the
// region box nothing else is evaluated. Inside, the partition polygon decides
// West (contained) versus East, and the district is looked up independently.
func ClassifyLocation(c Coordinate, region BoundingBox, partition Polygon, districts []District) Result {
	if !IsInRegion(c, region) {
		return Result{Verdict: Outside}
	}

	verdict := East
	if IsPointInPolygon(c, partition) {
		verdict = West
	}
	district, _ := ClassifyDistrict(c, districts)

	return Result{Verdict: verdict, District: district}
}
