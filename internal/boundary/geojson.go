package boundary

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/sells-group/eastwest/internal/geo"
)

// Feature kinds recognised in the "kind" property.
const (
	KindRegion    = "region"
	KindPartition = "partition"
	KindDistrict  = "district"
)

// ParseGeoJSON decodes a FeatureCollection. Each feature needs a "kind"
// property; the region feature's extent becomes the bounding box and its
// "name" the city. Districts keep feature order, which is their match order.
func ParseGeoJSON(data []byte) (*Dataset, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrap(err, "boundary: decode geojson")
	}

	log := zap.L().With(zap.String("component", "boundary.geojson"))

	ds := &Dataset{}
	var haveRegion, havePartition bool
	var skipped int

	for i, f := range fc.Features {
		kind := strings.ToLower(stringProperty(f, "kind"))
		name := stringProperty(f, "name")

		switch kind {
		case KindRegion:
			if haveRegion {
				return nil, eris.Errorf("boundary: feature %d: second region feature", i)
			}
			box, err := boundsOf(f.Geometry)
			if err != nil {
				return nil, eris.Wrapf(err, "boundary: feature %d", i)
			}
			ds.Region = box
			ds.City = name
			haveRegion = true

		case KindPartition:
			if havePartition {
				return nil, eris.Errorf("boundary: feature %d: second partition feature", i)
			}
			ring, err := outerRing(f.Geometry)
			if err != nil {
				return nil, eris.Wrapf(err, "boundary: feature %d", i)
			}
			ds.Partition = ring
			havePartition = true

		case KindDistrict:
			ring, err := outerRing(f.Geometry)
			if err != nil {
				return nil, eris.Wrapf(err, "boundary: district %q", name)
			}
			ds.Districts = append(ds.Districts, geo.District{Name: name, Polygon: ring})

		default:
			skipped++
		}
	}

	if skipped > 0 {
		log.Debug("skipped features without a known kind", zap.Int("skipped", skipped))
	}
	if !haveRegion {
		return nil, ErrNoRegion
	}
	if !havePartition {
		return nil, ErrNoPartition
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}

	log.Debug("boundary dataset parsed",
		zap.String("city", ds.City),
		zap.Int("partition_vertices", len(ds.Partition)),
		zap.Int("districts", len(ds.Districts)),
	)
	return ds, nil
}

func stringProperty(f *geojson.Feature, key string) string {
	if f == nil || f.Properties == nil {
		return ""
	}
	v, ok := f.Properties[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// outerRing returns the outer ring of a Polygon, or of the first polygon of a
// MultiPolygon, with the repeated closing vertex removed.
func outerRing(g geom.T) (geo.Polygon, error) {
	var poly *geom.Polygon
	switch t := g.(type) {
	case *geom.Polygon:
		poly = t
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return nil, eris.New("empty multipolygon")
		}
		poly = t.Polygon(0)
	case nil:
		return nil, eris.New("missing geometry")
	default:
		return nil, eris.Errorf("unsupported geometry %T", g)
	}
	if poly.NumLinearRings() == 0 {
		return nil, eris.New("polygon has no rings")
	}

	return ringFromCoords(poly.LinearRing(0).Coords()), nil
}

// ringFromCoords converts x/y (lon/lat) coordinates and drops a closing vertex
// equal to the first.
func ringFromCoords(coords []geom.Coord) geo.Polygon {
	ring := make(geo.Polygon, 0, len(coords))
	for _, c := range coords {
		ring = append(ring, geo.Coordinate{Lat: c.Y(), Lon: c.X()})
	}
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		ring = ring[:n-1]
	}
	return ring
}

func boundsOf(g geom.T) (geo.BoundingBox, error) {
	if g == nil {
		return geo.BoundingBox{}, eris.New("missing geometry")
	}
	b := g.Bounds()
	if b.IsEmpty() {
		return geo.BoundingBox{}, eris.New("empty geometry")
	}
	return geo.BoundingBox{
		MinLat: b.Min(1),
		MaxLat: b.Max(1),
		MinLon: b.Min(0),
		MaxLon: b.Max(0),
	}, nil
}
