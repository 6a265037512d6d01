package boundary

import (
	"math"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/eastwest/internal/geo"
)

// LoadShapefile reads district polygons from an ESRI shapefile in WGS 84
// lon/lat. nameField names the attribute holding the district name. The
// returned dataset has no partition; its region is the extent of all
// districts.
func LoadShapefile(path, nameField string) (*Dataset, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "boundary: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	log := zap.L().With(
		zap.String("component", "boundary.shapefile"),
		zap.String("path", path),
	)

	nameIdx := fieldIndex(reader, nameField)
	if nameIdx < 0 {
		return nil, eris.Errorf("boundary: shapefile field %q not found", nameField)
	}

	ds := &Dataset{}
	region := geo.BoundingBox{
		MinLat: math.Inf(1),
		MaxLat: math.Inf(-1),
		MinLon: math.Inf(1),
		MaxLon: math.Inf(-1),
	}
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}

		ring := firstPart(poly)
		if len(ring) < 3 {
			skipped++
			continue
		}

		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if name == "" {
			skipped++
			continue
		}

		ds.Districts = append(ds.Districts, geo.District{Name: name, Polygon: ring})

		b := ring.Bounds()
		region.MinLat = math.Min(region.MinLat, b.MinLat)
		region.MaxLat = math.Max(region.MaxLat, b.MaxLat)
		region.MinLon = math.Min(region.MinLon, b.MinLon)
		region.MaxLon = math.Max(region.MaxLon, b.MaxLon)
	}

	if skipped > 0 {
		log.Debug("skipped shapefile records", zap.Int("skipped", skipped))
	}
	if len(ds.Districts) == 0 {
		return nil, eris.Wrapf(ErrNoDistricts, "shapefile %s", path)
	}
	ds.Region = region

	log.Info("district shapefile loaded", zap.Int("districts", len(ds.Districts)))
	return ds, nil
}

// firstPart returns the outer ring of a shapefile polygon without its closing vertex.
func firstPart(p *shp.Polygon) geo.Polygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	end := int32(len(p.Points))
	if p.NumParts > 1 {
		end = p.Parts[1]
	}
	start := p.Parts[0]
	if start < 0 || start >= end || end > int32(len(p.Points)) {
		return nil
	}

	ring := make(geo.Polygon, 0, end-start)
	for _, pt := range p.Points[start:end] {
		ring = append(ring, geo.Coordinate{Lat: pt.Y, Lon: pt.X})
	}
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		ring = ring[:n-1]
	}
	return ring
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
