// Package boundary loads the static geometry the classifier runs against: the
// city bounding box, the partition polygon and the ordered district list.
package boundary

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/eastwest/internal/geo"
)

// Sentinel errors returned by the loaders and Validate.
var (
	ErrNoRegion    = eris.New("boundary: dataset has no region")
	ErrNoPartition = eris.New("boundary: dataset has no partition polygon")
	ErrNoDistricts = eris.New("boundary: no district polygons found")
)

//go:embed berlin.geojson
var berlinGeoJSON []byte

var (
	defaultOnce    sync.Once
	defaultDataset *Dataset
)

// Dataset is immutable once loaded and safe for concurrent use.
type Dataset struct {
	City      string
	Region    geo.BoundingBox
	Partition geo.Polygon
	Districts []geo.District
}

// Default returns the embedded Berlin dataset. It panics if the embedded file
// is invalid, which only a broken build can cause.
func Default() *Dataset {
	defaultOnce.Do(func() {
		ds, err := ParseGeoJSON(berlinGeoJSON)
		if err != nil {
			panic(eris.Wrap(err, "boundary: embedded dataset"))
		}
		defaultDataset = ds
	})
	return defaultDataset
}

// Classify runs geo.ClassifyLocation against the dataset.
func (d *Dataset) Classify(c geo.Coordinate) geo.Result {
	return geo.ClassifyLocation(c, d.Region, d.Partition, d.Districts)
}

// DistrictNames returns district names in match order.
func (d *Dataset) DistrictNames() []string {
	names := make([]string, len(d.Districts))
	for i, dist := range d.Districts {
		names[i] = dist.Name
	}
	return names
}

// Validate checks that the dataset can produce meaningful verdicts.
func (d *Dataset) Validate() error {
	if d.Region.MinLat > d.Region.MaxLat || d.Region.MinLon > d.Region.MaxLon {
		return eris.Wrapf(ErrNoRegion, "inverted bounds %+v", d.Region)
	}
	if len(d.Partition) < 3 {
		return eris.Wrapf(ErrNoPartition, "partition has %d vertices", len(d.Partition))
	}

	seen := make(map[string]bool, len(d.Districts))
	for i, dist := range d.Districts {
		if strings.TrimSpace(dist.Name) == "" {
			return eris.Errorf("boundary: district %d has no name", i)
		}
		if seen[dist.Name] {
			return eris.Errorf("boundary: duplicate district %q", dist.Name)
		}
		seen[dist.Name] = true
		if len(dist.Polygon) < 3 {
			return eris.Errorf("boundary: district %q has %d vertices", dist.Name, len(dist.Polygon))
		}
	}
	return nil
}
