package boundary

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/eastwest/internal/config"
)

// Load resolves the configured boundary dataset. An empty path returns the
// embedded dataset. A .geojson or .json path is parsed as a full dataset. A
// .shp path supplies districts and region while the embedded partition is
// kept.
func Load(cfg config.BoundaryConfig) (*Dataset, error) {
	var ds *Dataset

	switch ext := strings.ToLower(filepath.Ext(cfg.Path)); {
	case cfg.Path == "":
		base := Default()
		if cfg.City == "" || cfg.City == base.City {
			return base, nil
		}
		cp := *base
		ds = &cp

	case ext == ".geojson" || ext == ".json":
		data, err := os.ReadFile(cfg.Path)
		if err != nil {
			return nil, eris.Wrapf(err, "boundary: read %s", cfg.Path)
		}
		parsed, err := ParseGeoJSON(data)
		if err != nil {
			return nil, eris.Wrapf(err, "boundary: parse %s", cfg.Path)
		}
		ds = parsed

	case ext == ".shp":
		field := cfg.DistrictField
		if field == "" {
			field = "NAME"
		}
		loaded, err := LoadShapefile(cfg.Path, field)
		if err != nil {
			return nil, err
		}
		base := Default()
		loaded.City = base.City
		loaded.Partition = base.Partition
		ds = loaded

	default:
		return nil, eris.Errorf("boundary: unsupported file type %q", ext)
	}

	if cfg.City != "" {
		ds.City = cfg.City
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}
