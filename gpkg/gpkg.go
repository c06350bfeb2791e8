// Package gpkg writes and reads OGC GeoPackage files holding vector
// feature layers. Geometries are orb values; attributes come from
// geojson.Feature properties.
package gpkg

import (
	"errors"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ApplicationID is the SQLite application_id of a GeoPackage ("GPKG").
const ApplicationID = 0x47504B47

// Column names every feature table carries.
const (
	FIDColumn      = "fid"
	GeometryColumn = "geom"
)

// Common errors returned by this package.
var (
	ErrEmptyLayer     = errors.New("gpkg: layer has no features")
	ErrDuplicateLayer = errors.New("gpkg: layer already written")
	ErrInvalidName    = errors.New("gpkg: invalid layer name")
	ErrClosed         = errors.New("gpkg: package is closed")
	ErrNotGeoPackage  = errors.New("gpkg: not a GeoPackage")
	ErrLayerNotFound  = errors.New("gpkg: layer not found")
	ErrInvalidBlob    = errors.New("gpkg: invalid geometry blob")
)

// SpatialRef is a row of gpkg_spatial_ref_sys.
type SpatialRef struct {
	ID           int    // srs_id
	Name         string // srs_name
	Organization string // e.g. "EPSG"
	OrgID        int    // organization_coordsys_id
	Definition   string // WKT definition
}

// WGS84 returns the EPSG:4326 spatial reference.
func WGS84() SpatialRef {
	return SpatialRef{
		ID:           4326,
		Name:         "WGS 84 geodetic",
		Organization: "EPSG",
		OrgID:        4326,
		Definition: `GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563,` +
			`AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0,` +
			`AUTHORITY["EPSG","8901"]],UNIT["degree",0.0174532925199433,AUTHORITY["EPSG","9122"]],` +
			`AXIS["Latitude",NORTH],AXIS["Longitude",EAST],AUTHORITY["EPSG","4326"]]`,
	}
}

// Layer is a named feature table to be written.
type Layer struct {
	Name        string
	Description string
	SRS         SpatialRef
	Features    []*geojson.Feature
}

// LayerInfo describes a feature table found in a package.
type LayerInfo struct {
	Name         string
	Description  string
	GeometryType string // e.g. "LINESTRING", "GEOMETRY" for mixed layers
	SRSID        int
	Bounds       orb.Bound
	Count        int
}

// validName rejects names that cannot be feature tables.
func validName(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	lower := strings.ToLower(name)
	return !strings.HasPrefix(lower, "gpkg_") && !strings.HasPrefix(lower, "sqlite_") &&
		!strings.ContainsRune(name, 0)
}

// quote returns name as a SQL identifier.
func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
