// Package geoio normalizes spatial feature collections and writes them as
// named layers into a single GeoPackage.
//
// Each input layer is cleaned for its role (lines, points, polygons or
// passthrough), reprojected to WGS84 and appended to the output package.
// Layers that clean down to nothing are left out of the package.
package geoio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Version is the module release.
const Version = "0.1.0"

// TargetCRS is the coordinate reference system of every written layer.
const (
	TargetCRS   = "EPSG:4326"
	TargetSRSID = 4326
)

// Errors returned by this package. Layer-level failures wrap ErrGeometry,
// ErrCRS or ErrLayerName and only omit the affected layer; ErrIO is fatal.
var (
	ErrGeometry  = errors.New("geoio: malformed feature collection")
	ErrCRS       = errors.New("geoio: unsupported coordinate reference system")
	ErrLayerName = errors.New("geoio: invalid layer name")
	ErrIO        = errors.New("geoio: cannot write package")
)

// LayerError reports a failure confined to one layer.
type LayerError struct {
	Layer string
	Err   error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("layer %q: %v", e.Layer, e.Err)
}

func (e *LayerError) Unwrap() error { return e.Err }

// Role selects the canonical geometry type a layer is cleaned to.
type Role int

const (
	RolePassthrough Role = iota // validity filtering only
	RoleLine                    // LineString
	RolePoint                   // Point
	RolePolygon                 // Polygon or MultiPolygon
)

var roleNames = map[Role]string{
	RolePassthrough: "passthrough",
	RoleLine:        "line",
	RolePoint:       "point",
	RolePolygon:     "polygon",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole parses a role name as produced by Role.String.
func ParseRole(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for r, n := range roleNames {
		if n == name {
			return r, nil
		}
	}
	return RolePassthrough, fmt.Errorf("geoio: unknown role %q", s)
}

// DefaultRoles maps the network layer names to their roles.
var DefaultRoles = map[string]Role{
	"pipes":         RoleLine,
	"junctions":     RolePoint,
	"subcatchments": RolePolygon,
}

// RoleFor returns the role for a layer name. Entries in extra take
// precedence over DefaultRoles; unknown names are RolePassthrough.
func RoleFor(name string, extra map[string]Role) Role {
	if r, ok := extra[name]; ok {
		return r
	}
	if r, ok := DefaultRoles[name]; ok {
		return r
	}
	return RolePassthrough
}

// Collection is an ordered set of features plus an optional CRS
// identifier. An empty CRS means the features are already in TargetCRS.
type Collection struct {
	Features []*geojson.Feature
	CRS      string
}

// NewCollection returns a collection over the given features.
func NewCollection(crs string, features ...*geojson.Feature) *Collection {
	return &Collection{Features: features, CRS: crs}
}

// Len returns the number of features.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Features)
}

// FeatureCollection returns the features as a geojson.FeatureCollection.
// The features are shared, not copied.
func (c *Collection) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if c != nil {
		fc.Features = append(fc.Features, c.Features...)
	}
	return fc
}

// LayerSet maps layer names to their input collections.
type LayerSet map[string]*Collection
