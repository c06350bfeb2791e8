package geoio

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-spatial/proj"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"github.com/tingold/orb-geoio/internal/stateplane"
)

var (
	epsgPattern = regexp.MustCompile(`(?i)^(?:epsg:|urn:ogc:def:crs:epsg:[0-9.]*:)?([0-9]+)$`)
	// CRS84 is lon/lat on WGS84, the same axis order as the target.
	crs84Names = map[string]bool{
		"crs84":                         true,
		"ogc:crs84":                     true,
		"urn:ogc:def:crs:ogc:1.3:crs84": true,
		"urn:ogc:def:crs:ogc::crs84":    true,
		"wgs84":                         true,
	}
)

// inverse converts one projected coordinate to lon/lat.
type inverse func(orb.Point) (orb.Point, error)

// projections lists the source systems Normalize can reproject.
var projections = map[int]inverse{
	3857:   mercatorInverse,
	900913: mercatorInverse,
	3785:   mercatorInverse,
	102100: mercatorInverse,
	102113: mercatorInverse,
	3395:   projInverse(proj.EPSG3395),
	4087:   projInverse(proj.EPSG4087),
}

// inverseFor finds the projection of code among the world projections
// and the NAD83 State Plane zones.
func inverseFor(code int) (inverse, bool) {
	if inv, ok := projections[code]; ok {
		return inv, true
	}
	if z, ok := stateplane.Lookup(code); ok {
		return z.Inverse, true
	}
	return nil, false
}

func mercatorInverse(p orb.Point) (orb.Point, error) {
	return project.Mercator.ToWGS84(p), nil
}

func projInverse(code proj.EPSGCode) inverse {
	return func(p orb.Point) (orb.Point, error) {
		ll, err := proj.Inverse(code, []float64{p[0], p[1]})
		if err != nil {
			return orb.Point{}, err
		}
		if len(ll) < 2 {
			return orb.Point{}, fmt.Errorf("no coordinates returned")
		}
		return orb.Point{ll[0], ll[1]}, nil
	}
}

// ParseCRS returns the EPSG code named by a CRS identifier. Accepted
// forms are "EPSG:3857", "urn:ogc:def:crs:EPSG::3857", a bare code and the
// OGC CRS84 names, which resolve to 4326.
func ParseCRS(id string) (int, error) {
	s := strings.TrimSpace(id)
	if crs84Names[strings.ToLower(s)] {
		return TargetSRSID, nil
	}
	m := epsgPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: malformed identifier %q", ErrCRS, id)
	}
	code, err := strconv.Atoi(m[1])
	if err != nil || code <= 0 {
		return 0, fmt.Errorf("%w: malformed identifier %q", ErrCRS, id)
	}
	return code, nil
}

// resolveCRS looks up the inverse projection for a CRS identifier. A nil
// inverse means the identifier already names TargetCRS.
func resolveCRS(id string) (int, inverse, error) {
	if strings.TrimSpace(id) == "" {
		return TargetSRSID, nil, nil
	}
	code, err := ParseCRS(id)
	if err != nil {
		return 0, nil, err
	}
	if code == TargetSRSID {
		return code, nil, nil
	}
	inv, ok := inverseFor(code)
	if !ok {
		return 0, nil, fmt.Errorf("%w: EPSG:%d", ErrCRS, code)
	}
	return code, inv, nil
}

// Normalize returns c expressed in TargetCRS. An unspecified CRS is taken
// to be the target already. Geometries are reprojected into new values;
// c itself is never modified.
func Normalize(c *Collection) (*Collection, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil collection", ErrGeometry)
	}
	code, inv, err := resolveCRS(c.CRS)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return &Collection{Features: c.Features, CRS: TargetCRS}, nil
	}

	out := &Collection{Features: make([]*geojson.Feature, 0, len(c.Features)), CRS: TargetCRS}
	for i, f := range c.Features {
		if f == nil {
			out.Features = append(out.Features, nil)
			continue
		}
		g, err := reproject(f.Geometry, inv)
		if err != nil {
			return nil, fmt.Errorf("%w: EPSG:%d feature %d: %v", ErrCRS, code, i, err)
		}
		nf := *f
		nf.Geometry = g
		nf.BBox = nil
		out.Features = append(out.Features, &nf)
	}
	return out, nil
}

// reproject applies inv to every coordinate of a copy of g.
func reproject(g orb.Geometry, inv inverse) (orb.Geometry, error) {
	if g == nil {
		return nil, nil
	}

	var failure error
	projected := project.Geometry(orb.Clone(g), func(p orb.Point) orb.Point {
		if failure != nil {
			return p
		}
		q, err := inv(p)
		if err != nil {
			failure = err
			return p
		}
		if math.IsNaN(q[0]) || math.IsNaN(q[1]) || math.IsInf(q[0], 0) || math.IsInf(q[1], 0) {
			failure = fmt.Errorf("non-finite result for %v", p)
			return p
		}
		return q
	})
	if failure != nil {
		return nil, failure
	}
	return projected, nil
}
