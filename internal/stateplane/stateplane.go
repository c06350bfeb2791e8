// Package stateplane converts coordinates of the NAD83 State Plane zones
// to and from geographic longitude/latitude.
//
// NAD83 and WGS84 differ by about a metre across the contiguous US, so
// geographic results are used as WGS84 directly. NAD27 zones need datum
// shift grids and are not included.
package stateplane

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/go-spatial/proj/support"
	"github.com/paulmach/orb"
)

//go:embed zones.tsv
var zonesTSV string

var (
	ErrUnsupported = errors.New("stateplane: unsupported definition")
	ErrOutOfRange  = errors.New("stateplane: coordinate out of range")
)

// projection works in metres relative to the zone origin and in degrees.
type projection interface {
	forward(lon, lat float64) (x, y float64, err error)
	inverse(x, y float64) (lon, lat float64, err error)
}

// Zone is one State Plane coordinate system.
type Zone struct {
	Code int
	Name string

	proj    projection
	toMeter float64
	x0, y0  float64 // false easting and northing, metres
}

// Parse builds a zone from a proj4 definition. Only tmerc and lcc on an
// ellipsoid without grid shifts are accepted.
func Parse(code int, name, def string) (*Zone, error) {
	ps, err := support.NewProjString(def)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	if ps.ContainsKey("nadgrids") {
		return nil, fmt.Errorf("%w: EPSG:%d needs datum shift grids", ErrUnsupported, code)
	}

	ellps, ok := ps.GetAsString("ellps")
	if !ok {
		ellps = "GRS80"
	}
	a, es, err := ellipsoid(ellps)
	if err != nil {
		return nil, err
	}

	z := &Zone{Code: code, Name: name, toMeter: 1}
	if units, ok := ps.GetAsString("units"); ok {
		u, ok := support.UnitsTable[units]
		if !ok {
			return nil, fmt.Errorf("%w: units %q", ErrUnsupported, units)
		}
		z.toMeter = u.ToMeters
	}
	z.x0, _ = ps.GetAsFloat("x_0")
	z.y0, _ = ps.GetAsFloat("y_0")

	lat0, _ := ps.GetAsFloat("lat_0")
	lon0, _ := ps.GetAsFloat("lon_0")
	k0 := 1.0
	if v, ok := ps.GetAsFloat("k_0"); ok {
		k0 = v
	} else if v, ok := ps.GetAsFloat("k"); ok {
		k0 = v
	}

	kind, _ := ps.GetAsString("proj")
	switch kind {
	case "tmerc", "etmerc":
		z.proj, err = newTransverseMercator(ellps, lat0, lon0, k0)
	case "lcc":
		lat1, ok := ps.GetAsFloat("lat_1")
		if !ok {
			lat1 = lat0
		}
		lat2, ok := ps.GetAsFloat("lat_2")
		if !ok {
			lat2 = lat1
		}
		z.proj, err = newLambertConic(a, es, lat0, lon0, lat1, lat2, k0)
	default:
		return nil, fmt.Errorf("%w: projection %q", ErrUnsupported, kind)
	}
	if err != nil {
		return nil, err
	}
	return z, nil
}

// ellipsoid returns the semi-major axis and squared eccentricity of a
// named ellipsoid.
func ellipsoid(name string) (a, es float64, err error) {
	e, ok := support.EllipsoidsTable[name]
	if !ok {
		return 0, 0, fmt.Errorf("%w: ellipsoid %q", ErrUnsupported, name)
	}
	a, err = tableValue(e.Major, "a")
	if err != nil {
		return 0, 0, err
	}

	switch {
	case strings.HasPrefix(e.Ell, "rf="):
		rf, err := tableValue(e.Ell, "rf")
		if err != nil {
			return 0, 0, err
		}
		f := 1 / rf
		return a, f * (2 - f), nil
	case strings.HasPrefix(e.Ell, "b="):
		b, err := tableValue(e.Ell, "b")
		if err != nil {
			return 0, 0, err
		}
		return a, 1 - (b*b)/(a*a), nil
	}
	return 0, 0, fmt.Errorf("%w: ellipsoid %q", ErrUnsupported, name)
}

func tableValue(s, key string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, key+"="), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: ellipsoid parameter %q", ErrUnsupported, s)
	}
	return v, nil
}

// Inverse converts zone coordinates, in the zone's units, to lon/lat.
func (z *Zone) Inverse(p orb.Point) (orb.Point, error) {
	lon, lat, err := z.proj.inverse(p[0]*z.toMeter-z.x0, p[1]*z.toMeter-z.y0)
	if err != nil {
		return orb.Point{}, err
	}
	if !finite(lon, lat) || math.Abs(lat) > 90 {
		return orb.Point{}, fmt.Errorf("%w: %v in EPSG:%d", ErrOutOfRange, p, z.Code)
	}
	return orb.Point{lon, lat}, nil
}

// Forward converts lon/lat to zone coordinates in the zone's units.
func (z *Zone) Forward(p orb.Point) (orb.Point, error) {
	x, y, err := z.proj.forward(p[0], p[1])
	if err != nil {
		return orb.Point{}, err
	}
	if !finite(x, y) {
		return orb.Point{}, fmt.Errorf("%w: %v in EPSG:%d", ErrOutOfRange, p, z.Code)
	}
	return orb.Point{(x + z.x0) / z.toMeter, (y + z.y0) / z.toMeter}, nil
}

func finite(a, b float64) bool {
	return !math.IsNaN(a) && !math.IsNaN(b) && !math.IsInf(a, 0) && !math.IsInf(b, 0)
}

var loadZones = sync.OnceValues(func() (map[int]*Zone, error) {
	zones := make(map[int]*Zone)
	for i, line := range strings.Split(zonesTSV, "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("stateplane: zones.tsv line %d: %d fields", i+1, len(fields))
		}
		code, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("stateplane: zones.tsv line %d: %v", i+1, err)
		}
		z, err := Parse(code, fields[1], fields[2])
		if err != nil {
			return nil, fmt.Errorf("stateplane: zones.tsv line %d: %w", i+1, err)
		}
		zones[code] = z
	}
	return zones, nil
})

// Lookup returns the zone for an EPSG code.
func Lookup(code int) (*Zone, bool) {
	zones, err := loadZones()
	if err != nil {
		return nil, false
	}
	z, ok := zones[code]
	return z, ok
}

// Len returns the number of known zones.
func Len() int {
	zones, _ := loadZones()
	return len(zones)
}
