package geoio

import (
	"errors"
	"math"
	"testing"

	"github.com/go-spatial/proj"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

func TestParseCRS(t *testing.T) {
	tests := []struct {
		id       string
		expected int
		wantErr  bool
	}{
		{"EPSG:4326", 4326, false},
		{"epsg:3857", 3857, false},
		{" 3857 ", 3857, false},
		{"urn:ogc:def:crs:EPSG::3857", 3857, false},
		{"urn:ogc:def:crs:EPSG:6.18.3:3857", 3857, false},
		{"OGC:CRS84", 4326, false},
		{"urn:ogc:def:crs:OGC:1.3:CRS84", 4326, false},
		{"EPSG:", 0, true},
		{"EPSG:0", 0, true},
		{"mercator", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := ParseCRS(tt.id)
			if tt.wantErr {
				if !errors.Is(err, ErrCRS) {
					t.Errorf("expected ErrCRS, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestNormalize_TargetUnchanged(t *testing.T) {
	line := orb.LineString{{-86.8, 33.5}, {-86.7, 33.6}}

	for _, crs := range []string{"", "EPSG:4326", "urn:ogc:def:crs:OGC:1.3:CRS84"} {
		c := NewCollection(crs, feature(line, nil))
		out, err := Normalize(c)
		if err != nil {
			t.Fatalf("%q: Normalize failed: %v", crs, err)
		}
		if out.CRS != TargetCRS {
			t.Errorf("%q: expected CRS %s, got %q", crs, TargetCRS, out.CRS)
		}
		if !orb.Equal(out.Features[0].Geometry, line) {
			t.Errorf("%q: coordinates changed: %v", crs, out.Features[0].Geometry)
		}
		if c.CRS != crs {
			t.Errorf("%q: input CRS modified to %q", crs, c.CRS)
		}
	}
}

func TestNormalize_WebMercator(t *testing.T) {
	lonlat := orb.LineString{{-86.8, 33.5}, {-86.7, 33.6}, {151.2, -33.9}}
	merc := project.LineString(lonlat.Clone(), project.WGS84.ToMercator)

	for _, crs := range []string{"EPSG:3857", "EPSG:900913", "urn:ogc:def:crs:EPSG::3857"} {
		c := NewCollection(crs, feature(merc, geojson.Properties{"id": "P1"}))
		out, err := Normalize(c)
		if err != nil {
			t.Fatalf("%s: Normalize failed: %v", crs, err)
		}
		if out.CRS != TargetCRS {
			t.Errorf("%s: expected CRS %s, got %q", crs, TargetCRS, out.CRS)
		}

		got, ok := out.Features[0].Geometry.(orb.LineString)
		if !ok {
			t.Fatalf("%s: expected LineString, got %T", crs, out.Features[0].Geometry)
		}
		assertClose(t, got, lonlat, 1e-9)
		if out.Features[0].Properties["id"] != "P1" {
			t.Errorf("%s: properties lost", crs)
		}
		if !orb.Equal(c.Features[0].Geometry, merc) {
			t.Errorf("%s: input geometry modified", crs)
		}
	}
}

func TestNormalize_WorldMercator(t *testing.T) {
	lonlat := orb.Point{-86.8, 33.5}
	xy, err := proj.Convert(proj.EPSG3395, []float64{lonlat[0], lonlat[1]})
	if err != nil {
		t.Fatalf("proj.Convert failed: %v", err)
	}

	out, err := Normalize(NewCollection("EPSG:3395", feature(orb.Point{xy[0], xy[1]}, nil)))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	got := out.Features[0].Geometry.(orb.Point)
	if math.Abs(got[0]-lonlat[0]) > 1e-6 || math.Abs(got[1]-lonlat[1]) > 1e-6 {
		t.Errorf("expected %v, got %v", lonlat, got)
	}
}

func TestNormalize_StatePlane(t *testing.T) {
	const usFoot = 0.304800609601219

	tests := []struct {
		crs      string
		in       orb.LineString
		expected orb.LineString
	}{
		{
			// Alabama East, metres: the false origin maps to the zone origin.
			"EPSG:26929",
			orb.LineString{{200000, 0}, {200000, 0}},
			orb.LineString{{-85.8333333333333, 30.5}, {-85.8333333333333, 30.5}},
		},
		{
			"urn:ogc:def:crs:EPSG::2227",
			orb.LineString{{2000000.0001016 / usFoot, 500000.0001016 / usFoot}},
			orb.LineString{{-120.5, 36.5}},
		},
	}

	for _, tt := range tests {
		out, err := Normalize(NewCollection(tt.crs, feature(tt.in, nil)))
		if err != nil {
			t.Fatalf("%s: Normalize failed: %v", tt.crs, err)
		}
		if out.CRS != TargetCRS {
			t.Errorf("%s: expected %s, got %s", tt.crs, TargetCRS, out.CRS)
		}
		assertClose(t, out.Features[0].Geometry.(orb.LineString), tt.expected, 1e-8)
	}
}

func TestNormalize_StatePlaneLambert(t *testing.T) {
	// Washington North, 10 km east and north of the false origin.
	out, err := Normalize(NewCollection("EPSG:32148", feature(orb.Point{510000, 10000}, nil)))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	got := out.Features[0].Geometry.(orb.Point)
	if got[0] <= -120.833333333333 || got[0] > -120.6 || got[1] <= 47 || got[1] > 47.2 {
		t.Errorf("unexpected position %v", got)
	}
}

func TestNormalize_PreservesType(t *testing.T) {
	geoms := []orb.Geometry{
		orb.Point{1000, 1000},
		orb.MultiPoint{{0, 0}, {10, 10}},
		orb.MultiLineString{{{0, 0}, {10, 10}}},
		square(0, 0, 1000),
		orb.MultiPolygon{square(0, 0, 1000)},
		orb.Collection{orb.Point{5, 5}},
	}
	c := NewCollection("EPSG:3857")
	for _, g := range geoms {
		c.Features = append(c.Features, feature(g, nil))
	}

	out, err := Normalize(c)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	for i, f := range out.Features {
		if KindOf(f.Geometry) != KindOf(geoms[i]) {
			t.Errorf("feature %d: expected %T, got %T", i, geoms[i], f.Geometry)
		}
	}
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name string
		c    *Collection
		err  error
	}{
		{"nil collection", nil, ErrGeometry},
		{"malformed", NewCollection("not a crs", feature(orb.Point{0, 0}, nil)), ErrCRS},
		{"unsupported", NewCollection("EPSG:27700", feature(orb.Point{0, 0}, nil)), ErrCRS},
		{"nad27 state plane", NewCollection("EPSG:26729", feature(orb.Point{500000, 500000}, nil)), ErrCRS},
		{"non-finite", NewCollection("EPSG:3857", feature(orb.Point{math.Inf(1), 0}, nil)), ErrCRS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Normalize(tt.c); !errors.Is(err, tt.err) {
				t.Errorf("expected %v, got %v", tt.err, err)
			}
		})
	}
}

func assertClose(t *testing.T, got, expected orb.LineString, tolerance float64) {
	t.Helper()
	if len(got) != len(expected) {
		t.Fatalf("expected %d points, got %d", len(expected), len(got))
	}
	for i := range got {
		if math.Abs(got[i][0]-expected[i][0]) > tolerance || math.Abs(got[i][1]-expected[i][1]) > tolerance {
			t.Errorf("point %d: expected %v, got %v", i, expected[i], got[i])
		}
	}
}
