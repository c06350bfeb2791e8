package geoio

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

// =============================================================================
// Test Data Generation
// =============================================================================

// generatePipes returns n features; every fourth one is a two-part
// MultiLineString that merges into one line, every tenth is degenerate.
func generatePipes(r *rand.Rand, n int) []*geojson.Feature {
	features := make([]*geojson.Feature, 0, n)
	for i := 0; i < n; i++ {
		x, y := r.Float64()*1000, r.Float64()*1000
		a := orb.Point{x, y}
		b := orb.Point{x + 1 + r.Float64()*10, y + r.Float64()*10}
		c := orb.Point{b[0] + 1 + r.Float64()*10, b[1] - r.Float64()*10}

		var g orb.Geometry
		switch {
		case i%10 == 9:
			g = orb.LineString{a, a}
		case i%4 == 3:
			g = orb.MultiLineString{{a, b}, {b, c}}
		default:
			g = orb.LineString{a, b, c}
		}

		f := geojson.NewFeature(g)
		f.Properties = geojson.Properties{"id": i, "diameter": 0.3 + r.Float64()}
		features = append(features, f)
	}
	return features
}

func generateSubcatchments(r *rand.Rand, n int) []*geojson.Feature {
	features := make([]*geojson.Feature, 0, n)
	for i := 0; i < n; i++ {
		x, y := r.Float64()*1000, r.Float64()*1000
		w, h := 1+r.Float64()*20, 1+r.Float64()*20
		poly := orb.Polygon{{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}, {x, y}}}

		var g orb.Geometry = poly
		if i%5 == 0 {
			g = orb.MultiPolygon{poly}
		}
		f := geojson.NewFeature(g)
		f.Properties = geojson.Properties{"id": i, "area": w * h}
		features = append(features, f)
	}
	return features
}

// toMercator returns a copy of features projected to EPSG:3857.
func toMercator(features []*geojson.Feature) []*geojson.Feature {
	out := make([]*geojson.Feature, len(features))
	for i, f := range features {
		nf := *f
		nf.Geometry = project.Geometry(orb.Clone(f.Geometry), func(p orb.Point) orb.Point {
			return project.WGS84.ToMercator(orb.Point{p[0] / 10, p[1] / 20})
		})
		out[i] = &nf
	}
	return out
}

// =============================================================================
// Cleaning Benchmarks
// =============================================================================

func BenchmarkClean_Pipes_1000(b *testing.B) {
	benchmarkClean(b, generatePipes(rand.New(rand.NewSource(42)), 1000), RoleLine)
}

func BenchmarkClean_Pipes_10000(b *testing.B) {
	benchmarkClean(b, generatePipes(rand.New(rand.NewSource(42)), 10000), RoleLine)
}

func BenchmarkClean_Subcatchments_1000(b *testing.B) {
	benchmarkClean(b, generateSubcatchments(rand.New(rand.NewSource(42)), 1000), RolePolygon)
}

func benchmarkClean(b *testing.B, features []*geojson.Feature, role Role) {
	c := NewCollection("", features...)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, _, err := Clean(c, role); err != nil {
			b.Fatal(err)
		}
	}
}

// =============================================================================
// Normalization Benchmarks
// =============================================================================

func BenchmarkNormalize_WebMercator_1000(b *testing.B) {
	features := toMercator(generatePipes(rand.New(rand.NewSource(42)), 1000))
	c := NewCollection("EPSG:3857", features...)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := Normalize(c); err != nil {
			b.Fatal(err)
		}
	}
}

// =============================================================================
// End-to-end Benchmarks
// =============================================================================

func BenchmarkWrite_Network_1000(b *testing.B) {
	r := rand.New(rand.NewSource(42))
	layers := LayerSet{
		"pipes":         NewCollection("", generatePipes(r, 1000)...),
		"subcatchments": NewCollection("", generateSubcatchments(r, 1000)...),
	}
	path := filepath.Join(b.TempDir(), "network.gpkg")

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := Write(path, layers, nil); err != nil {
			b.Fatal(err)
		}
	}
}
