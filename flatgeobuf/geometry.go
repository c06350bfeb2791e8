package flatgeobuf

import (
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
)

// geometryType returns the FlatGeobuf type of g.
func geometryType(g orb.Geometry) flattypes.GeometryType {
	switch g.(type) {
	case orb.Point:
		return flattypes.GeometryTypePoint
	case orb.MultiPoint:
		return flattypes.GeometryTypeMultiPoint
	case orb.LineString:
		return flattypes.GeometryTypeLineString
	case orb.MultiLineString:
		return flattypes.GeometryTypeMultiLineString
	case orb.Polygon, orb.Ring, orb.Bound:
		return flattypes.GeometryTypePolygon
	case orb.MultiPolygon:
		return flattypes.GeometryTypeMultiPolygon
	case orb.Collection:
		return flattypes.GeometryTypeGeometryCollection
	default:
		return flattypes.GeometryTypeUnknown
	}
}

// layerType is the common type of geoms, or Unknown when they differ.
func layerType(geoms []orb.Geometry) flattypes.GeometryType {
	t := geometryType(geoms[0])
	for _, g := range geoms[1:] {
		if geometryType(g) != t {
			return flattypes.GeometryTypeUnknown
		}
	}
	return t
}

// encodeGeometry builds g with b. It returns nil for geometries the
// format cannot hold.
func encodeGeometry(g orb.Geometry, b *flatbuffers.Builder) *writer.Geometry {
	out := writer.NewGeometry(b)
	out.SetType(geometryType(g))

	switch v := g.(type) {
	case orb.Point:
		out.SetXY([]float64{v[0], v[1]})
	case orb.MultiPoint:
		out.SetXY(appendXY(nil, v))
	case orb.LineString:
		out.SetXY(appendXY(nil, v))
	case orb.MultiLineString:
		parts := make([][]orb.Point, len(v))
		for i, ls := range v {
			parts[i] = ls
		}
		xy, ends := flatten(parts)
		out.SetXY(xy)
		out.SetEnds(ends)
	case orb.Ring:
		return encodeGeometry(orb.Polygon{v}, b)
	case orb.Bound:
		return encodeGeometry(v.ToPolygon(), b)
	case orb.Polygon:
		xy, ends := polygonXY(v)
		out.SetXY(xy)
		out.SetEnds(ends)
	case orb.MultiPolygon:
		parts := make([]writer.Geometry, 0, len(v))
		for _, p := range v {
			parts = append(parts, *encodeGeometry(p, b))
		}
		out.SetParts(parts)
	case orb.Collection:
		parts := make([]writer.Geometry, 0, len(v))
		for _, child := range v {
			part := encodeGeometry(child, b)
			if part == nil {
				return nil
			}
			parts = append(parts, *part)
		}
		out.SetParts(parts)
	default:
		return nil
	}
	return out
}

func appendXY(xy []float64, pts []orb.Point) []float64 {
	for _, p := range pts {
		xy = append(xy, p[0], p[1])
	}
	return xy
}

// flatten concatenates point runs and records where each one ends.
func flatten(runs [][]orb.Point) ([]float64, []uint32) {
	var xy []float64
	ends := make([]uint32, 0, len(runs))
	n := uint32(0)
	for _, run := range runs {
		xy = appendXY(xy, run)
		n += uint32(len(run))
		ends = append(ends, n)
	}
	return xy, ends
}

func polygonXY(p orb.Polygon) ([]float64, []uint32) {
	runs := make([][]orb.Point, len(p))
	for i, r := range p {
		runs[i] = r
	}
	return flatten(runs)
}

// decodeGeometry converts a stored geometry. Parts of a multi-part value
// carry their own type; stored Unknown falls back to hint.
func decodeGeometry(g *flattypes.Geometry, hint flattypes.GeometryType) orb.Geometry {
	if g == nil {
		return nil
	}
	t := g.Type()
	if t == flattypes.GeometryTypeUnknown {
		t = hint
	}

	switch t {
	case flattypes.GeometryTypePoint:
		pts := readRuns(g)
		if len(pts) == 0 || len(pts[0]) == 0 {
			return nil
		}
		return pts[0][0]
	case flattypes.GeometryTypeMultiPoint:
		return orb.MultiPoint(readAll(g))
	case flattypes.GeometryTypeLineString:
		return orb.LineString(readAll(g))
	case flattypes.GeometryTypeMultiLineString:
		runs := readRuns(g)
		mls := make(orb.MultiLineString, len(runs))
		for i, run := range runs {
			mls[i] = run
		}
		return mls
	case flattypes.GeometryTypePolygon:
		return readPolygon(g)
	case flattypes.GeometryTypeMultiPolygon:
		mp := make(orb.MultiPolygon, 0, g.PartsLength())
		var part flattypes.Geometry
		for i := 0; i < g.PartsLength(); i++ {
			if g.Parts(&part, i) {
				mp = append(mp, readPolygon(&part))
			}
		}
		if len(mp) == 0 && g.XyLength() > 0 {
			mp = append(mp, readPolygon(g))
		}
		return mp
	case flattypes.GeometryTypeGeometryCollection:
		c := make(orb.Collection, 0, g.PartsLength())
		for i := 0; i < g.PartsLength(); i++ {
			var part flattypes.Geometry
			if g.Parts(&part, i) {
				if child := decodeGeometry(&part, flattypes.GeometryTypeUnknown); child != nil {
					c = append(c, child)
				}
			}
		}
		return c
	default:
		return nil
	}
}

func readPolygon(g *flattypes.Geometry) orb.Polygon {
	runs := readRuns(g)
	p := make(orb.Polygon, len(runs))
	for i, run := range runs {
		p[i] = run
	}
	return p
}

func readAll(g *flattypes.Geometry) []orb.Point {
	pts := make([]orb.Point, 0, g.XyLength()/2)
	for i := 0; i+1 < g.XyLength(); i += 2 {
		pts = append(pts, orb.Point{g.Xy(i), g.Xy(i + 1)})
	}
	return pts
}

// readRuns splits the coordinates at the stored ends. Without ends the
// whole coordinate array is one run.
func readRuns(g *flattypes.Geometry) [][]orb.Point {
	pts := readAll(g)
	if g.EndsLength() == 0 {
		if len(pts) == 0 {
			return nil
		}
		return [][]orb.Point{pts}
	}

	runs := make([][]orb.Point, 0, g.EndsLength())
	start := 0
	for i := 0; i < g.EndsLength(); i++ {
		end := int(g.Ends(i))
		if end > len(pts) {
			end = len(pts)
		}
		if start > end {
			break
		}
		runs = append(runs, pts[start:end])
		start = end
	}
	return runs
}
