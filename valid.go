package geoio

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// IsEmpty reports whether g carries no coordinates. nil is empty.
func IsEmpty(g orb.Geometry) bool {
	switch v := canonical(g).(type) {
	case nil:
		return true
	case orb.Point:
		return false
	case orb.MultiPoint:
		return len(v) == 0
	case orb.LineString:
		return len(v) == 0
	case orb.MultiLineString:
		for _, ls := range v {
			if len(ls) > 0 {
				return false
			}
		}
		return true
	case orb.Polygon:
		return len(v) == 0 || len(v[0]) == 0
	case orb.MultiPolygon:
		for _, p := range v {
			if len(p) > 0 && len(p[0]) > 0 {
				return false
			}
		}
		return true
	case orb.Collection:
		for _, c := range v {
			if !IsEmpty(c) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// IsValid reports whether g is a non-degenerate, self-consistent
// geometry. Empty geometries are never valid.
func IsValid(g orb.Geometry) bool {
	g = canonical(g)
	if IsEmpty(g) || !finite(g) {
		return false
	}
	return geometryValid(g)
}

// planarValid is the pure Go validity check.
func planarValid(g orb.Geometry) bool {
	switch v := g.(type) {
	case orb.Point:
		return true
	case orb.MultiPoint:
		return len(v) > 0
	case orb.LineString:
		return lineValid(v)
	case orb.MultiLineString:
		for _, ls := range v {
			if !lineValid(ls) {
				return false
			}
		}
		return len(v) > 0
	case orb.Polygon:
		return polygonValid(v)
	case orb.MultiPolygon:
		for _, p := range v {
			if !polygonValid(p) {
				return false
			}
		}
		for i := range v {
			for _, other := range v[i+1:] {
				if polygonsOverlap(v[i], other) {
					return false
				}
			}
		}
		return len(v) > 0
	case orb.Collection:
		for _, c := range v {
			if !IsValid(c) {
				return false
			}
		}
		return len(v) > 0
	default:
		return false
	}
}

func finite(g orb.Geometry) bool {
	ok := true
	visitPoints(g, func(p orb.Point) {
		if math.IsNaN(p[0]) || math.IsNaN(p[1]) || math.IsInf(p[0], 0) || math.IsInf(p[1], 0) {
			ok = false
		}
	})
	return ok
}

func visitPoints(g orb.Geometry, fn func(orb.Point)) {
	switch v := canonical(g).(type) {
	case orb.Point:
		fn(v)
	case orb.MultiPoint:
		for _, p := range v {
			fn(p)
		}
	case orb.LineString:
		for _, p := range v {
			fn(p)
		}
	case orb.MultiLineString:
		for _, ls := range v {
			visitPoints(ls, fn)
		}
	case orb.Polygon:
		for _, r := range v {
			for _, p := range r {
				fn(p)
			}
		}
	case orb.MultiPolygon:
		for _, p := range v {
			visitPoints(p, fn)
		}
	case orb.Collection:
		for _, c := range v {
			visitPoints(c, fn)
		}
	}
}

// lineValid requires at least two distinct vertices.
func lineValid(ls orb.LineString) bool {
	if len(ls) < 2 {
		return false
	}
	for _, p := range ls[1:] {
		if p != ls[0] {
			return true
		}
	}
	return false
}

func polygonValid(p orb.Polygon) bool {
	if len(p) == 0 {
		return false
	}

	rings := make([]orb.Ring, len(p))
	for i, r := range p {
		rings[i] = dedupe(r)
		if !ringValid(rings[i]) {
			return false
		}
	}

	shell := rings[0]
	for i, hole := range rings[1:] {
		if !ringInside(hole, shell) {
			return false
		}
		for _, other := range rings[i+2:] {
			if ringsCross(hole, other) || ringInside(hole, other) || ringInside(other, hole) {
				return false
			}
		}
	}
	return true
}

// polygonsOverlap reports whether two valid polygons share interior points
// or touch along their shells. A polygon lying in a hole of the other does
// not overlap it.
func polygonsOverlap(a, b orb.Polygon) bool {
	sa, sb := dedupe(a[0]), dedupe(b[0])
	if ringsCross(sa, sb) {
		return true
	}
	return polygonCovers(a, sb[0]) || polygonCovers(b, sa[0])
}

func polygonCovers(p orb.Polygon, pt orb.Point) bool {
	if !planar.RingContains(p[0], pt) {
		return false
	}
	for _, hole := range p[1:] {
		if planar.RingContains(hole, pt) {
			return false
		}
	}
	return true
}

// dedupe drops consecutive repeated vertices.
func dedupe(r orb.Ring) orb.Ring {
	out := make(orb.Ring, 0, len(r))
	for i, pt := range r {
		if i > 0 && pt == r[i-1] {
			continue
		}
		out = append(out, pt)
	}
	return out
}

// ringValid checks a ring without consecutive duplicates: closed, at least
// three distinct vertices, non-zero area and no self-intersections.
func ringValid(r orb.Ring) bool {
	if len(r) < 4 || !r.Closed() {
		return false
	}
	if planar.Area(r) == 0 {
		return false
	}

	n := len(r) - 1 // edge count
	for i := 0; i < n; i++ {
		a1, a2 := r[i], r[i+1]
		for j := i + 1; j < n; j++ {
			b1, b2 := r[j], r[j+1]
			adjacent := j == i+1 || (i == 0 && j == n-1)
			if adjacent {
				// shared vertex only; no folding back along the previous edge
				if j == i+1 && (onSegment(a1, a2, b2) || onSegment(b1, b2, a1)) {
					return false
				}
				if i == 0 && j == n-1 && n > 2 && (onSegment(b1, b2, a2) || onSegment(a1, a2, b1)) {
					return false
				}
				continue
			}
			if segmentsIntersect(a1, a2, b1, b2) {
				return false
			}
		}
	}
	return true
}

// ringInside reports whether inner lies within outer without touching it.
func ringInside(inner, outer orb.Ring) bool {
	if ringsCross(inner, outer) {
		return false
	}
	return planar.RingContains(outer, inner[0])
}

func ringsCross(a, b orb.Ring) bool {
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

func orientation(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

// onSegment reports whether p lies on the closed segment a-b.
func onSegment(a, b, p orb.Point) bool {
	if orientation(a, b, p) != 0 {
		return false
	}
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orientation(q1, q2, p1)
	d2 := orientation(q1, q2, p2)
	d3 := orientation(p1, p2, q1)
	d4 := orientation(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return onSegment(q1, q2, p1) || onSegment(q1, q2, p2) ||
		onSegment(p1, p2, q1) || onSegment(p1, p2, q2)
}
