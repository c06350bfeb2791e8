package geoio

import "github.com/paulmach/orb"

// Kind is the closed set of geometry shapes the cleaner distinguishes.
type Kind int

const (
	KindUnknown Kind = iota
	KindPoint
	KindMultiPoint
	KindLineString
	KindMultiLineString
	KindPolygon
	KindMultiPolygon
	KindCollection
)

var kindNames = [...]string{
	KindUnknown:         "Unknown",
	KindPoint:           "Point",
	KindMultiPoint:      "MultiPoint",
	KindLineString:      "LineString",
	KindMultiLineString: "MultiLineString",
	KindPolygon:         "Polygon",
	KindMultiPolygon:    "MultiPolygon",
	KindCollection:      "GeometryCollection",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// KindOf classifies a geometry. orb.Ring and orb.Bound classify as
// polygons; nil is KindUnknown.
func KindOf(g orb.Geometry) Kind {
	switch g.(type) {
	case orb.Point:
		return KindPoint
	case orb.MultiPoint:
		return KindMultiPoint
	case orb.LineString:
		return KindLineString
	case orb.MultiLineString:
		return KindMultiLineString
	case orb.Ring, orb.Polygon, orb.Bound:
		return KindPolygon
	case orb.MultiPolygon:
		return KindMultiPolygon
	case orb.Collection:
		return KindCollection
	default:
		return KindUnknown
	}
}

// canonical rewrites ring and bound geometries as the polygon they
// describe so later stages only see the types KindOf names.
func canonical(g orb.Geometry) orb.Geometry {
	switch v := g.(type) {
	case orb.Ring:
		return orb.Polygon{v}
	case orb.Bound:
		return v.ToPolygon()
	default:
		return g
	}
}
