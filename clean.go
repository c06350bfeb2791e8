package geoio

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Stats counts what Clean did to a collection. Every input feature and
// every extra part split off it ends up either in Output or in one of the
// Dropped counters, so Input+Exploded == Output+Dropped().
type Stats struct {
	Input          int // features in the input collection
	Exploded       int // extra parts split off multi-part geometries, kept or removed
	Output         int // features in the cleaned collection
	DroppedEmpty   int // nil or empty geometries
	DroppedInvalid int // geometries failing IsValid
	DroppedType    int // geometries the role cannot represent
}

// Dropped returns the total number of discarded features.
func (s Stats) Dropped() int {
	return s.DroppedEmpty + s.DroppedInvalid + s.DroppedType
}

// resolver maps a filtered geometry to the canonical shape of a role, or
// reports false when the role has no representation for it.
type resolver func(orb.Geometry) (orb.Geometry, bool)

var resolvers = map[Role]resolver{
	RolePassthrough: resolvePassthrough,
	RoleLine:        resolveLine,
	RolePoint:       resolvePoint,
	RolePolygon:     resolvePolygon,
}

// ownMulti is the multi-part kind a role resolves itself instead of
// having it exploded.
var ownMulti = map[Role]Kind{
	RoleLine:    KindMultiLineString,
	RolePolygon: KindMultiPolygon,
}

type dropReason int

const (
	keep dropReason = iota
	dropEmpty
	dropInvalid
)

// Clean explodes multi-part geometries, discards empty and invalid ones
// and resolves the rest to the geometry type role requires. The input is
// not modified; properties are cloned into every output feature. Clean is
// idempotent.
func Clean(c *Collection, role Role) (*Collection, Stats, error) {
	var stats Stats
	if c == nil {
		return nil, stats, fmt.Errorf("%w: nil collection", ErrGeometry)
	}
	resolve, ok := resolvers[role]
	if !ok {
		return nil, stats, fmt.Errorf("geoio: unknown role %v", role)
	}

	out := &Collection{CRS: c.CRS, Features: make([]*geojson.Feature, 0, len(c.Features))}
	stats.Input = len(c.Features)

	for _, f := range c.Features {
		if f == nil || f.Geometry == nil {
			stats.DroppedEmpty++
			continue
		}

		parts := explode(f.Geometry, ownMulti[role])
		if len(parts) == 0 {
			stats.DroppedEmpty++
			continue
		}
		stats.Exploded += len(parts) - 1

		for _, g := range parts {
			g, reason, removed := filter(g)
			stats.Exploded += removed
			stats.DroppedInvalid += removed
			switch reason {
			case dropEmpty:
				stats.DroppedEmpty++
				continue
			case dropInvalid:
				stats.DroppedInvalid++
				continue
			}

			g, ok := resolve(g)
			if !ok {
				stats.DroppedType++
				continue
			}
			out.Features = append(out.Features, derive(f, g))
		}
	}

	stats.Output = len(out.Features)
	return out, stats, nil
}

// explode splits g into single-part geometries. Collections are flattened
// recursively; multi-part geometries of kind own are kept whole.
func explode(g orb.Geometry, own Kind) []orb.Geometry {
	switch v := canonical(g).(type) {
	case orb.Collection:
		parts := make([]orb.Geometry, 0, len(v))
		for _, child := range v {
			parts = append(parts, explode(child, own)...)
		}
		return parts
	case orb.MultiPoint:
		parts := make([]orb.Geometry, 0, len(v))
		for _, p := range v {
			parts = append(parts, p)
		}
		return parts
	case orb.MultiLineString:
		if own == KindMultiLineString {
			return []orb.Geometry{v}
		}
		parts := make([]orb.Geometry, 0, len(v))
		for _, ls := range v {
			parts = append(parts, ls)
		}
		return parts
	case orb.MultiPolygon:
		if own == KindMultiPolygon {
			return []orb.Geometry{v}
		}
		parts := make([]orb.Geometry, 0, len(v))
		for _, p := range v {
			parts = append(parts, p)
		}
		return parts
	default:
		return []orb.Geometry{v}
	}
}

// filter classifies g as empty, invalid or kept. Multi-part geometries
// that survive explode lose their empty and invalid parts first; removed
// is the number of parts taken out that way. A multipolygon whose
// remaining parts overlap is invalid as a whole.
func filter(g orb.Geometry) (out orb.Geometry, reason dropReason, removed int) {
	if IsEmpty(g) {
		return nil, dropEmpty, 0
	}

	switch v := g.(type) {
	case orb.MultiLineString:
		kept := make(orb.MultiLineString, 0, len(v))
		for _, ls := range v {
			if IsValid(ls) {
				kept = append(kept, ls)
			}
		}
		if len(kept) == 0 {
			return nil, dropInvalid, 0
		}
		return kept, keep, len(v) - len(kept)
	case orb.MultiPolygon:
		kept := make(orb.MultiPolygon, 0, len(v))
		for _, p := range v {
			if IsValid(p) {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			return nil, dropInvalid, 0
		}
		removed = len(v) - len(kept)
		if len(kept) > 1 && !IsValid(kept) {
			return nil, dropInvalid, removed
		}
		return kept, keep, removed
	}

	if !IsValid(g) {
		return nil, dropInvalid, 0
	}
	return g, keep, 0
}

func resolvePassthrough(g orb.Geometry) (orb.Geometry, bool) {
	return g, true
}

// resolveLine merges multi-part lines. When the parts do not form one
// chain, the longest chain is kept and the rest discarded.
func resolveLine(g orb.Geometry) (orb.Geometry, bool) {
	switch v := g.(type) {
	case orb.LineString:
		return v, true
	case orb.MultiLineString:
		merged := MergeLines(v)
		if len(merged) == 0 {
			return nil, false
		}
		line := merged[0]
		if len(merged) > 1 {
			line = longestLine(merged)
		}
		return line, lineValid(line)
	default:
		return nil, false
	}
}

func resolvePoint(g orb.Geometry) (orb.Geometry, bool) {
	p, ok := g.(orb.Point)
	return p, ok
}

// resolvePolygon collapses single-part multipolygons. Multipolygons with
// several parts are kept as they are.
func resolvePolygon(g orb.Geometry) (orb.Geometry, bool) {
	switch v := g.(type) {
	case orb.Polygon:
		return v, true
	case orb.MultiPolygon:
		if len(v) == 1 {
			return v[0], true
		}
		return v, true
	default:
		return nil, false
	}
}

// derive builds a new feature carrying src's identity and attributes.
func derive(src *geojson.Feature, g orb.Geometry) *geojson.Feature {
	f := geojson.NewFeature(g)
	f.ID = src.ID
	if src.Properties != nil {
		f.Properties = src.Properties.Clone()
	} else {
		f.Properties = nil
	}
	return f
}
