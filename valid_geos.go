//go:build geos

package geoio

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// geometryValid defers to GEOS when built with the geos tag. Collections
// are checked part by part, matching the planar rules.
func geometryValid(g orb.Geometry) bool {
	if c, ok := g.(orb.Collection); ok {
		for _, part := range c {
			if !IsValid(part) {
				return false
			}
		}
		return len(c) > 0
	}

	data, err := wkb.Marshal(g)
	if err != nil {
		return false
	}
	gg, err := geos.NewGeomFromWKB(data)
	if err != nil {
		return false
	}
	defer gg.Destroy()
	return gg.IsValid()
}
