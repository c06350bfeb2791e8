//go:build !geos

package geoio

import "github.com/paulmach/orb"

func geometryValid(g orb.Geometry) bool {
	return planarValid(g)
}
