package geoio

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// DecodeCollection parses a GeoJSON FeatureCollection. A legacy named
// "crs" member, {"type":"name","properties":{"name":"EPSG:3857"}}, sets
// the collection CRS; without it the CRS is left unspecified.
func DecodeCollection(data []byte) (*Collection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeometry, err)
	}

	c := &Collection{Features: fc.Features}
	if crs, ok := fc.ExtraMembers["crs"]; ok {
		name, err := crsName(crs)
		if err != nil {
			return nil, err
		}
		c.CRS = name
	}
	return c, nil
}

func crsName(member interface{}) (string, error) {
	if member == nil {
		return "", nil
	}
	obj, ok := member.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("%w: crs member is not an object", ErrCRS)
	}
	props, ok := obj["properties"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("%w: crs member has no properties", ErrCRS)
	}
	name, ok := props["name"].(string)
	if !ok {
		return "", fmt.Errorf("%w: crs member has no name", ErrCRS)
	}
	return name, nil
}
