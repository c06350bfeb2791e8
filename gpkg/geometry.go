package gpkg

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// Header flag bits of a GeoPackage geometry blob.
const (
	flagLittleEndian = 0x01
	flagEnvelopeXY   = 0x02 // envelope indicator 1: minx, maxx, miny, maxy
)

// EncodeGeometry returns the GeoPackage binary form of g: the "GP" header
// with srsID and, for anything but a point, an XY envelope, followed by
// little-endian WKB.
func EncodeGeometry(g orb.Geometry, srsID int) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil geometry", ErrInvalidBlob)
	}

	body, err := wkb.Marshal(g, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("gpkg: encode wkb: %w", err)
	}

	flags := byte(flagLittleEndian)
	var envelope []float64
	if _, isPoint := g.(orb.Point); !isPoint {
		flags |= flagEnvelopeXY
		b := g.Bound()
		envelope = []float64{b.Min[0], b.Max[0], b.Min[1], b.Max[1]}
	}

	buf := make([]byte, 0, 8+8*len(envelope)+len(body))
	buf = append(buf, 'G', 'P', 0, flags)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(srsID)))
	for _, v := range envelope {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return append(buf, body...), nil
}

// DecodeGeometry parses a GeoPackage geometry blob and returns the
// geometry and its srs_id.
func DecodeGeometry(blob []byte) (orb.Geometry, int, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, 0, ErrInvalidBlob
	}
	if blob[2] != 0 {
		return nil, 0, fmt.Errorf("%w: version %d", ErrInvalidBlob, blob[2])
	}

	flags := blob[3]
	var order binary.ByteOrder = binary.BigEndian
	if flags&flagLittleEndian != 0 {
		order = binary.LittleEndian
	}
	srsID := int(int32(order.Uint32(blob[4:8])))

	var envSize int
	switch (flags >> 1) & 0x07 {
	case 0:
		envSize = 0
	case 1:
		envSize = 32
	case 2, 3:
		envSize = 48
	case 4:
		envSize = 64
	default:
		return nil, 0, fmt.Errorf("%w: envelope indicator", ErrInvalidBlob)
	}
	if len(blob) < 8+envSize {
		return nil, 0, fmt.Errorf("%w: truncated envelope", ErrInvalidBlob)
	}

	g, err := wkb.Unmarshal(blob[8+envSize:])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}
	return g, srsID, nil
}

// geometryTypeName returns the gpkg_geometry_columns type name for g.
func geometryTypeName(g orb.Geometry) string {
	switch g.(type) {
	case orb.Point:
		return "POINT"
	case orb.MultiPoint:
		return "MULTIPOINT"
	case orb.LineString:
		return "LINESTRING"
	case orb.MultiLineString:
		return "MULTILINESTRING"
	case orb.Polygon, orb.Ring, orb.Bound:
		return "POLYGON"
	case orb.MultiPolygon:
		return "MULTIPOLYGON"
	case orb.Collection:
		return "GEOMETRYCOLLECTION"
	default:
		return "GEOMETRY"
	}
}

// layerGeometryType is the common type of all features, or GEOMETRY when
// they differ.
func layerGeometryType(geoms []orb.Geometry) string {
	name := ""
	for _, g := range geoms {
		t := geometryTypeName(g)
		if name == "" {
			name = t
		} else if name != t {
			return "GEOMETRY"
		}
	}
	if name == "" {
		return "GEOMETRY"
	}
	return name
}

// layerBound is the union of all feature bounds.
func layerBound(geoms []orb.Geometry) orb.Bound {
	b := geoms[0].Bound()
	for _, g := range geoms[1:] {
		b = b.Union(g.Bound())
	}
	return b
}
