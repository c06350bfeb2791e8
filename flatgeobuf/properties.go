package flatgeobuf

import (
	"encoding/binary"
	"encoding/json"
	"math"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb/geojson"

	"github.com/tingold/orb-geoio/internal/schema"
)

// encodeProperties writes props in column order as
// [uint16 column index][value] pairs. Null values are omitted. Strings,
// JSON and binary values carry a uint32 length prefix.
func encodeProperties(props geojson.Properties, columns []schema.Column) []byte {
	if len(props) == 0 || len(columns) == 0 {
		return nil
	}

	var buf []byte
	for i, c := range columns {
		v := schema.Coerce(props[c.Key], c.Type)
		if v == nil {
			continue
		}
		buf = binary.LittleEndian.AppendUint16(buf, uint16(i))
		buf = appendValue(buf, v, c.Type)
	}
	return buf
}

func appendValue(buf []byte, v interface{}, t schema.Type) []byte {
	switch t {
	case schema.Bool:
		if v.(bool) {
			return append(buf, 1)
		}
		return append(buf, 0)
	case schema.Int:
		return binary.LittleEndian.AppendUint32(buf, uint32(int32(v.(int64))))
	case schema.Long:
		return binary.LittleEndian.AppendUint64(buf, uint64(v.(int64)))
	case schema.Double:
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.(float64)))
	case schema.String, schema.JSON:
		s := v.(string)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
		return append(buf, s...)
	case schema.Blob:
		b := v.([]byte)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
		return append(buf, b...)
	}
	return buf
}

// decodeProperties reads a property buffer using the header columns.
// Decoding stops at the first malformed value.
func decodeProperties(data []byte, h *flattypes.Header) geojson.Properties {
	props := make(geojson.Properties)
	var col flattypes.Column

	for off := 0; off+2 <= len(data); {
		idx := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if idx >= h.ColumnsLength() || !h.Columns(&col, idx) {
			break
		}

		v, n := readValue(data[off:], col.Type())
		if n == 0 {
			break
		}
		props[string(col.Name())] = v
		off += n
	}
	return props
}

// fixedSizes holds the encoded size of fixed-width column types.
var fixedSizes = map[flattypes.ColumnType]int{
	flattypes.ColumnTypeBool:   1,
	flattypes.ColumnTypeByte:   1,
	flattypes.ColumnTypeUByte:  1,
	flattypes.ColumnTypeShort:  2,
	flattypes.ColumnTypeUShort: 2,
	flattypes.ColumnTypeInt:    4,
	flattypes.ColumnTypeUInt:   4,
	flattypes.ColumnTypeFloat:  4,
	flattypes.ColumnTypeLong:   8,
	flattypes.ColumnTypeULong:  8,
	flattypes.ColumnTypeDouble: 8,
}

// readValue returns the value at the start of data and its encoded size,
// or a zero size when data is too short.
func readValue(data []byte, t flattypes.ColumnType) (interface{}, int) {
	if n, ok := fixedSizes[t]; ok && len(data) < n {
		return nil, 0
	}

	switch t {
	case flattypes.ColumnTypeBool:
		return data[0] != 0, 1
	case flattypes.ColumnTypeByte:
		return int64(int8(data[0])), 1
	case flattypes.ColumnTypeUByte:
		return int64(data[0]), 1
	case flattypes.ColumnTypeShort:
		return int64(int16(binary.LittleEndian.Uint16(data))), 2
	case flattypes.ColumnTypeUShort:
		return int64(binary.LittleEndian.Uint16(data)), 2
	case flattypes.ColumnTypeInt:
		return int64(int32(binary.LittleEndian.Uint32(data))), 4
	case flattypes.ColumnTypeUInt:
		return int64(binary.LittleEndian.Uint32(data)), 4
	case flattypes.ColumnTypeFloat:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(data))), 4
	case flattypes.ColumnTypeLong:
		return int64(binary.LittleEndian.Uint64(data)), 8
	case flattypes.ColumnTypeULong:
		return binary.LittleEndian.Uint64(data), 8
	case flattypes.ColumnTypeDouble:
		return math.Float64frombits(binary.LittleEndian.Uint64(data)), 8
	}

	if len(data) < 4 {
		return nil, 0
	}
	size := int(binary.LittleEndian.Uint32(data))
	if len(data) < 4+size {
		return nil, 0
	}
	raw := data[4 : 4+size]

	switch t {
	case flattypes.ColumnTypeString, flattypes.ColumnTypeDateTime:
		return string(raw), 4 + size
	case flattypes.ColumnTypeJson:
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return string(raw), 4 + size
		}
		return v, 4 + size
	case flattypes.ColumnTypeBinary:
		return append([]byte(nil), raw...), 4 + size
	}
	return nil, 0
}
