// Package schema infers attribute column types from feature properties.
// Both the GeoPackage and FlatGeobuf writers derive their column layout
// from the same inference so a layer looks the same in either format.
package schema

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Type is a storage-neutral column type.
type Type int

// Column types, ordered so that a numeric promotion picks the larger value.
const (
	Bool Type = iota
	Int
	Long
	Double
	String
	JSON
	Blob
)

var typeNames = [...]string{"Bool", "Int", "Long", "Double", "String", "Json", "Binary"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "Unknown"
	}
	return typeNames[t]
}

// Column describes one attribute column.
type Column struct {
	Name string // column name as stored
	Key  string // property key the column is filled from
	Type Type
}

// Infer walks every feature's properties and returns the column schema.
// Column order follows first occurrence; keys within one feature are
// visited in sorted order so the result is deterministic. Property keys
// that collide (case-insensitively) with a reserved name get a numeric
// suffix.
func Infer(features []*geojson.Feature, reserved ...string) []Column {
	types := make(map[string]Type)
	known := make(map[string]bool)
	order := make([]string, 0)

	for _, f := range features {
		if f == nil || len(f.Properties) == 0 {
			continue
		}
		keys := make([]string, 0, len(f.Properties))
		for k := range f.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v := f.Properties[k]
			if _, seen := types[k]; !seen {
				order = append(order, k)
				types[k] = String
			}
			if v == nil {
				continue
			}
			if !known[k] {
				known[k] = true
				types[k] = TypeOf(v)
				continue
			}
			types[k] = Promote(types[k], TypeOf(v))
		}
	}

	taken := make(map[string]bool, len(reserved)+len(order))
	for _, r := range reserved {
		taken[strings.ToLower(r)] = true
	}

	columns := make([]Column, 0, len(order))
	for _, k := range order {
		columns = append(columns, Column{Name: uniqueName(k, taken), Key: k, Type: types[k]})
	}
	return columns
}

func uniqueName(name string, taken map[string]bool) string {
	candidate := name
	for i := 1; taken[strings.ToLower(candidate)]; i++ {
		candidate = name + "_" + strconv.Itoa(i)
	}
	taken[strings.ToLower(candidate)] = true
	return candidate
}

// TypeOf determines the column type for a Go value.
func TypeOf(value interface{}) Type {
	switch v := value.(type) {
	case nil:
		return String
	case bool:
		return Bool
	case int:
		if v >= math.MinInt32 && v <= math.MaxInt32 {
			return Int
		}
		return Long
	case int8, int16, int32, uint8, uint16:
		return Int
	case int64, uint, uint32, uint64:
		return Long
	case float32, float64:
		return Double
	case string:
		return String
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return Long
		}
		return Double
	case []byte:
		return Blob
	default:
		return JSON
	}
}

// Promote returns the more general of two column types.
func Promote(a, b Type) Type {
	if a == b {
		return a
	}
	if a == JSON || b == JSON || a == Blob || b == Blob {
		return JSON
	}
	if a == String || b == String {
		return String
	}
	// Bool, Int, Long and Double are ordered by generality.
	if a > b {
		return a
	}
	return b
}

// Coerce converts value to the representation used for a column of type t.
// It returns nil for nil values. Values that cannot be represented in t are
// rendered as JSON text for String and JSON columns and dropped otherwise.
func Coerce(value interface{}, t Type) interface{} {
	if value == nil {
		return nil
	}

	switch t {
	case Bool:
		if v, ok := value.(bool); ok {
			return v
		}
		return nil
	case Int, Long:
		if v, ok := toInt64(value); ok {
			return v
		}
		if v, ok := value.(bool); ok {
			if v {
				return int64(1)
			}
			return int64(0)
		}
		return nil
	case Double:
		if v, ok := toFloat64(value); ok {
			return v
		}
		if v, ok := value.(bool); ok {
			if v {
				return 1.0
			}
			return 0.0
		}
		return nil
	case String:
		return toString(value)
	case JSON:
		if s, ok := value.(string); ok {
			b, _ := json.Marshal(s)
			return string(b)
		}
		b, err := json.Marshal(value)
		if err != nil {
			return nil
		}
		return string(b)
	case Blob:
		if b, ok := value.([]byte); ok {
			return b
		}
		return nil
	}
	return nil
}

func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		return int64(val), true
	case float32:
		return int64(val), true
	case float64:
		return int64(val), true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, true
		}
		if f, err := val.Float64(); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f, true
		}
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
