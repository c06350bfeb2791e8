// Package flatgeobuf exports a cleaned layer as a FlatGeobuf file and reads
// such files back. It is the sidecar format written next to a GeoPackage
// when a per-layer streaming copy is wanted.
package flatgeobuf

import (
	"errors"

	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"

	"github.com/tingold/orb-geoio/internal/schema"
)

// Common errors returned by this package.
var (
	ErrEmptyLayer      = errors.New("flatgeobuf: layer has no features")
	ErrUnsupportedType = errors.New("flatgeobuf: unsupported geometry type")
	ErrNoIndex         = errors.New("flatgeobuf: file has no spatial index")
)

// CRS identifies the coordinate reference system stored in the header.
type CRS struct {
	Code        int    // EPSG code
	Name        string
	Description string
}

// WGS84 returns EPSG:4326.
func WGS84() *CRS {
	return &CRS{Code: 4326, Name: "WGS 84"}
}

// Options configures WriteLayer.
type Options struct {
	Name         string // layer name stored in the header
	Description  string
	IncludeIndex bool // write a packed Hilbert R-tree
	CRS          *CRS
}

// DefaultOptions returns options with the spatial index enabled.
func DefaultOptions() *Options {
	return &Options{IncludeIndex: true}
}

// ColumnInfo describes an attribute column.
type ColumnInfo struct {
	Name     string
	Type     string // flattypes name, e.g. "Double", "String", "Json"
	Nullable bool
}

// Header is the metadata of a FlatGeobuf file.
type Header struct {
	Name          string
	Description   string
	GeometryType  string // "Point", "LineString", "Unknown" for mixed layers...
	FeaturesCount uint64
	Envelope      [4]float64 // minX, minY, maxX, maxY
	CRS           *CRS
	HasIndex      bool
	Columns       []ColumnInfo
}

// columnTypes maps attribute column types to FlatGeobuf column types.
var columnTypes = map[schema.Type]flattypes.ColumnType{
	schema.Bool:   flattypes.ColumnTypeBool,
	schema.Int:    flattypes.ColumnTypeInt,
	schema.Long:   flattypes.ColumnTypeLong,
	schema.Double: flattypes.ColumnTypeDouble,
	schema.String: flattypes.ColumnTypeString,
	schema.JSON:   flattypes.ColumnTypeJson,
	schema.Blob:   flattypes.ColumnTypeBinary,
}
