package flatgeobuf

import (
	"fmt"

	flatgeobuf "github.com/flatgeobuf/flatgeobuf/src/go"
	"github.com/flatgeobuf/flatgeobuf/src/go/flattypes"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Reader reads a FlatGeobuf file.
type Reader struct {
	fgb *flatgeobuf.FlatGeoBuf
}

// NewReader opens the file at path. The file is memory-mapped.
func NewReader(path string) (*Reader, error) {
	fgb, err := flatgeobuf.New(path)
	if err != nil {
		return nil, fmt.Errorf("flatgeobuf: open %s: %w", path, err)
	}
	return &Reader{fgb: fgb}, nil
}

// NewReaderFromData reads a file held in memory.
func NewReaderFromData(data []byte) (*Reader, error) {
	fgb, err := flatgeobuf.NewWithData(data)
	if err != nil {
		return nil, fmt.Errorf("flatgeobuf: %w", err)
	}
	return &Reader{fgb: fgb}, nil
}

// Header returns the file metadata.
func (r *Reader) Header() *Header {
	h := r.fgb.Header()
	if h == nil {
		return nil
	}

	header := &Header{
		Name:          string(h.Name()),
		Description:   string(h.Description()),
		GeometryType:  flattypes.EnumNamesGeometryType[h.GeometryType()],
		FeaturesCount: h.FeaturesCount(),
		HasIndex:      h.IndexNodeSize() > 0,
	}
	if h.EnvelopeLength() >= 4 {
		header.Envelope = [4]float64{h.Envelope(0), h.Envelope(1), h.Envelope(2), h.Envelope(3)}
	}

	var crs flattypes.Crs
	if h.Crs(&crs) != nil {
		header.CRS = &CRS{
			Code:        int(crs.Code()),
			Name:        string(crs.Name()),
			Description: string(crs.Description()),
		}
	}

	var col flattypes.Column
	for i := 0; i < h.ColumnsLength(); i++ {
		if h.Columns(&col, i) {
			header.Columns = append(header.Columns, ColumnInfo{
				Name:     string(col.Name()),
				Type:     flattypes.EnumNamesColumnType[col.Type()],
				Nullable: col.Nullable(),
			})
		}
	}
	return header
}

// ReadAll returns every feature. Iteration goes through the spatial
// index over the header envelope, so files without an index return
// ErrNoIndex.
func (r *Reader) ReadAll() (*geojson.FeatureCollection, error) {
	h := r.fgb.Header()
	if h.FeaturesCount() == 0 {
		return geojson.NewFeatureCollection(), nil
	}
	if h.IndexNodeSize() == 0 || h.EnvelopeLength() < 4 {
		return nil, ErrNoIndex
	}
	return r.Search(orb.Bound{
		Min: orb.Point{h.Envelope(0), h.Envelope(1)},
		Max: orb.Point{h.Envelope(2), h.Envelope(3)},
	})
}

// Search returns the features whose bounding boxes intersect b.
func (r *Reader) Search(b orb.Bound) (*geojson.FeatureCollection, error) {
	h := r.fgb.Header()
	if h.IndexNodeSize() == 0 {
		return nil, ErrNoIndex
	}

	found, err := r.fgb.Search(b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	if err != nil {
		return nil, fmt.Errorf("flatgeobuf: search: %w", err)
	}

	fc := geojson.NewFeatureCollection()
	for _, f := range found {
		if feature := decodeFeature(f, h); feature != nil {
			fc.Append(feature)
		}
	}
	return fc, nil
}

// Close drops the reference to the mapped file.
func (r *Reader) Close() error {
	r.fgb = nil
	return nil
}

func decodeFeature(f *flattypes.Feature, h *flattypes.Header) *geojson.Feature {
	if f == nil {
		return nil
	}
	var geom flattypes.Geometry
	g := decodeGeometry(f.Geometry(&geom), h.GeometryType())
	if g == nil {
		return nil
	}

	feature := geojson.NewFeature(g)
	if n := f.PropertiesLength(); n > 0 && h.ColumnsLength() > 0 {
		props := make([]byte, n)
		for i := range props {
			props[i] = byte(f.Properties(i))
		}
		feature.Properties = decodeProperties(props, h)
	}
	return feature
}
