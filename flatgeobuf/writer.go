package flatgeobuf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/flatgeobuf/flatgeobuf/src/go/writer"
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tingold/orb-geoio/internal/schema"
)

// WriteLayer writes the features of fc as one FlatGeobuf layer. Features
// without a geometry are skipped. Attribute columns are inferred from the
// feature properties.
func WriteLayer(w io.Writer, fc *geojson.FeatureCollection, opts *Options) error {
	if opts == nil {
		opts = DefaultOptions()
	}
	if fc == nil {
		return ErrEmptyLayer
	}

	features := make([]*geojson.Feature, 0, len(fc.Features))
	geoms := make([]orb.Geometry, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		if encodeGeometry(f.Geometry, flatbuffers.NewBuilder(0)) == nil {
			return fmt.Errorf("%w: feature %d is %T", ErrUnsupportedType, i, f.Geometry)
		}
		features = append(features, f)
		geoms = append(geoms, f.Geometry)
	}
	if len(features) == 0 {
		return ErrEmptyLayer
	}

	b := flatbuffers.NewBuilder(4096)
	header := writer.NewHeader(b)
	header.SetGeometryType(layerType(geoms))
	if opts.Name != "" {
		header.SetName(opts.Name)
	}
	if opts.Description != "" {
		header.SetDescription(opts.Description)
	}

	columns := schema.Infer(features)
	if len(columns) > 0 {
		cols := make([]*writer.Column, 0, len(columns))
		for _, c := range columns {
			col := writer.NewColumn(b)
			col.SetName(c.Name)
			col.SetTitle(c.Name)
			col.SetType(columnTypes[c.Type])
			col.SetNullable(true)
			cols = append(cols, col)
		}
		header.SetColumns(cols)
	}

	if opts.CRS != nil {
		crs := writer.NewCrs(b)
		crs.SetOrg("EPSG")
		if opts.CRS.Code > 0 {
			crs.SetCode(int32(opts.CRS.Code))
		}
		if opts.CRS.Name != "" {
			crs.SetName(opts.CRS.Name)
		}
		if opts.CRS.Description != "" {
			crs.SetDescription(opts.CRS.Description)
		}
		header.SetCrs(crs)
	}

	gen := &featureSource{features: features, columns: columns}
	if _, err := writer.NewWriter(header, opts.IncludeIndex, gen, nil).Write(w); err != nil {
		return fmt.Errorf("flatgeobuf: write %q: %w", opts.Name, err)
	}
	return nil
}

// WriteFile writes fc to path, creating missing parent directories and
// replacing any existing file.
func WriteFile(path string, fc *geojson.FeatureCollection, opts *Options) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("flatgeobuf: create directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("flatgeobuf: create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("flatgeobuf: close %s: %w", path, cerr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := WriteLayer(bw, fc, opts); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flatgeobuf: write %s: %w", path, err)
	}
	return nil
}

// featureSource feeds features to the FlatGeobuf writer, one builder per
// feature.
type featureSource struct {
	features []*geojson.Feature
	columns  []schema.Column
	next     int
}

func (s *featureSource) Generate() *writer.Feature {
	if s.next >= len(s.features) {
		return nil
	}
	f := s.features[s.next]
	s.next++

	b := flatbuffers.NewBuilder(1024)
	out := writer.NewFeature(b)
	out.SetGeometry(encodeGeometry(f.Geometry, b))
	if props := encodeProperties(f.Properties, s.columns); len(props) > 0 {
		out.SetProperties(props)
	}
	return out
}
