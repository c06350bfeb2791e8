package gpkg

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Reader provides read access to the feature layers of a GeoPackage.
type Reader struct {
	db *sql.DB
}

// Open opens an existing GeoPackage. Files without the GeoPackage
// application_id are rejected with ErrNotGeoPackage.
func Open(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("gpkg: open: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("gpkg: open %s: %w", path, err)
	}

	var appID int64
	if err := db.QueryRow("PRAGMA application_id").Scan(&appID); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotGeoPackage, err)
	}
	if appID != ApplicationID {
		_ = db.Close()
		return nil, fmt.Errorf("%w: application_id %#x", ErrNotGeoPackage, appID)
	}

	return &Reader{db: db}, nil
}

// Layers lists the feature layers, ordered by name.
func (r *Reader) Layers() ([]LayerInfo, error) {
	rows, err := r.db.Query(`SELECT c.table_name, COALESCE(c.description, ''),
		g.geometry_type_name, g.srs_id, c.min_x, c.min_y, c.max_x, c.max_y
		FROM gpkg_contents c
		JOIN gpkg_geometry_columns g ON g.table_name = c.table_name
		WHERE c.data_type = 'features'
		ORDER BY c.table_name`)
	if err != nil {
		return nil, fmt.Errorf("gpkg: list layers: %w", err)
	}

	var layers []LayerInfo
	for rows.Next() {
		var info LayerInfo
		var minX, minY, maxX, maxY sql.NullFloat64
		if err := rows.Scan(&info.Name, &info.Description, &info.GeometryType, &info.SRSID,
			&minX, &minY, &maxX, &maxY); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("gpkg: list layers: %w", err)
		}
		info.Bounds = orb.Bound{
			Min: orb.Point{minX.Float64, minY.Float64},
			Max: orb.Point{maxX.Float64, maxY.Float64},
		}
		layers = append(layers, info)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("gpkg: list layers: %w", err)
	}
	_ = rows.Close()

	for i := range layers {
		if err := r.db.QueryRow("SELECT COUNT(*) FROM " + quote(layers[i].Name)).Scan(&layers[i].Count); err != nil {
			return nil, fmt.Errorf("gpkg: count %q: %w", layers[i].Name, err)
		}
	}
	return layers, nil
}

// ReadLayer reads every feature of a layer in fid order. The fid becomes
// the feature ID; BOOLEAN columns are returned as bool.
func (r *Reader) ReadLayer(name string) (*geojson.FeatureCollection, error) {
	var geomColumn string
	err := r.db.QueryRow(`SELECT column_name FROM gpkg_geometry_columns WHERE table_name = ?`, name).Scan(&geomColumn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrLayerNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("gpkg: read %q: %w", name, err)
	}

	declared, err := r.columnTypes(name)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query("SELECT * FROM " + quote(name) + " ORDER BY " + quote(FIDColumn))
	if err != nil {
		return nil, fmt.Errorf("gpkg: read %q: %w", name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("gpkg: read %q: %w", name, err)
	}

	fc := geojson.NewFeatureCollection()
	values := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("gpkg: read %q: %w", name, err)
		}

		f := geojson.NewFeature(nil)
		for i, col := range columns {
			v := values[i]
			switch {
			case strings.EqualFold(col, geomColumn):
				blob, ok := v.([]byte)
				if !ok {
					continue
				}
				g, _, err := DecodeGeometry(blob)
				if err != nil {
					return nil, fmt.Errorf("gpkg: read %q: %w", name, err)
				}
				f.Geometry = g
			case strings.EqualFold(col, FIDColumn):
				f.ID = v
			default:
				f.Properties[col] = columnValue(v, declared[strings.ToLower(col)])
			}
		}
		fc.Append(f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("gpkg: read %q: %w", name, err)
	}
	return fc, nil
}

// columnTypes returns the declared type of every column, keyed by
// lower-case column name.
func (r *Reader) columnTypes(table string) (map[string]string, error) {
	rows, err := r.db.Query("PRAGMA table_info(" + quote(table) + ")")
	if err != nil {
		return nil, fmt.Errorf("gpkg: table info %q: %w", table, err)
	}
	defer rows.Close()

	types := make(map[string]string)
	for rows.Next() {
		var (
			cid, notNull, pk int
			name, typ        string
			dflt             interface{}
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("gpkg: table info %q: %w", table, err)
		}
		types[strings.ToLower(name)] = strings.ToUpper(typ)
	}
	return types, rows.Err()
}

func columnValue(v interface{}, declared string) interface{} {
	if declared == "BOOLEAN" {
		if i, ok := v.(int64); ok {
			return i != 0
		}
	}
	if b, ok := v.([]byte); ok && declared == "TEXT" {
		return string(b)
	}
	return v
}

// Close releases the database handle.
func (r *Reader) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}
