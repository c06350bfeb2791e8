package gpkg

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	_ "modernc.org/sqlite"

	"github.com/tingold/orb-geoio/internal/schema"
)

//go:embed schema.sql
var schemaSQL string

// sqlTypes maps attribute column types to GeoPackage column types.
var sqlTypes = map[schema.Type]string{
	schema.Bool:   "BOOLEAN",
	schema.Int:    "INTEGER",
	schema.Long:   "INTEGER",
	schema.Double: "DOUBLE",
	schema.String: "TEXT",
	schema.JSON:   "TEXT",
	schema.Blob:   "BLOB",
}

// Writer creates one GeoPackage and appends feature layers to it. A
// Writer owns its file until Close; it is safe for concurrent use but
// layers are written one at a time.
type Writer struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	layers []string
	names  map[string]bool
	closed bool
}

// Create removes any file at path, including SQLite side files, creates
// missing parent directories and initializes an empty GeoPackage. The
// package always carries the EPSG:4326 definition, even with no layers.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("gpkg: create directory: %w", err)
	}
	if err := Remove(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("gpkg: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		_ = Remove(path)
		return nil, fmt.Errorf("gpkg: initialize %s: %w", path, err)
	}
	if err := insertSRS(db, WGS84()); err != nil {
		_ = db.Close()
		_ = Remove(path)
		return nil, fmt.Errorf("gpkg: initialize %s: %w", path, err)
	}

	return &Writer{
		db:    db,
		path:  path,
		names: make(map[string]bool),
	}, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// insertSRS registers srs unless a row with its ID already exists.
func insertSRS(db execer, srs SpatialRef) error {
	_, err := db.Exec(`INSERT OR IGNORE INTO gpkg_spatial_ref_sys
		(srs_name, srs_id, organization, organization_coordsys_id, definition)
		VALUES (?, ?, ?, ?, ?)`,
		srs.Name, srs.ID, srs.Organization, srs.OrgID, srs.Definition)
	return err
}

// Remove deletes the package at path and its journal files. Missing files
// are not an error.
func Remove(path string) error {
	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("gpkg: remove %s: %w", path+suffix, err)
		}
	}
	return nil
}

// Path returns the file the writer creates.
func (w *Writer) Path() string { return w.path }

// Layers returns the names of the layers written so far, in write order.
func (w *Writer) Layers() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.layers...)
}

// WriteLayer appends l as a new feature table. Features with a nil
// geometry are skipped; a layer without any geometry is rejected with
// ErrEmptyLayer. A zero SRS means WGS84.
func (w *Writer) WriteLayer(l Layer) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if !validName(l.Name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, l.Name)
	}
	key := strings.ToLower(l.Name)
	if w.names[key] {
		return fmt.Errorf("%w: %q", ErrDuplicateLayer, l.Name)
	}

	features := make([]*geojson.Feature, 0, len(l.Features))
	geoms := make([]orb.Geometry, 0, len(l.Features))
	for _, f := range l.Features {
		if f != nil && f.Geometry != nil {
			features = append(features, f)
			geoms = append(geoms, f.Geometry)
		}
	}
	if len(features) == 0 {
		return fmt.Errorf("%w: %q", ErrEmptyLayer, l.Name)
	}

	srs := l.SRS
	if srs == (SpatialRef{}) {
		srs = WGS84()
	}

	if err := w.writeTable(l, srs, features, geoms); err != nil {
		return fmt.Errorf("gpkg: write layer %q: %w", l.Name, err)
	}

	w.names[key] = true
	w.layers = append(w.layers, l.Name)
	return nil
}

func (w *Writer) writeTable(l Layer, srs SpatialRef, features []*geojson.Feature, geoms []orb.Geometry) (err error) {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = insertSRS(tx, srs); err != nil {
		return err
	}

	columns := schema.Infer(features, FIDColumn, GeometryColumn)
	geomType := layerGeometryType(geoms)

	defs := make([]string, 0, len(columns)+2)
	defs = append(defs,
		quote(FIDColumn)+" INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL",
		quote(GeometryColumn)+" "+geomType)
	for _, c := range columns {
		defs = append(defs, quote(c.Name)+" "+sqlTypes[c.Type])
	}
	if _, err = tx.Exec(fmt.Sprintf("CREATE TABLE %s (%s)", quote(l.Name), strings.Join(defs, ", "))); err != nil {
		return err
	}

	b := layerBound(geoms)
	if _, err = tx.Exec(`INSERT INTO gpkg_contents
		(table_name, data_type, identifier, description, min_x, min_y, max_x, max_y, srs_id)
		VALUES (?, 'features', ?, ?, ?, ?, ?, ?, ?)`,
		l.Name, l.Name, l.Description, b.Min[0], b.Min[1], b.Max[0], b.Max[1], srs.ID); err != nil {
		return err
	}
	if _, err = tx.Exec(`INSERT INTO gpkg_geometry_columns
		(table_name, column_name, geometry_type_name, srs_id, z, m)
		VALUES (?, ?, ?, ?, 0, 0)`,
		l.Name, GeometryColumn, geomType, srs.ID); err != nil {
		return err
	}

	names := make([]string, 0, len(columns)+1)
	marks := make([]string, 0, len(columns)+1)
	names = append(names, quote(GeometryColumn))
	marks = append(marks, "?")
	for _, c := range columns {
		names = append(names, quote(c.Name))
		marks = append(marks, "?")
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quote(l.Name), strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]interface{}, len(columns)+1)
	for i, f := range features {
		blob, encErr := EncodeGeometry(f.Geometry, srs.ID)
		if encErr != nil {
			return fmt.Errorf("feature %d: %w", i, encErr)
		}
		args[0] = blob
		for j, c := range columns {
			args[j+1] = sqlValue(schema.Coerce(f.Properties[c.Key], c.Type))
		}
		if _, err = stmt.Exec(args...); err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// sqlValue stores booleans as 0/1 integers.
func sqlValue(v interface{}) interface{} {
	if b, ok := v.(bool); ok {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return v
}

// Close releases the database handle. It is safe to call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("gpkg: close %s: %w", w.path, err)
	}
	return nil
}
