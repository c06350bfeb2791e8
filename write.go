package geoio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tingold/orb-geoio/flatgeobuf"
	"github.com/tingold/orb-geoio/gpkg"
)

// Options configures Write.
type Options struct {
	// Roles adds layer names to DefaultRoles or overrides them.
	Roles map[string]Role

	// Workers bounds how many layers are cleaned at once. Zero means
	// runtime.NumCPU().
	Workers int

	// InPlace deletes the destination and writes it directly instead of
	// renaming a finished temporary file over it. A failure part way
	// leaves a partial package behind.
	InPlace bool

	// FlatGeobufDir, when set, receives a <layer>.fgb copy of every
	// written layer.
	FlatGeobufDir string

	Logger *zerolog.Logger
}

// LayerReport describes what happened to one input layer.
type LayerReport struct {
	Name    string
	Role    Role
	Stats   Stats
	Err     error // layer-level failure, the layer was not written
	Written bool
}

// Result summarizes a Write call.
type Result struct {
	Written []string // layer names in the package, in write order
	Layers  map[string]*LayerReport
}

// prepared is a layer after cleaning and normalization.
type prepared struct {
	report *LayerReport
	out    *Collection
}

// Write cleans every collection in layers for its role, reprojects it to
// TargetCRS and stores the non-empty results as named layers of a new
// GeoPackage at path. Any existing file at path is replaced.
//
// Failures confined to one layer are recorded in its LayerReport and the
// layer is left out. Only failures of the destination itself are
// returned; they wrap ErrIO.
func Write(path string, layers LayerSet, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	names := make([]string, 0, len(layers))
	for name := range layers {
		names = append(names, name)
	}
	sort.Strings(names)

	layerSet := make([]*prepared, len(names))

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			layerSet[i] = prepare(name, layers[name], opts.Roles)
			return nil
		})
	}
	_ = g.Wait()

	result := &Result{Layers: make(map[string]*LayerReport, len(names))}
	for _, p := range layerSet {
		result.Layers[p.report.Name] = p.report
		ev := logger.Debug()
		if p.report.Err != nil {
			ev = logger.Warn().Err(p.report.Err)
		}
		ev.Str("layer", p.report.Name).
			Stringer("role", p.report.Role).
			Int("input", p.report.Stats.Input).
			Int("output", p.report.Stats.Output).
			Int("dropped", p.report.Stats.Dropped()).
			Msg("layer prepared")
	}

	dest := path
	if !opts.InPlace {
		dest = filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	}

	if err := writePackage(dest, layerSet, result, logger); err != nil {
		if !opts.InPlace {
			_ = gpkg.Remove(dest)
		}
		return result, err
	}

	if !opts.InPlace {
		if err := os.Rename(dest, path); err != nil {
			_ = gpkg.Remove(dest)
			return result, fmt.Errorf("%w: %v", ErrIO, err)
		}
	}
	logger.Info().Str("path", path).Strs("layers", result.Written).Msg("package written")

	if opts.FlatGeobufDir != "" {
		if err := writeSidecars(opts.FlatGeobufDir, layerSet, logger); err != nil {
			return result, err
		}
	}
	return result, nil
}

// prepare runs the per-layer pipeline. It touches nothing shared.
func prepare(name string, c *Collection, roles map[string]Role) *prepared {
	role := RoleFor(name, roles)
	report := &LayerReport{Name: name, Role: role}
	p := &prepared{report: report}

	if !layerNameOK(name) {
		report.Err = &LayerError{Layer: name, Err: ErrLayerName}
		return p
	}
	if c == nil {
		return p
	}

	cleaned, stats, err := Clean(c, role)
	report.Stats = stats
	if err != nil {
		report.Err = &LayerError{Layer: name, Err: err}
		return p
	}
	// Reported even when nothing survives cleaning.
	if _, _, err := resolveCRS(c.CRS); err != nil {
		report.Err = &LayerError{Layer: name, Err: err}
		return p
	}
	if cleaned.Len() == 0 {
		return p
	}

	normalized, err := Normalize(cleaned)
	if err != nil {
		report.Err = &LayerError{Layer: name, Err: err}
		return p
	}
	p.out = normalized
	return p
}

// layerNameOK also rejects names that would leave FlatGeobufDir when used
// as a file name.
func layerNameOK(name string) bool {
	if strings.TrimSpace(name) == "" {
		return false
	}
	if strings.ContainsAny(name, `/\`+"\x00") || strings.Contains(name, "..") {
		return false
	}
	lower := strings.ToLower(name)
	return !strings.HasPrefix(lower, "gpkg_") && !strings.HasPrefix(lower, "sqlite_")
}

// writePackage serializes the prepared layers into a new package at dest.
// The writer is closed on every path.
func writePackage(dest string, layerSet []*prepared, result *Result, logger zerolog.Logger) (err error) {
	w, err := gpkg.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %v", ErrIO, cerr)
		}
	}()

	for _, p := range layerSet {
		if p.out == nil {
			continue
		}
		werr := w.WriteLayer(gpkg.Layer{Name: p.report.Name, SRS: gpkg.WGS84(), Features: p.out.Features})
		switch {
		case werr == nil:
			p.report.Written = true
			result.Written = append(result.Written, p.report.Name)
		case errors.Is(werr, gpkg.ErrDuplicateLayer), errors.Is(werr, gpkg.ErrInvalidName):
			p.report.Err = &LayerError{Layer: p.report.Name, Err: fmt.Errorf("%w: %v", ErrLayerName, werr)}
			logger.Warn().Err(p.report.Err).Str("layer", p.report.Name).Msg("layer skipped")
		default:
			return fmt.Errorf("%w: %v", ErrIO, werr)
		}
	}
	return nil
}

func writeSidecars(dir string, layerSet []*prepared, logger zerolog.Logger) error {
	for _, p := range layerSet {
		if !p.report.Written {
			continue
		}
		file := filepath.Join(dir, p.report.Name+".fgb")
		err := flatgeobuf.WriteFile(file, p.out.FeatureCollection(), &flatgeobuf.Options{
			Name:         p.report.Name,
			IncludeIndex: true,
			CRS:          flatgeobuf.WGS84(),
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrIO, err)
		}
		logger.Debug().Str("layer", p.report.Name).Str("path", file).Msg("flatgeobuf written")
	}
	return nil
}
