package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	geoio "github.com/tingold/orb-geoio"
	"github.com/tingold/orb-geoio/flatgeobuf"
)

const (
	contentTypeGPKG = "application/geopackage+sqlite3"
	contentTypeFGB  = "application/flatgeobuf"

	maxBodyBytes = 256 << 20
)

// Server turns uploaded GeoJSON layers into GeoPackage or FlatGeobuf files.
type Server struct {
	WorkDir string
	Roles   map[string]geoio.Role
}

type exportRequest struct {
	Layers map[string]json.RawMessage `json:"layers"`
}

// Routes returns the handler for every endpoint.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /export/gpkg", s.HandleExportGPKG)
	mux.HandleFunc("POST /export/fgb/{layer}", s.HandleExportFGB)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// HandleExportGPKG writes every layer of the request into one package and
// streams it back. Layers that fail to decode or clean are reported in the
// X-Layers-Skipped header and left out.
func (s *Server) HandleExportGPKG(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Layers) == 0 {
		http.Error(w, "no layers", http.StatusBadRequest)
		return
	}

	layers := make(geoio.LayerSet, len(req.Layers))
	var skipped []string
	for name, raw := range req.Layers {
		c, err := geoio.DecodeCollection(raw)
		if err != nil {
			log.Warn().Err(err).Str("layer", name).Msg("Skipping layer")
			skipped = append(skipped, name)
			continue
		}
		layers[name] = c
	}

	dir, err := os.MkdirTemp(s.WorkDir, "export-")
	if err != nil {
		log.Error().Err(err).Msg("Failed to create work dir")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "network.gpkg")
	logger := log.Logger
	result, err := geoio.Write(path, layers, &geoio.Options{Roles: s.Roles, Logger: &logger})
	if err != nil {
		log.Error().Err(err).Msg("Export failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	for name, report := range result.Layers {
		if report.Err != nil {
			skipped = append(skipped, name)
		}
	}
	sort.Strings(skipped)

	f, err := os.Open(path)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open package")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = f.Close() }()

	w.Header().Set("Content-Type", contentTypeGPKG)
	w.Header().Set("Content-Disposition", attachment("network.gpkg"))
	w.Header().Set("X-Layers-Written", strings.Join(result.Written, ","))
	if len(skipped) > 0 {
		w.Header().Set("X-Layers-Skipped", strings.Join(skipped, ","))
	}
	if _, err := io.Copy(w, f); err != nil {
		log.Warn().Err(err).Msg("Failed to send package")
	}
}

// HandleExportFGB cleans one layer for the role of its name and returns it
// as an indexed FlatGeobuf file in EPSG:4326.
func (s *Server) HandleExportFGB(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("layer")

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	c, err := geoio.DecodeCollection(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	role := geoio.RoleFor(name, s.Roles)
	cleaned, stats, err := geoio.Clean(c, role)
	if err == nil {
		cleaned, err = geoio.Normalize(cleaned)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if cleaned.Len() == 0 {
		http.Error(w, fmt.Sprintf("layer %s has no features after cleaning", name), http.StatusUnprocessableEntity)
		return
	}

	opts := flatgeobuf.DefaultOptions()
	opts.Name = name
	opts.CRS = flatgeobuf.WGS84()

	var buf bytes.Buffer
	if err := flatgeobuf.WriteLayer(&buf, cleaned.FeatureCollection(), opts); err != nil {
		if errors.Is(err, flatgeobuf.ErrUnsupportedType) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		log.Error().Err(err).Str("layer", name).Msg("Failed to write FlatGeobuf")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentTypeFGB)
	w.Header().Set("Content-Disposition", attachment(name+".fgb"))
	w.Header().Set("X-Features-Dropped", strconv.Itoa(stats.Dropped()))
	if _, err := buf.WriteTo(w); err != nil {
		log.Warn().Err(err).Msg("Failed to send FlatGeobuf")
	}
}

// attachment quotes or percent-encodes filename so a layer name cannot
// break out of the Content-Disposition header.
func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}
