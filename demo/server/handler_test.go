package main

import (
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tingold/orb-geoio/flatgeobuf"
	"github.com/tingold/orb-geoio/gpkg"
)

const pipes = `{"type": "FeatureCollection", "features": [
	{"type": "Feature", "properties": {"id": "A"},
	 "geometry": {"type": "MultiLineString", "coordinates": [[[0, 0], [1, 0]], [[1, 0], [1, 1]]]}},
	{"type": "Feature", "properties": {"id": "B"}, "geometry": null}
]}`

const junctions = `{"type": "FeatureCollection", "features": [
	{"type": "Feature", "properties": {"id": "J1"},
	 "geometry": {"type": "Point", "coordinates": [0, 0]}}
]}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := &Server{WorkDir: t.TempDir()}
	ts := httptest.NewServer(RequestLogger(srv.Routes()))
	t.Cleanup(ts.Close)
	return ts
}

func TestHandleExportGPKG(t *testing.T) {
	ts := newTestServer(t)

	body := `{"layers": {"pipes": ` + pipes + `, "junctions": ` + junctions + `, "broken": {"type": 1}}}`
	resp, err := http.Post(ts.URL+"/export/gpkg", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypeGPKG, resp.Header.Get("Content-Type"))
	assert.Equal(t, "junctions,pipes", resp.Header.Get("X-Layers-Written"))
	assert.Equal(t, "broken", resp.Header.Get("X-Layers-Skipped"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "network.gpkg")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	r, err := gpkg.Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	fc, err := r.ReadLayer("pipes")
	require.NoError(t, err)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "A", fc.Features[0].Properties["id"])
}

func TestHandleExportGPKG_BadRequest(t *testing.T) {
	ts := newTestServer(t)

	for _, body := range []string{`not json`, `{"layers": {}}`} {
		resp, err := http.Post(ts.URL+"/export/gpkg", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestHandleExportFGB(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/export/fgb/pipes", "application/geo+json", strings.NewReader(pipes))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypeFGB, resp.Header.Get("Content-Type"))
	assert.Equal(t, "1", resp.Header.Get("X-Features-Dropped"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	r, err := flatgeobuf.NewReaderFromData(data)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	h := r.Header()
	assert.Equal(t, "pipes", h.Name)
	assert.Equal(t, "LineString", h.GeometryType)
	assert.Equal(t, uint64(1), h.FeaturesCount)
}

func TestHandleExportFGB_ContentDisposition(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name     string
		path     string
		filename string
	}{
		{"plain", "junctions", "junctions.fgb"},
		{"quote", "bad%22name", `bad"name.fgb`},
		{"header injection", "x%0D%0AX-Injected:%20yes", "x\r\nX-Injected: yes.fgb"},
		{"unicode", "r%C3%A9seau", "réseau.fgb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/export/fgb/"+tt.path, "application/geo+json", strings.NewReader(junctions))
			require.NoError(t, err)
			_ = resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Empty(t, resp.Header.Get("X-Injected"))

			disposition, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
			require.NoError(t, err)
			assert.Equal(t, "attachment", disposition)
			assert.Equal(t, tt.filename, params["filename"])
		})
	}
}

func TestHandleExportFGB_Errors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		layer  string
		body   string
		status int
	}{
		{"not geojson", "pipes", `{"type":`, http.StatusBadRequest},
		{"nothing left", "junctions", pipes, http.StatusUnprocessableEntity},
		{"unknown crs", "pipes", `{"type": "FeatureCollection", "crs": {"type": "name", "properties": {"name": "EPSG:27700"}}, "features": []}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/export/fgb/"+tt.layer, "application/geo+json", strings.NewReader(tt.body))
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/export/gpkg")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
