package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tingold/orb-geoio/gpkg"
)

const pipesJSON = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature", "properties": {"id": "A"},
		 "geometry": {"type": "LineString", "coordinates": [[0, 0], [1, 1]]}},
		{"type": "Feature", "properties": {"id": "bad"},
		 "geometry": {"type": "LineString", "coordinates": []}},
		{"type": "Feature", "properties": {"id": "B"},
		 "geometry": {"type": "MultiLineString", "coordinates": [[[2, 0], [3, 0]], [[3, 0], [4, 1]]]}}
	]
}`

const outfallsJSON = `{
	"type": "FeatureCollection",
	"features": [
		{"type": "Feature", "properties": {"id": "O1"},
		 "geometry": {"type": "MultiPoint", "coordinates": [[5, 5], [6, 6]]}}
	]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func layerCounts(t *testing.T, path string) map[string]int {
	t.Helper()
	r, err := gpkg.Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	infos, err := r.Layers()
	require.NoError(t, err)
	counts := make(map[string]int, len(infos))
	for _, info := range infos {
		counts[info.Name] = info.Count
	}
	return counts
}

func TestExport_Flags(t *testing.T) {
	dir := t.TempDir()
	pipes := writeFile(t, dir, "pipes.geojson", pipesJSON)
	out := filepath.Join(dir, "network.gpkg")

	stdout, _, err := execute(t, "export", "--layer", "pipes="+pipes, "--out", out, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, stdout, "pipes")
	assert.Contains(t, stdout, "written")

	assert.Equal(t, map[string]int{"pipes": 2}, layerCounts(t, out))

	stdout, _, err = execute(t, "inspect", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "LINESTRING")
	assert.Contains(t, stdout, "EPSG:4326")
}

func TestExport_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	pipes := writeFile(t, dir, "pipes.geojson", pipesJSON)
	outfalls := writeFile(t, dir, "outfalls.geojson", outfallsJSON)
	out := filepath.Join(dir, "model.gpkg")

	cfg := writeFile(t, dir, "geoio.yaml", "output: "+out+"\n"+
		"log_level: error\n"+
		"roles:\n  outfalls: point\n"+
		"layers:\n  pipes: "+pipes+"\n  outfalls: "+outfalls+"\n  missing: "+filepath.Join(dir, "nope.geojson")+"\n")

	stdout, _, err := execute(t, "export", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, stdout, "missing")
	assert.Contains(t, stdout, "error:")

	assert.Equal(t, map[string]int{"outfalls": 2, "pipes": 2}, layerCounts(t, out))
}

func TestExport_Errors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
	}{
		{"no layers", []string{"export", "--out", filepath.Join(dir, "a.gpkg")}},
		{"bad layer flag", []string{"export", "--layer", "pipes"}},
		{"bad log level", []string{"export", "--layer", "pipes=x.geojson", "--log-level", "loud"}},
		{"missing config", []string{"export", "--config", filepath.Join(dir, "none.yaml")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestExport_InvalidRole(t *testing.T) {
	dir := t.TempDir()
	pipes := writeFile(t, dir, "pipes.geojson", pipesJSON)
	cfg := writeFile(t, dir, "geoio.yaml", "roles:\n  pipes: river\n")

	_, _, err := execute(t, "export", "--config", cfg, "--layer", "pipes="+pipes, "--out", filepath.Join(dir, "a.gpkg"))
	assert.Error(t, err)
}

func TestInspect_NotGeoPackage(t *testing.T) {
	path := writeFile(t, t.TempDir(), "plain.gpkg", "not sqlite")
	_, _, err := execute(t, "inspect", path)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "geoio ")
}
