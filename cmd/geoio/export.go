package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	geoio "github.com/tingold/orb-geoio"
)

func newExportCmd(v *viper.Viper) *cobra.Command {
	var layerFlags []string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Clean GeoJSON layers and write them to a GeoPackage",
		Long: `Reads each layer from a GeoJSON FeatureCollection file, cleans it for
its role (pipes are lines, junctions are points, subcatchments are polygons),
reprojects it to EPSG:4326 and writes every non-empty layer to one package.

Layers come from repeated --layer name=path flags or the layers table of
geoio.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.OutOrStdout(), v, layerFlags)
		},
	}

	cmd.Flags().StringArrayVarP(&layerFlags, "layer", "l", nil, "layer as name=path.geojson (repeatable)")
	cmd.Flags().StringP("out", "o", defaultOutput, "output GeoPackage path")
	cmd.Flags().Bool("in-place", false, "write directly to the output instead of via a temporary file")
	cmd.Flags().Int("workers", 0, "layers cleaned concurrently (0 = number of CPUs)")
	cmd.Flags().String("fgb-dir", "", "also write each layer as <dir>/<layer>.fgb")

	_ = v.BindPFlag(cfgKeyOutput, cmd.Flags().Lookup("out"))
	_ = v.BindPFlag(cfgKeyInPlace, cmd.Flags().Lookup("in-place"))
	_ = v.BindPFlag(cfgKeyWorkers, cmd.Flags().Lookup("workers"))
	_ = v.BindPFlag(cfgKeyFGBDir, cmd.Flags().Lookup("fgb-dir"))
	return cmd
}

func runExport(out io.Writer, v *viper.Viper, layerFlags []string) error {
	sources, err := layerSources(v, layerFlags)
	if err != nil {
		return err
	}
	roles, err := configRoles(v)
	if err != nil {
		return err
	}

	layers := make(geoio.LayerSet, len(sources))
	failed := make(map[string]error)
	for _, name := range sortedKeys(sources) {
		c, err := readLayer(sources[name])
		if err != nil {
			log.Warn().Err(err).Str("layer", name).Str("path", sources[name]).Msg("skipping layer")
			failed[name] = err
			continue
		}
		layers[name] = c
	}

	logger := log.Logger
	result, err := geoio.Write(v.GetString(cfgKeyOutput), layers, &geoio.Options{
		Roles:         roles,
		Workers:       v.GetInt(cfgKeyWorkers),
		InPlace:       v.GetBool(cfgKeyInPlace),
		FlatGeobufDir: v.GetString(cfgKeyFGBDir),
		Logger:        &logger,
	})
	if err != nil {
		return err
	}

	for name, err := range failed {
		result.Layers[name] = &geoio.LayerReport{Name: name, Role: geoio.RoleFor(name, roles), Err: err}
	}
	return printReport(out, result)
}

func readLayer(path string) (*geoio.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return geoio.DecodeCollection(data)
}

func printReport(out io.Writer, result *geoio.Result) error {
	names := make(map[string]string, len(result.Layers))
	for name := range result.Layers {
		names[name] = name
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LAYER\tROLE\tINPUT\tOUTPUT\tDROPPED\tSTATUS")
	for _, name := range sortedKeys(names) {
		r := result.Layers[name]
		status := "written"
		switch {
		case r.Err != nil:
			status = "error: " + r.Err.Error()
		case !r.Written:
			status = "empty"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			name, r.Role, r.Stats.Input, r.Stats.Output, r.Stats.Dropped(), status)
	}
	return tw.Flush()
}
