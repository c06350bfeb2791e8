package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tingold/orb-geoio/gpkg"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.gpkg>",
		Short: "List the feature layers of a GeoPackage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), args[0])
		},
	}
}

func runInspect(out io.Writer, path string) error {
	r, err := gpkg.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	infos, err := r.Layers()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LAYER\tTYPE\tSRS\tFEATURES\tBOUNDS")
	for _, info := range infos {
		b := info.Bounds
		fmt.Fprintf(tw, "%s\t%s\tEPSG:%d\t%d\t[%g %g, %g %g]\n",
			info.Name, info.GeometryType, info.SRSID, info.Count,
			b.Min[0], b.Min[1], b.Max[0], b.Max[1])
	}
	return tw.Flush()
}
