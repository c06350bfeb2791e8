package main

import (
	"fmt"

	"github.com/spf13/cobra"

	geoio "github.com/tingold/orb-geoio"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the geoio version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "geoio %s\n", geoio.Version)
		},
	}
}
