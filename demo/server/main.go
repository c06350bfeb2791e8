// Command server exposes the GeoPackage export over HTTP.
//
//	POST /export/gpkg          {"layers": {"pipes": <FeatureCollection>, ...}}
//	POST /export/fgb/{layer}   <FeatureCollection>
package main

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Server error")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var listenAddr, workDir string

	cmd := &cobra.Command{
		Use:           "geoio-server",
		Short:         "Serve GeoPackage and FlatGeobuf exports over HTTP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339}).
				With().Timestamp().Logger()

			srv := &Server{WorkDir: workDir}

			log.Info().Str("listen", listenAddr).Str("work_dir", workDir).Msg("Starting server")
			return http.ListenAndServe(listenAddr, RequestLogger(srv.Routes()))
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "address to listen on")
	cmd.Flags().StringVar(&workDir, "work-dir", os.TempDir(), "directory for packages being built")
	return cmd
}
