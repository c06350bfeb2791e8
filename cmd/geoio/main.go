// Package main provides the geoio CLI. It reads GeoJSON layers, cleans
// them for their roles and writes one GeoPackage.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("geoio failed")
		os.Exit(1)
	}
}
