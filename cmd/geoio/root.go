package main

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newRootCmd builds the command tree around one viper instance so every
// subcommand sees the same merged flags, environment and config file.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:           "geoio",
		Short:         "Clean network layers and write them to a GeoPackage",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(v, configFile); err != nil {
				return err
			}
			return setupLogging(v.GetString(cfgKeyLogLevel), cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ./geoio.yaml)")
	root.PersistentFlags().String("log-level", defaultLogLevel, "log level (trace, debug, info, warn, error)")
	_ = v.BindPFlag(cfgKeyLogLevel, root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newExportCmd(v))
	root.AddCommand(newInspectCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func setupLogging(level string, out io.Writer) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	return nil
}
