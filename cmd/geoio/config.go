package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"

	geoio "github.com/tingold/orb-geoio"
)

const (
	configFileName = "geoio"
	configFileType = "yaml"
	envPrefix      = "GEOIO"

	cfgKeyOutput   = "output"
	cfgKeyInPlace  = "in_place"
	cfgKeyWorkers  = "workers"
	cfgKeyFGBDir   = "fgb_dir"
	cfgKeyLogLevel = "log_level"
	cfgKeyRoles    = "roles"
	cfgKeyLayers   = "layers"

	defaultOutput   = "network.gpkg"
	defaultLogLevel = "info"
)

// loadConfig reads geoio.yaml from the working directory, or file when
// set. A missing default config file is not an error; a missing explicit
// one is.
func loadConfig(v *viper.Viper, file string) error {
	v.SetDefault(cfgKeyOutput, defaultOutput)
	v.SetDefault(cfgKeyLogLevel, defaultLogLevel)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// configRoles parses the roles table, layer name to role name.
func configRoles(v *viper.Viper) (map[string]geoio.Role, error) {
	raw := v.GetStringMapString(cfgKeyRoles)
	if len(raw) == 0 {
		return nil, nil
	}

	roles := make(map[string]geoio.Role, len(raw))
	for name, role := range raw {
		r, err := geoio.ParseRole(role)
		if err != nil {
			return nil, fmt.Errorf("config %s.%s: %w", cfgKeyRoles, name, err)
		}
		roles[name] = r
	}
	return roles, nil
}

// layerSources merges the config layers table with name=path flag values.
// Flags win over config entries of the same name.
func layerSources(v *viper.Viper, flags []string) (map[string]string, error) {
	sources := v.GetStringMapString(cfgKeyLayers)
	if sources == nil {
		sources = make(map[string]string)
	}
	for _, f := range flags {
		name, path, ok := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("invalid --layer %q, expected name=path", f)
		}
		sources[name] = strings.TrimSpace(path)
	}
	if len(sources) == 0 {
		return nil, errors.New("no layers given; use --layer name=path or the layers config table")
	}
	return sources, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
