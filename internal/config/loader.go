package config

import (
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/crazy-max/gonfig"
	"github.com/pkg/errors"
)

// Load merges the configuration file and then the environment into cfg.
// Without an explicit configFile, "<app>.yml" is searched for in the usual
// locations and its absence is not an error.
func (cfg *Config) Load(app, configFile string, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "config")

	explicit := configFile != ""
	if !explicit {
		configFile = app + ".yml"
	} else {
		configFile = path.Clean(configFile)
	}
	fileLoader := gonfig.NewFileLoader(gonfig.FileLoaderConfig{
		Filename: configFile,
		Finder: gonfig.Finder{
			BasePaths: []string{
				fmt.Sprintf("/etc/%s/%s", app, app),
				fmt.Sprintf("$HOME/.config/%s", app),
				fmt.Sprintf("./%s", app),
			},
			Extensions: []string{"yaml", "yml"},
		},
	})
	if found, err := fileLoader.Load(cfg); err != nil {
		return errors.Wrap(err, fmt.Sprintf("failed to decode configuration from file: %s", fileLoader.GetFilename()))
	} else if !found {
		if explicit {
			return errors.Errorf("configuration file not found: %s", configFile)
		}
		log.Debug("no configuration file found", "file", configFile)
	} else {
		log.Info("configuration loaded from file", "file", fileLoader.GetFilename())
	}

	envPrefix := strings.ReplaceAll(app, " ", "_")
	envPrefix = strings.ToUpper(strings.ReplaceAll(envPrefix, "-", "_")) + "_"
	envLoader := gonfig.NewEnvLoader(gonfig.EnvLoaderConfig{
		Prefix: envPrefix,
	})
	if found, err := envLoader.Load(cfg); err != nil {
		return errors.Wrap(err, "failed to decode configuration from environment variables")
	} else if !found {
		log.Debug("no environment variables defined", "prefix", envPrefix)
	} else {
		log.Info("configuration loaded from environment variables", "count", len(envLoader.GetVars()))
	}
	return nil
}
