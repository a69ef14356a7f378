package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"

	"github.com/zsiec/tsgop/internal/pts"
)

// ReadDeltas reads a breakpoint list from path. Files ending in .yml or
// .yaml are YAML; anything else is JSON5, so hand-edited lists may carry
// comments and trailing commas:
//
//	[
//	  {pts: 183003, delta: 250}, // splice at 2:03
//	]
func ReadDeltas(path string) ([]pts.Breakpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: deltas: %w", err)
	}

	var bps []pts.Breakpoint
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		err = yaml.Unmarshal(data, &bps)
	default:
		err = json5.Unmarshal(data, &bps)
	}
	if err != nil {
		return nil, fmt.Errorf("config: deltas %s: %w", path, err)
	}
	for _, bp := range bps {
		if err := bp.Validate(); err != nil {
			return nil, fmt.Errorf("config: deltas %s: %w", path, err)
		}
	}
	return bps, nil
}

// ResolveDeltas replaces Deltas with the content of DeltasFile, if set.
func (cfg *Config) ResolveDeltas() error {
	if cfg.DeltasFile == "" {
		return nil
	}
	bps, err := ReadDeltas(cfg.DeltasFile)
	if err != nil {
		return err
	}
	cfg.Deltas = bps
	return nil
}
