// Package config loads the editor's tool configuration from an HCL file.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config holds the tunables the CLI commands share.
type Config struct {
	// DedupThreshold is the merge distance for duplicate-node detection,
	// in world units.
	DedupThreshold float32 `hcl:"dedup_threshold,optional"`
	// PickRadius is the nearest-node search radius used when resolving a
	// click position to a waypoint.
	PickRadius float32 `hcl:"pick_radius,optional"`
	// DefaultMarkerGroup is the group assigned to markers created without
	// an explicit one.
	DefaultMarkerGroup string `hcl:"default_marker_group,optional"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DedupThreshold:     0.1,
		PickRadius:         5,
		DefaultMarkerGroup: "All",
	}
}

// Load reads an HCL config file and overlays it on the defaults. A
// missing file is not an error; the defaults apply as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return cfg, fmt.Errorf("parse config %s: %s", path, diags.Error())
	}

	var loaded Config
	if diags := gohcl.DecodeBody(file.Body, nil, &loaded); diags.HasErrors() {
		return cfg, fmt.Errorf("decode config %s: %s", path, diags.Error())
	}

	if loaded.DedupThreshold != 0 {
		cfg.DedupThreshold = loaded.DedupThreshold
	}
	if loaded.PickRadius != 0 {
		cfg.PickRadius = loaded.PickRadius
	}
	if loaded.DefaultMarkerGroup != "" {
		cfg.DefaultMarkerGroup = loaded.DefaultMarkerGroup
	}
	return cfg, nil
}
