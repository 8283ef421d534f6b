// Package bundle reads the packaging manifest shipped alongside the core
// plugin bundle (plugins/core/manifest.yaml). The manifest is metadata
// for packaging and for `bunnylol plugin list --bundled`: the registry
// itself never reads it — every plugin is still discovered by walking
// for *.js files and asking its own info(), per spec §4.B. This mirrors
// loader.go's loadManifest in the teacher, generalized from a WASM/gRPC
// plugin manifest to this bundle's JS plugins.
package bundle

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest describes one shipped plugin bundle.
type Manifest struct {
	Name    string           `yaml:"name"`
	Version string           `yaml:"version"`
	Plugins []ManifestPlugin `yaml:"plugins"`
}

// ManifestPlugin is one entry in a Manifest's plugin list.
type ManifestPlugin struct {
	File     string   `yaml:"file"`
	Bindings []string `yaml:"bindings"`
}

// Load parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}
