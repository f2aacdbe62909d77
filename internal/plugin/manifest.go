package plugin

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ManifestEntry selects one plugin for registration with optional
// per-plugin overrides.
type ManifestEntry struct {
	Name     string `yaml:"name"`
	Every    int    `yaml:"every"`    // minutes, 0 = plugin default
	Priority *int   `yaml:"priority"` // nil = plugin default
}

type manifestFile struct {
	Plugins []ManifestEntry `yaml:"plugins"`
}

// LoadManifest reads the plugin selection file. A missing path returns
// (nil, nil): the caller falls back to registering every built-in.
func LoadManifest(path string) ([]ManifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var mf manifestFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(mf.Plugins))
	for _, entry := range mf.Plugins {
		if entry.Name == "" {
			return nil, fmt.Errorf("%w: manifest entry without a name", ErrConfiguration)
		}
		if entry.Every < 0 {
			return nil, fmt.Errorf("%w: plugin %q: negative interval", ErrConfiguration, entry.Name)
		}
		if _, dup := seen[entry.Name]; dup {
			return nil, fmt.Errorf("%w: plugin %q listed twice", ErrConfiguration, entry.Name)
		}
		seen[entry.Name] = struct{}{}
	}
	return mf.Plugins, nil
}
