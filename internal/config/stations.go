package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Station describes one upper-air observation site from the catalog file.
type Station struct {
	ID   string  `yaml:"id"`
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lon  float64 `yaml:"lon"`
}

// catalogFile is the on-disk catalog shape (YAML).
type catalogFile struct {
	Stations []Station `yaml:"stations"`
}

// LoadCatalog reads a YAML station catalog keyed by station ID. The
// catalog is purely cosmetic (output labeling), so a missing path is the
// caller's decision to tolerate, but a present-yet-broken file is an error.
func LoadCatalog(path string) (map[string]Station, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("station catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("station catalog: parse %s: %w", path, err)
	}

	out := make(map[string]Station, len(file.Stations))
	for i, st := range file.Stations {
		if st.ID == "" {
			return nil, fmt.Errorf("station catalog: entry %d has no id", i)
		}
		out[st.ID] = st
	}
	return out, nil
}
