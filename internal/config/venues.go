package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// VenueScope is the root of the venues file that limits which tenants a sweep touches.
type VenueScope struct {
	VenueIDs []string `yaml:"venue_ids"`
}

// LoadVenueScope reads a venues file. Blank ids are dropped.
func LoadVenueScope(path string) (*VenueScope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read venues file: %w", err)
	}

	var scope VenueScope
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &scope); err != nil {
		return nil, fmt.Errorf("parse venues file: %w", err)
	}

	ids := scope.VenueIDs[:0]
	for _, id := range scope.VenueIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	scope.VenueIDs = ids
	return &scope, nil
}
