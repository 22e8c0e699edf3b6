package repository

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults returns a fresh copy of the built-in object definitions.
func Defaults() (map[string]any, error) {
	var m map[string]any
	if err := yaml.Unmarshal(defaultsYAML, &m); err != nil {
		return nil, fmt.Errorf("parse default objects: %w", err)
	}
	return m, nil
}
