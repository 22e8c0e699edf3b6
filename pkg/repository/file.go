package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// LoadFile reads an object definition layer. Files ending in .yaml or .yml
// are YAML; everything else is JSON, which may carry comments and trailing
// commas.
func LoadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &m)
	default:
		err = json.Unmarshal(jsonc.ToJSON(data), &m)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return m, nil
}

// LoadFiles reads each path in order, keeping precedence.
func LoadFiles(paths ...string) ([]map[string]any, error) {
	layers := make([]map[string]any, 0, len(paths))
	for _, p := range paths {
		m, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		layers = append(layers, m)
	}
	return layers, nil
}
