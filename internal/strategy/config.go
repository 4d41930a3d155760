package strategy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadSettings reads a strategies config file: either a single settings
// object or an array of them, each carrying at minimum "strategy_name".
// JSON and YAML are both accepted; the extension picks the decoder.
func LoadSettings(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".yaml" || ext == ".yml" {
		return decodeSettings(data, yaml.Unmarshal)
	}
	return decodeSettings(data, json.Unmarshal)
}

func decodeSettings(data []byte, unmarshal func([]byte, any) error) ([]map[string]any, error) {
	var many []map[string]any
	if err := unmarshal(data, &many); err == nil {
		return many, nil
	}
	var one map[string]any
	if err := unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("strategies config is neither an object nor an array: %w", err)
	}
	return []map[string]any{one}, nil
}
