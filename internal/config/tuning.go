package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/supremacy-go/combat/internal/combat"
)

// LoadTuning reads balance tables from a YAML file. Keys the file omits keep
// their shipped defaults. An empty path returns the defaults.
func LoadTuning(path string) (combat.Tuning, error) {
	t := combat.DefaultTuning()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("reading tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parsing tuning file %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("invalid tuning file %s: %w", path, err)
	}
	return t, nil
}
