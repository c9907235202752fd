package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModuleSpec describes one game module as declared in the modules file.
type ModuleSpec struct {
	ID       string            `yaml:"id"`       // Stable module identifier, e.g. "roulette".
	Name     string            `yaml:"name"`     // Display name.
	Disabled bool              `yaml:"disabled"` // Registered but not reachable.
	Settings map[string]string `yaml:"settings"` // Module configuration values.

	// RequiredSettings must be present and non-empty in Settings, otherwise
	// the configuration check fails.
	RequiredSettings []string `yaml:"required_settings"`

	// AdvisorySettings are expected but not essential. Missing ones fail an
	// advisory check, which degrades the module to warning.
	AdvisorySettings []string `yaml:"advisory_settings"`
}

// ModulesFile mirrors the YAML schema of HEALTH_MODULES_FILE.
type ModulesFile struct {
	Modules []ModuleSpec `yaml:"modules"`
}

// LoadModules reads the module registry from a YAML file. An empty path or a
// missing file yields an empty registry. HEALTH_DISABLED_MODULES (comma
// separated ids) overrides the disabled flag from the file.
func LoadModules(path string) ([]ModuleSpec, error) {
	file := ModulesFile{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading modules file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &file); err != nil {
				return nil, fmt.Errorf("error parsing modules YAML: %w", err)
			}
		}
	}

	if err := validateModules(file.Modules); err != nil {
		return nil, err
	}

	if v := StringValue("HEALTH_DISABLED_MODULES"); v != "" {
		disabled := make(map[string]bool)
		for _, id := range strings.Split(v, ",") {
			disabled[strings.TrimSpace(id)] = true
		}
		for i := range file.Modules {
			if disabled[file.Modules[i].ID] {
				file.Modules[i].Disabled = true
			}
		}
	}

	return file.Modules, nil
}

func validateModules(modules []ModuleSpec) error {
	seen := make(map[string]bool, len(modules))
	for i, m := range modules {
		if m.ID == "" {
			return fmt.Errorf("module at position %d has no id", i)
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate module id %q", m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}
