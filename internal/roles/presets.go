package roles

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/atheneum-lms/atheneum/internal/rbac"
)

//go:embed presets.yaml
var presetsRaw []byte

// Preset is a standard role shipped with the installation.
type Preset struct {
	ID          int64       `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	RoleType    string      `yaml:"role_type"`
	Rights      rbac.Rights `yaml:"rights"`
}

type presetsFile struct {
	Roles []Preset `yaml:"roles"`
}

// Presets parses the embedded standard roles.
func Presets() ([]Preset, error) {
	var f presetsFile
	if err := yaml.Unmarshal(presetsRaw, &f); err != nil {
		return nil, fmt.Errorf("roles: parse presets: %w", err)
	}
	return f.Roles, nil
}
