package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultBaseImage is the image new variants inherit when none is given.
const DefaultBaseImage = "effekt/runpod-comfyui:base"

// template mirrors the variant schema with a fixed key order for generated
// files. Sequences start empty; inherited content comes from the base
// variant through the merge, not from include markers.
type template struct {
	Name         string              `yaml:"name"`
	Version      string              `yaml:"version"`
	BaseImage    string              `yaml:"base_image"`
	Description  string              `yaml:"description"`
	Extends      string              `yaml:"extends"`
	Nodes        []string            `yaml:"nodes"`
	Requirements []string            `yaml:"requirements"`
	Workflows    []string            `yaml:"workflows"`
	Models       map[string][]string `yaml:"models"`
	EnvVars      map[string]string   `yaml:"env_vars"`
}

// WriteTemplate creates a new variant document extending the base variant.
// It refuses to overwrite an existing document.
func (l *Loader) WriteTemplate(name, baseImage string) (string, error) {
	if baseImage == "" {
		baseImage = DefaultBaseImage
	}

	path := l.Path(name)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("variant already exists: %s", name)
	}

	tpl := template{
		Name:        name,
		Version:     "1.0.0",
		BaseImage:   baseImage,
		Description: fmt.Sprintf("ComfyUI variant: %s", name),
		Extends:     "base",
		Models: map[string][]string{
			"checkpoints":    {},
			"loras":          {},
			"vae":            {},
			"controlnet":     {},
			"upscale_models": {},
		},
		EnvVars: map[string]string{
			"CONFIG_NAME":  name,
			"COMFYUI_ARGS": "",
		},
	}

	data, err := yaml.Marshal(tpl)
	if err != nil {
		return "", fmt.Errorf("failed to encode template: %w", err)
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create configs directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write template: %w", err)
	}
	return path, nil
}
