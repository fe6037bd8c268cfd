package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestWriteTemplate(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(dir)

	path, err := loader.WriteTemplate("sdxl", "")
	require.NoError(t, err)
	assert.Equal(t, loader.Path("sdxl"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "sdxl", doc["name"])
	assert.Equal(t, "1.0.0", doc["version"])
	assert.Equal(t, DefaultBaseImage, doc["base_image"])
	assert.Equal(t, "base", doc["extends"])

	// Generated sequences are empty; no include markers are emitted.
	assert.NotContains(t, string(data), "!include")

	models := doc["models"].(map[string]any)
	for _, category := range []string{"checkpoints", "loras", "vae", "controlnet", "upscale_models"} {
		assert.Contains(t, models, category)
	}
}

func TestWriteTemplateCustomBaseImage(t *testing.T) {
	loader := NewLoader(t.TempDir())
	path, err := loader.WriteTemplate("video", "effekt/runpod-comfyui:video")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "effekt/runpod-comfyui:video"))
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	loader := NewLoader(t.TempDir())
	_, err := loader.WriteTemplate("sdxl", "")
	require.NoError(t, err)

	_, err = loader.WriteTemplate("sdxl", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestTemplateResolvesAgainstBase(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(dir)
	writeVariant(t, dir, "base", `
name: base
version: "1.0"
nodes:
  - https://github.com/example/ComfyUI-Manager
requirements: [numpy]
`)

	_, err := loader.WriteTemplate("sdxl", "")
	require.NoError(t, err)

	doc, err := loader.Resolve("sdxl")
	require.NoError(t, err)
	assert.Equal(t, "sdxl", doc["name"])
	assert.NotContains(t, doc, "extends")
	assert.Equal(t, []any{"https://github.com/example/ComfyUI-Manager"}, doc["nodes"])
	assert.Equal(t, []any{"numpy"}, doc["requirements"])
}
