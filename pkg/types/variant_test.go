package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNodeRefScalarForm(t *testing.T) {
	var v Variant
	doc := `
name: test
version: "1.0"
nodes:
  - https://github.com/example/ComfyUI-Manager
`
	require.NoError(t, yaml.Unmarshal([]byte(doc), &v))
	require.Len(t, v.Nodes, 1)
	assert.Equal(t, "https://github.com/example/ComfyUI-Manager", v.Nodes[0].URL)
	assert.Empty(t, v.Nodes[0].Branch)
}

func TestNodeRefMappingForm(t *testing.T) {
	var v Variant
	doc := `
name: test
version: "1.0"
nodes:
  - url: https://github.com/example/ComfyUI-Manager.git
    branch: main
    commit: abc1234
`
	require.NoError(t, yaml.Unmarshal([]byte(doc), &v))
	require.Len(t, v.Nodes, 1)
	assert.Equal(t, "https://github.com/example/ComfyUI-Manager.git", v.Nodes[0].URL)
	assert.Equal(t, "main", v.Nodes[0].Branch)
	assert.Equal(t, "abc1234", v.Nodes[0].Commit)
}

func TestNodeRefRejectsSequence(t *testing.T) {
	var v Variant
	doc := `
nodes:
  - [not, a, node]
`
	err := yaml.Unmarshal([]byte(doc), &v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sequence")
}

func TestNodeRefRepoName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://github.com/example/ComfyUI-Manager", "ComfyUI-Manager"},
		{"https://github.com/example/ComfyUI-Manager.git", "ComfyUI-Manager"},
		{"https://github.com/example/ComfyUI-Manager/", "ComfyUI-Manager"},
		{"git@github.com:example/nodes.git", "nodes"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NodeRef{URL: tt.url}.RepoName(), tt.url)
	}
}

func TestNodeRefJSONRoundTrip(t *testing.T) {
	refs := []NodeRef{
		{URL: "https://github.com/a/b", bare: true},
		{URL: "https://github.com/a/c", Branch: "dev"},
	}
	data, err := json.Marshal(refs)
	require.NoError(t, err)
	assert.JSONEq(t, `["https://github.com/a/b", {"url":"https://github.com/a/c","branch":"dev"}]`, string(data))

	var back []NodeRef
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 2)
	assert.Equal(t, "https://github.com/a/b", back[0].URL)
	assert.Equal(t, "dev", back[1].Branch)
}

func TestFromDocument(t *testing.T) {
	doc := map[string]any{
		"name":    "sdxl",
		"version": "2.1.0",
		"nodes":   []any{"https://github.com/a/b"},
		"models": map[string]any{
			"checkpoints": []any{
				map[string]any{"url": "https://example.com/m.safetensors", "name": "m"},
			},
		},
		"env_vars": map[string]any{"COMFYUI_ARGS": "--lowvram"},
	}
	v, err := FromDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, "sdxl", v.Name)
	assert.Equal(t, "2.1.0", v.Version)
	require.Len(t, v.Nodes, 1)
	require.Len(t, v.Models["checkpoints"], 1)
	assert.Equal(t, "m", v.Models["checkpoints"][0].Name)
	assert.Equal(t, "--lowvram", v.EnvVars["COMFYUI_ARGS"])
}
