package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeVariant(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filePrefix+name+fileSuffix)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestResolveWithoutExtends(t *testing.T) {
	dir := t.TempDir()
	writeVariant(t, dir, "base", `
name: base
version: "1.0"
nodes:
  - https://github.com/example/repoA
`)

	loader := NewLoader(dir)
	doc, err := loader.Resolve("base")
	require.NoError(t, err)

	assert.Equal(t, "base", doc["name"])
	assert.Equal(t, "1.0", doc["version"])
	assert.Equal(t, []any{"https://github.com/example/repoA"}, doc["nodes"])
	assert.NotContains(t, doc, "extends")
}

func TestResolveNotFound(t *testing.T) {
	loader := NewLoader(t.TempDir())
	_, err := loader.Resolve("ghost")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.Name)
}

func TestResolveExtendsMergesAncestor(t *testing.T) {
	dir := t.TempDir()
	writeVariant(t, dir, "base", `
name: base
version: "1.0"
nodes:
  - repoA
`)
	writeVariant(t, dir, "child", `
name: child
extends: base
nodes:
  - repoB
`)

	loader := NewLoader(dir)
	doc, err := loader.Resolve("child")
	require.NoError(t, err)

	assert.Equal(t, "child", doc["name"])
	assert.Equal(t, "1.0", doc["version"])
	assert.Equal(t, []any{"repoA", "repoB"}, doc["nodes"])
	assert.NotContains(t, doc, "extends")
}

func TestResolveExtendsDecoratedReference(t *testing.T) {
	dir := t.TempDir()
	writeVariant(t, dir, "base", `
name: base
version: "1.0"
`)
	writeVariant(t, dir, "child", `
name: child
extends: config-base.yaml
`)

	loader := NewLoader(dir)
	doc, err := loader.Resolve("child")
	require.NoError(t, err)
	assert.Equal(t, "1.0", doc["version"])
}

func TestResolveExtendsChain(t *testing.T) {
	dir := t.TempDir()
	writeVariant(t, dir, "base", `
name: base
version: "1.0"
requirements: [numpy]
`)
	writeVariant(t, dir, "mid", `
name: mid
extends: base
requirements: [torch]
`)
	writeVariant(t, dir, "leaf", `
name: leaf
extends: mid
requirements: [opencv-python]
`)

	loader := NewLoader(dir)
	doc, err := loader.Resolve("leaf")
	require.NoError(t, err)

	assert.Equal(t, "leaf", doc["name"])
	assert.Equal(t, []any{"numpy", "torch", "opencv-python"}, doc["requirements"])
	assert.NotContains(t, doc, "extends")
}

func TestResolveMissingAncestorIsFatal(t *testing.T) {
	dir := t.TempDir()
	writeVariant(t, dir, "child", `
name: child
extends: base
`)

	loader := NewLoader(dir)
	_, err := loader.Resolve("child")

	var missing *MissingAncestorError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "child", missing.Name)
	assert.Equal(t, "base", missing.Ancestor)
}

func TestResolveCycleDetected(t *testing.T) {
	dir := t.TempDir()
	writeVariant(t, dir, "a", `
name: a
extends: b
`)
	writeVariant(t, dir, "b", `
name: b
extends: a
`)

	loader := NewLoader(dir)
	_, err := loader.Resolve("a")

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{"a", "b", "a"}, cycle.Chain)
}

func TestResolveSelfExtendsCycle(t *testing.T) {
	dir := t.TempDir()
	writeVariant(t, dir, "a", `
name: a
extends: a
`)

	loader := NewLoader(dir)
	_, err := loader.Resolve("a")

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
}

func TestResolveModelCategoriesMerge(t *testing.T) {
	dir := t.TempDir()
	writeVariant(t, dir, "base", `
name: base
version: "1.0"
models:
  checkpoints:
    - url: u0
      name: m0
  loras:
    - url: l0
      name: lora0
`)
	writeVariant(t, dir, "child", `
name: child
extends: base
models:
  checkpoints:
    - url: u1
      name: m1
`)

	loader := NewLoader(dir)
	doc, err := loader.Resolve("child")
	require.NoError(t, err)

	models := doc["models"].(map[string]any)
	checkpoints := models["checkpoints"].([]any)
	require.Len(t, checkpoints, 2)
	assert.Equal(t, "m0", checkpoints[0].(map[string]any)["name"])
	assert.Equal(t, "m1", checkpoints[1].(map[string]any)["name"])

	loras := models["loras"].([]any)
	require.Len(t, loras, 1)
	assert.Equal(t, "lora0", loras[0].(map[string]any)["name"])
}

func TestResolveIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeVariant(t, dir, "base", `
name: base
version: "1.0"
nodes: [repoA]
`)
	writeVariant(t, dir, "child", `
name: child
extends: base
nodes: [repoB]
`)

	loader := NewLoader(dir)
	first, err := loader.Resolve("child")
	require.NoError(t, err)
	second, err := loader.Resolve("child")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveDoesNotMutateCachedAncestor(t *testing.T) {
	dir := t.TempDir()
	writeVariant(t, dir, "base", `
name: base
version: "1.0"
nodes: [repoA]
`)
	writeVariant(t, dir, "child", `
name: child
extends: base
nodes: [repoB]
`)

	loader := NewLoader(dir)
	_, err := loader.Resolve("child")
	require.NoError(t, err)

	base, err := loader.Resolve("base")
	require.NoError(t, err)
	assert.Equal(t, []any{"repoA"}, base["nodes"])
}

func TestInvalidateForcesReRead(t *testing.T) {
	dir := t.TempDir()
	writeVariant(t, dir, "base", `
name: base
version: "1.0"
`)

	loader := NewLoader(dir)
	doc, err := loader.Resolve("base")
	require.NoError(t, err)
	assert.Equal(t, "1.0", doc["version"])

	writeVariant(t, dir, "base", `
name: base
version: "2.0"
`)

	// Cached until invalidated.
	doc, err = loader.Resolve("base")
	require.NoError(t, err)
	assert.Equal(t, "1.0", doc["version"])

	loader.Invalidate()
	doc, err = loader.Resolve("base")
	require.NoError(t, err)
	assert.Equal(t, "2.0", doc["version"])
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeVariant(t, dir, "sdxl", "name: sdxl\n")
	writeVariant(t, dir, "base", "name: base\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	loader := NewLoader(dir)
	names, err := loader.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"base", "sdxl"}, names)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"base", "base"},
		{"config-base", "base"},
		{"config-base.yaml", "base"},
		{"base.yaml", "base"},
		{"base.yml", "base"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), tt.in)
	}
}
