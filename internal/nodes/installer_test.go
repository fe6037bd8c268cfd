package nodes

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/effekt/comfybuild/pkg/types"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(output))
}

// createNodeRepo builds a local git repository that stands in for a custom
// node repository on GitHub.
func createNodeRepo(t *testing.T, name string) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	dir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	runGit(t, dir, "init", "-b", "main")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "__init__.py"), []byte("NODE_CLASS_MAPPINGS = {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("numpy\n"), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", "Initial commit")

	return dir
}

func TestNewInstallerPrefersComfyUIDir(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "ComfyUI"), 0o755))

	i := NewInstaller(base)
	assert.Equal(t, filepath.Join(base, "ComfyUI", "custom_nodes"), i.NodesDir())
}

func TestNewInstallerFallbackDir(t *testing.T) {
	base := t.TempDir()
	i := NewInstaller(base)
	assert.Equal(t, filepath.Join(base, "custom_nodes"), i.NodesDir())
}

func TestInstallClonesRepo(t *testing.T) {
	src := createNodeRepo(t, "ComfyUI-TestNode")
	base := t.TempDir()
	i := NewInstaller(base)

	err := i.Install(context.Background(), types.NodeRef{URL: src})
	require.NoError(t, err)

	installed := filepath.Join(i.NodesDir(), "ComfyUI-TestNode")
	assert.FileExists(t, filepath.Join(installed, "__init__.py"))
}

func TestInstallIsIdempotent(t *testing.T) {
	src := createNodeRepo(t, "ComfyUI-TestNode")
	base := t.TempDir()
	i := NewInstaller(base)
	ctx := context.Background()

	require.NoError(t, i.Install(ctx, types.NodeRef{URL: src}))
	// Second install updates in place instead of failing on the existing dir.
	require.NoError(t, i.Install(ctx, types.NodeRef{URL: src}))
}

func TestInstallBranch(t *testing.T) {
	src := createNodeRepo(t, "ComfyUI-TestNode")
	runGit(t, src, "checkout", "-b", "dev")
	require.NoError(t, os.WriteFile(filepath.Join(src, "dev_only.py"), []byte("# dev\n"), 0o644))
	runGit(t, src, "add", ".")
	runGit(t, src, "commit", "-m", "dev change")
	runGit(t, src, "checkout", "main")

	base := t.TempDir()
	i := NewInstaller(base)

	err := i.Install(context.Background(), types.NodeRef{URL: src, Branch: "dev"})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(i.NodesDir(), "ComfyUI-TestNode", "dev_only.py"))
}

func TestInstallRejectsEmptyURL(t *testing.T) {
	i := NewInstaller(t.TempDir())
	err := i.Install(context.Background(), types.NodeRef{})
	require.Error(t, err)
}

func TestInstallAllContinuesAfterFailure(t *testing.T) {
	src := createNodeRepo(t, "ComfyUI-Good")
	base := t.TempDir()
	i := NewInstaller(base)

	err := i.InstallAll(context.Background(), []types.NodeRef{
		{URL: filepath.Join(t.TempDir(), "does-not-exist")},
		{URL: src},
	})
	require.Error(t, err)
	// The good node was still installed.
	assert.DirExists(t, filepath.Join(i.NodesDir(), "ComfyUI-Good"))
}

func TestListAndExport(t *testing.T) {
	src := createNodeRepo(t, "ComfyUI-TestNode")
	base := t.TempDir()
	i := NewInstaller(base)
	ctx := context.Background()

	require.NoError(t, i.Install(ctx, types.NodeRef{URL: src}))

	nodes, err := i.List(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "ComfyUI-TestNode", nodes[0].Name)
	assert.NotEmpty(t, nodes[0].URL)
	assert.NotEmpty(t, nodes[0].Commit)
	assert.True(t, nodes[0].HasRequirements)

	out := filepath.Join(t.TempDir(), "nodes.json")
	require.NoError(t, i.ExportList(ctx, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var exported []InstalledNode
	require.NoError(t, json.Unmarshal(data, &exported))
	require.Len(t, exported, 1)
	assert.Equal(t, "ComfyUI-TestNode", exported[0].Name)
}

func TestRemove(t *testing.T) {
	src := createNodeRepo(t, "ComfyUI-TestNode")
	base := t.TempDir()
	i := NewInstaller(base)

	require.NoError(t, i.Install(context.Background(), types.NodeRef{URL: src}))
	require.NoError(t, i.Remove("ComfyUI-TestNode"))
	assert.NoDirExists(t, filepath.Join(i.NodesDir(), "ComfyUI-TestNode"))

	err := i.Remove("ComfyUI-TestNode")
	require.Error(t, err)
}

func TestListEmptyDir(t *testing.T) {
	i := NewInstaller(t.TempDir())
	nodes, err := i.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, nodes)
}
