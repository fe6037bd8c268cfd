// Package nodes installs and manages ComfyUI custom node repositories.
package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/effekt/comfybuild/internal/logging"
	"github.com/effekt/comfybuild/pkg/types"
)

// commandTimeout bounds every git and pip invocation.
const commandTimeout = 10 * time.Minute

// Installer clones custom node repositories into the custom_nodes directory
// and installs their Python dependency manifests.
type Installer struct {
	nodesDir string
}

// InstalledNode describes a custom node checkout on disk.
type InstalledNode struct {
	Name            string `json:"name"`
	Path            string `json:"path"`
	URL             string `json:"url,omitempty"`
	Branch          string `json:"branch,omitempty"`
	Commit          string `json:"commit,omitempty"`
	HasRequirements bool   `json:"has_requirements,omitempty"`
}

// NewInstaller creates an installer rooted at baseDir. Nodes go into
// ComfyUI/custom_nodes when a ComfyUI checkout is present, custom_nodes
// otherwise.
func NewInstaller(baseDir string) *Installer {
	nodesDir := filepath.Join(baseDir, "custom_nodes")
	if info, err := os.Stat(filepath.Join(baseDir, "ComfyUI")); err == nil && info.IsDir() {
		nodesDir = filepath.Join(baseDir, "ComfyUI", "custom_nodes")
	}
	return &Installer{nodesDir: nodesDir}
}

// NodesDir returns the directory node repositories are cloned into.
func (i *Installer) NodesDir() string {
	return i.nodesDir
}

// InstallAll installs every node ref. Individual failures are logged and
// counted; the first error is returned after all refs were attempted.
func (i *Installer) InstallAll(ctx context.Context, refs []types.NodeRef) error {
	if len(refs) == 0 {
		logging.Info().Msg("no custom nodes to install")
		return nil
	}

	var firstErr error
	for _, ref := range refs {
		if err := i.Install(ctx, ref); err != nil {
			logging.Warn().Str("node", ref.RepoName()).Err(err).Msg("failed to install node")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Install clones a single node repository, or updates it in place when the
// target directory already exists.
func (i *Installer) Install(ctx context.Context, ref types.NodeRef) error {
	if ref.URL == "" {
		return fmt.Errorf("node ref has no url")
	}
	if err := os.MkdirAll(i.nodesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create nodes directory: %w", err)
	}

	name := ref.RepoName()
	target := filepath.Join(i.nodesDir, name)

	if _, err := os.Stat(target); err == nil {
		logging.Info().Str("node", name).Msg("node already installed, updating")
		return i.update(ctx, target, ref)
	}

	logging.Info().Str("node", name).Str("url", ref.URL).Msg("installing custom node")

	url := ref.URL
	if strings.HasPrefix(url, "https://github.com/") && !strings.HasSuffix(url, ".git") {
		url += ".git"
	}

	args := []string{"clone", "--depth", "1"}
	if ref.Branch != "" {
		args = append(args, "-b", ref.Branch)
	}
	args = append(args, url, target)

	if _, err := i.git(ctx, "", args...); err != nil {
		return fmt.Errorf("failed to clone %s: %w", name, err)
	}

	if ref.Commit != "" {
		if _, err := i.git(ctx, target, "fetch", "--depth", "1", "origin", ref.Commit); err != nil {
			return fmt.Errorf("failed to fetch commit %s: %w", ref.Commit, err)
		}
		if _, err := i.git(ctx, target, "checkout", ref.Commit); err != nil {
			return fmt.Errorf("failed to checkout commit %s: %w", ref.Commit, err)
		}
	}

	logging.Info().Str("node", name).Msg("node installed")
	return nil
}

// update refreshes an existing checkout: fetch, then move to the requested
// branch or commit. A failed fetch only warns, matching an offline rebuild.
func (i *Installer) update(ctx context.Context, target string, ref types.NodeRef) error {
	if _, err := i.git(ctx, target, "fetch", "--all"); err != nil {
		logging.Warn().Str("node", filepath.Base(target)).Err(err).Msg("failed to fetch updates")
		return nil
	}

	switch {
	case ref.Branch != "":
		if _, err := i.git(ctx, target, "checkout", ref.Branch); err != nil {
			return fmt.Errorf("failed to checkout branch %s: %w", ref.Branch, err)
		}
		if _, err := i.git(ctx, target, "pull", "origin", ref.Branch); err != nil {
			logging.Warn().Str("node", filepath.Base(target)).Err(err).Msg("failed to pull branch")
		}
	case ref.Commit != "":
		if _, err := i.git(ctx, target, "checkout", ref.Commit); err != nil {
			return fmt.Errorf("failed to checkout commit %s: %w", ref.Commit, err)
		}
	}
	return nil
}

// Remove deletes an installed node checkout.
func (i *Installer) Remove(name string) error {
	target := filepath.Join(i.nodesDir, name)
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("node not installed: %s", name)
	}
	logging.Info().Str("node", name).Msg("removing node")
	return os.RemoveAll(target)
}

// List returns every installed node with whatever git metadata is available.
func (i *Installer) List(ctx context.Context) ([]InstalledNode, error) {
	entries, err := os.ReadDir(i.nodesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read nodes directory: %w", err)
	}

	var nodes []InstalledNode
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(i.nodesDir, entry.Name())
		node := InstalledNode{Name: entry.Name(), Path: dir}

		if out, err := i.git(ctx, dir, "config", "--get", "remote.origin.url"); err == nil {
			node.URL = out
		}
		if out, err := i.git(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
			node.Branch = out
		}
		if out, err := i.git(ctx, dir, "rev-parse", "HEAD"); err == nil && len(out) >= 8 {
			node.Commit = out[:8]
		}
		if _, err := os.Stat(filepath.Join(dir, "requirements.txt")); err == nil {
			node.HasRequirements = true
		}

		nodes = append(nodes, node)
	}
	return nodes, nil
}

// ExportList writes the installed node inventory to a JSON file.
func (i *Installer) ExportList(ctx context.Context, path string) error {
	nodes, err := i.List(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(nodes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode node list: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ImportList installs every node named in a JSON inventory file.
func (i *Installer) ImportList(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read node list: %w", err)
	}
	var nodes []InstalledNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return fmt.Errorf("failed to decode node list: %w", err)
	}

	refs := make([]types.NodeRef, 0, len(nodes))
	for _, n := range nodes {
		if n.URL == "" {
			continue
		}
		refs = append(refs, types.NodeRef{URL: n.URL, Branch: n.Branch, Commit: n.Commit})
	}
	return i.InstallAll(ctx, refs)
}

// InstallAllRequirements runs pip for every node that ships a
// requirements.txt manifest.
func (i *Installer) InstallAllRequirements(ctx context.Context) error {
	entries, err := os.ReadDir(i.nodesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read nodes directory: %w", err)
	}

	var firstErr error
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		manifest := filepath.Join(i.nodesDir, entry.Name(), "requirements.txt")
		if _, err := os.Stat(manifest); err != nil {
			continue
		}
		logging.Info().Str("node", entry.Name()).Msg("installing node requirements")
		if err := i.pipInstall(ctx, manifest); err != nil {
			logging.Error().Str("node", entry.Name()).Err(err).Msg("failed to install requirements")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (i *Installer) pipInstall(ctx context.Context, manifest string) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pip", "install", "-r", manifest, "--quiet")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pip install failed: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// git runs a git command, optionally inside dir, with credential prompts
// disabled, and returns trimmed stdout.
func (i *Installer) git(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	out, err := cmd.Output()
	if err != nil {
		var stderr string
		if exitErr, ok := err.(*exec.ExitError); ok {
			stderr = strings.TrimSpace(string(exitErr.Stderr))
		}
		if stderr != "" {
			return "", fmt.Errorf("git %s: %s: %w", args[0], stderr, err)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return strings.TrimSpace(string(out)), nil
}
