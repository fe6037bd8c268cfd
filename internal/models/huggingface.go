package models

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/effekt/comfybuild/pkg/types"
)

// hubExtensions are probed in order when a hub ID names a repository
// without a file path.
var hubExtensions = []string{".safetensors", ".ckpt", ".pt", ".pth", ".bin"}

// downloadHuggingFace resolves a bare hub ID ("owner/repo" or
// "owner/repo/path/to/file") to a resolve URL and hands off to the direct
// strategy.
func (m *Manager) downloadHuggingFace(ctx context.Context, ref types.ModelRef, outputDir string) error {
	parts := strings.Split(strings.Trim(ref.URL, "/"), "/")
	if len(parts) < 2 {
		return fmt.Errorf("invalid hub model id: %s", ref.URL)
	}

	repo := strings.Join(parts[:2], "/")
	if len(parts) > 2 {
		path := strings.Join(parts[2:], "/")
		return m.downloadDirect(ctx, m.resolveURL(repo, path), ref, outputDir)
	}

	// Repo-only ID: probe for a conventionally named model file.
	for _, ext := range hubExtensions {
		candidate := m.resolveURL(repo, "model"+ext)
		if m.urlExists(ctx, candidate) {
			probe := ref
			if probe.Filename == "" {
				probe.Filename = probe.Name + ext
			}
			return m.downloadDirect(ctx, candidate, probe, outputDir)
		}
	}
	return fmt.Errorf("no model file found in hub repo: %s", repo)
}

// downloadGated fetches a path from the gated collection repository. A
// bearer token is mandatory.
func (m *Manager) downloadGated(ctx context.Context, ref types.ModelRef, outputDir string) error {
	if m.hfToken == "" {
		return fmt.Errorf("HF_TOKEN required for gated repository access")
	}

	path := ref.URL
	if i := strings.Index(path, gatedCollection); i >= 0 {
		path = strings.TrimPrefix(path[i+len(gatedCollection):], "/")
	}
	return m.downloadDirect(ctx, m.resolveURL(gatedCollection, path), ref, outputDir)
}

func (m *Manager) resolveURL(repo, path string) string {
	return fmt.Sprintf("%s/%s/resolve/main/%s", m.hfBase, repo, path)
}

// urlExists probes a URL with a HEAD request.
func (m *Manager) urlExists(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	m.authorize(req)

	resp, err := m.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
