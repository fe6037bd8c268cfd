// Package models downloads model weight files from direct URLs, the
// Hugging Face hub, gated repositories, and the CivitAI catalog, with a
// content-addressed cache in front of every network transfer.
package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/effekt/comfybuild/internal/logging"
	"github.com/effekt/comfybuild/pkg/types"
)

const (
	// networkVolume is the RunPod persistent storage mount. When present,
	// the model cache lives there so it survives pod restarts.
	networkVolume = "/runpod"

	requestTimeout = 30 * time.Second
	probeTimeout   = 10 * time.Second
)

// Categories lists the model directories ComfyUI knows about.
var Categories = []string{"checkpoints", "loras", "vae", "controlnet", "upscale_models"}

// Manager downloads the models of a variant into per-category directories.
type Manager struct {
	baseDir  string
	cacheDir string
	client   *http.Client

	hfToken      string
	civitaiToken string

	// civitaiBase is overridable for tests.
	civitaiBase string
	// hfBase is overridable for tests.
	hfBase string
}

// NewManager creates a manager rooted at baseDir. Tokens are read from
// HF_TOKEN and CIVITAI_API_KEY.
func NewManager(baseDir string) *Manager {
	cacheDir := filepath.Join(baseDir, ".cache", "models")
	if info, err := os.Stat(networkVolume); err == nil && info.IsDir() {
		cacheDir = filepath.Join(networkVolume, "cache", "models")
		logging.Info().Str("dir", cacheDir).Msg("using network volume for model cache")
	}

	// No overall client timeout: model transfers run for as long as they
	// need, bounded per request by header timeouts and caller contexts.
	client := &http.Client{
		Transport: &http.Transport{ResponseHeaderTimeout: requestTimeout},
	}

	return &Manager{
		baseDir:      baseDir,
		cacheDir:     cacheDir,
		client:       client,
		hfToken:      os.Getenv("HF_TOKEN"),
		civitaiToken: os.Getenv("CIVITAI_API_KEY"),
		civitaiBase:  "https://civitai.com",
		hfBase:       "https://huggingface.co",
	}
}

// CacheDir returns the content-addressed cache directory.
func (m *Manager) CacheDir() string {
	return m.cacheDir
}

// DownloadAll downloads every model in the mapping into
// outputDir/<category>/. Individual failures are logged; the first error is
// returned after all models were attempted.
func (m *Manager) DownloadAll(ctx context.Context, models map[string][]types.ModelRef, outputDir string) error {
	if outputDir == "" {
		outputDir = filepath.Join(m.baseDir, "ComfyUI", "models")
	}

	var firstErr error
	for category, refs := range models {
		categoryDir := filepath.Join(outputDir, category)
		if err := os.MkdirAll(categoryDir, 0o755); err != nil {
			return fmt.Errorf("failed to create category directory: %w", err)
		}
		for _, ref := range refs {
			if err := m.Download(ctx, ref, categoryDir); err != nil {
				logging.Error().Str("model", ref.Name).Str("category", category).Err(err).Msg("failed to download model")
				if firstErr == nil {
					firstErr = err
				}
			}
		}
	}
	return firstErr
}

// Download fetches a single model into outputDir, picking the transfer
// strategy from the URL shape.
func (m *Manager) Download(ctx context.Context, ref types.ModelRef, outputDir string) error {
	if ref.URL == "" {
		return fmt.Errorf("model %s has no url", ref.Name)
	}

	logging.Info().Str("model", ref.Name).Msg("downloading model")

	switch classify(ref.URL) {
	case sourceCivitai:
		return m.downloadCivitai(ctx, strings.TrimPrefix(ref.URL, "civitai:"), ref, outputDir)
	case sourceGated:
		return m.downloadGated(ctx, ref, outputDir)
	case sourceDirect:
		return m.downloadDirect(ctx, ref.URL, ref, outputDir)
	case sourceHuggingFace:
		return m.downloadHuggingFace(ctx, ref, outputDir)
	default:
		return fmt.Errorf("unknown model source: %s", ref.URL)
	}
}

// Verify compares a file's sha256 to the expected digest. An empty expected
// digest always verifies.
func Verify(path, expected string) (bool, error) {
	if expected == "" {
		return true, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}
	return strings.EqualFold(hex.EncodeToString(h.Sum(nil)), expected), nil
}

// DownloadedModel describes a model file already on disk.
type DownloadedModel struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// ListDownloaded returns the models on disk, organized by category.
func (m *Manager) ListDownloaded(modelsDir string) (map[string][]DownloadedModel, error) {
	if modelsDir == "" {
		modelsDir = filepath.Join(m.baseDir, "ComfyUI", "models")
	}

	out := make(map[string][]DownloadedModel)
	for _, category := range Categories {
		dir := filepath.Join(modelsDir, category)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			out[category] = append(out[category], DownloadedModel{
				Name: entry.Name(),
				Path: filepath.Join(dir, entry.Name()),
				Size: info.Size(),
			})
		}
	}
	return out, nil
}

// filename picks the destination file name: the explicit filename when
// given, otherwise the model name plus the URL's extension.
func filename(ref types.ModelRef, sourceURL string) string {
	if ref.Filename != "" {
		return ref.Filename
	}
	return ref.Name + extensionFromURL(sourceURL)
}

// extensionFromURL extracts the file extension from a URL path, defaulting
// to .safetensors.
func extensionFromURL(raw string) string {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	}
	if ext := filepath.Ext(path); ext != "" {
		return ext
	}
	return ".safetensors"
}
