// Package build assembles the output artifacts for a resolved variant:
// manifests, rendered config, workflows, and startup scripting.
package build

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/effekt/comfybuild/internal/logging"
	"github.com/effekt/comfybuild/pkg/types"
)

// Builder writes build artifacts for resolved variants.
type Builder struct {
	baseDir      string
	workflowsDir string
}

// Options control optional artifacts.
type Options struct {
	// Compose also writes a docker-compose.yml.
	Compose bool
}

// Result describes a finished build.
type Result struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	OutputDir string    `json:"output_dir"`
	Artifacts []string  `json:"artifacts"`
}

// NewBuilder creates a builder rooted at baseDir; workflow sources are read
// from baseDir/workflows.
func NewBuilder(baseDir string) *Builder {
	return &Builder{
		baseDir:      baseDir,
		workflowsDir: filepath.Join(baseDir, "workflows"),
	}
}

// Build assembles all artifacts for the variant into outputDir, defaulting
// to <base>/build/<name>. It returns the build result, which is also
// persisted as build.json in the output directory.
func (b *Builder) Build(variant *types.Variant, outputDir string, opts Options) (*Result, error) {
	if outputDir == "" {
		outputDir = filepath.Join(b.baseDir, "build", variant.Name)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &Result{
		ID:        ulid.Make().String(),
		Name:      variant.Name,
		Version:   variant.Version,
		CreatedAt: time.Now().UTC(),
		OutputDir: outputDir,
	}

	steps := []struct {
		name string
		fn   func(*types.Variant, string) ([]string, error)
	}{
		{"nodes manifest", b.writeNodes},
		{"requirements", b.writeRequirements},
		{"models manifest", b.writeModels},
		{"config", b.writeConfig},
		{"workflows", b.copyWorkflows},
		{"startup script", b.writeStartupScript},
		{"dockerfile", b.writeDockerfile},
	}
	if opts.Compose {
		steps = append(steps, struct {
			name string
			fn   func(*types.Variant, string) ([]string, error)
		}{"compose file", b.writeCompose})
	}

	for _, step := range steps {
		artifacts, err := step.fn(variant, outputDir)
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", step.name, err)
		}
		result.Artifacts = append(result.Artifacts, artifacts...)
	}

	manifest, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode build manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "build.json"), manifest, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write build manifest: %w", err)
	}

	logging.Info().
		Str("variant", variant.Name).
		Str("build", result.ID).
		Str("dir", outputDir).
		Msg("build complete")
	return result, nil
}

func (b *Builder) writeNodes(variant *types.Variant, outputDir string) ([]string, error) {
	if len(variant.Nodes) == 0 {
		logging.Info().Msg("no custom nodes to process")
		return nil, nil
	}
	data, err := json.MarshalIndent(variant.Nodes, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(outputDir, "custom_nodes.json"), data, 0o644); err != nil {
		return nil, err
	}
	return []string{"custom_nodes.json"}, nil
}

func (b *Builder) writeRequirements(variant *types.Variant, outputDir string) ([]string, error) {
	if len(variant.Requirements) == 0 {
		return nil, nil
	}

	// Deduplicate while keeping first-seen order, so base requirements
	// stay ahead of variant additions.
	seen := make(map[string]bool, len(variant.Requirements))
	var buf bytes.Buffer
	for _, req := range variant.Requirements {
		if req == "" || seen[req] {
			continue
		}
		seen[req] = true
		buf.WriteString(req)
		buf.WriteByte('\n')
	}

	if err := os.WriteFile(filepath.Join(outputDir, "requirements.txt"), buf.Bytes(), 0o644); err != nil {
		return nil, err
	}
	return []string{"requirements.txt"}, nil
}

func (b *Builder) writeModels(variant *types.Variant, outputDir string) ([]string, error) {
	if len(variant.Models) == 0 {
		return nil, nil
	}
	data, err := json.MarshalIndent(variant.Models, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(outputDir, "models.json"), data, 0o644); err != nil {
		return nil, err
	}
	return []string{"models.json"}, nil
}

func (b *Builder) writeConfig(variant *types.Variant, outputDir string) ([]string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(variant); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(outputDir, "config.yaml"), buf.Bytes(), 0o644); err != nil {
		return nil, err
	}
	return []string{"config.yaml"}, nil
}

// copyWorkflows copies each workflow entry into outputDir/workflows.
// Entries are doublestar patterns relative to the workflows directory, so
// "video/*.json" copies a whole family. A pattern matching nothing is a
// warning, not a failure.
func (b *Builder) copyWorkflows(variant *types.Variant, outputDir string) ([]string, error) {
	if len(variant.Workflows) == 0 {
		return nil, nil
	}

	dest := filepath.Join(outputDir, "workflows")
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, err
	}

	fsys := os.DirFS(b.workflowsDir)
	var artifacts []string
	for _, pattern := range variant.Workflows {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("bad workflow pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			logging.Warn().Str("workflow", pattern).Msg("workflow not found")
			continue
		}
		for _, match := range matches {
			target := filepath.Join(dest, match)
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return nil, err
			}
			if err := copyFile(filepath.Join(b.workflowsDir, match), target); err != nil {
				return nil, err
			}
			logging.Info().Str("workflow", match).Msg("copied workflow")
			artifacts = append(artifacts, filepath.Join("workflows", match))
		}
	}
	return artifacts, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}
