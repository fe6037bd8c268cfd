package build

import (
	"bytes"
	"os"
	"path/filepath"
	"text/template"

	"github.com/effekt/comfybuild/pkg/types"
)

var startupTemplate = template.Must(template.New("startup").Parse(`#!/bin/bash
set -e

echo "Starting ComfyUI variant: {{.Name}}"

install_custom_nodes() {
    if [ ! -f /workspace/custom_nodes.json ]; then
        return
    fi
    echo "Installing custom nodes..."
    comfybuild install-nodes --from /workspace/custom_nodes.json
}

download_models() {
    if [ -f /workspace/models.json ] && [ "$DOWNLOAD_MODELS" = "true" ]; then
        echo "Downloading models..."
        comfybuild download --from /workspace/models.json
    fi
}

cd /workspace/ComfyUI

install_custom_nodes
download_models

if [ -d /workspace/workflows ]; then
    cp -r /workspace/workflows/* /workspace/ComfyUI/workflows/ 2>/dev/null || true
fi

ARGS="--listen 0.0.0.0 --port 8188"
if [ -n "$COMFYUI_ARGS" ]; then
    ARGS="$ARGS $COMFYUI_ARGS"
fi

echo "Starting ComfyUI with args: $ARGS"
exec python main.py $ARGS
`))

var dockerfileTemplate = template.Must(template.New("dockerfile").Parse(`FROM {{.BaseImage}}

ENV CONFIG_NAME={{.Name}}

COPY config.yaml /workspace/config.yaml
COPY custom_nodes.json /workspace/custom_nodes.json
COPY models.json /workspace/models.json
COPY workflows/ /workspace/ComfyUI/workflows/

COPY requirements.txt /workspace/variant-requirements.txt
RUN pip install -r /workspace/variant-requirements.txt || true

COPY startup.sh /workspace/variant-startup.sh
RUN chmod +x /workspace/variant-startup.sh
{{range $key, $value := .EnvVars}}
ENV {{$key}}={{$value}}{{end}}

ENTRYPOINT ["/workspace/variant-startup.sh"]
`))

var composeTemplate = template.Must(template.New("compose").Parse(`services:
  comfyui-{{.Name}}:
    build:
      context: .
      dockerfile: Dockerfile
    container_name: comfyui-{{.Name}}
    ports:
      - "8188:8188"
    volumes:
      - ./models:/workspace/ComfyUI/models
      - ./output:/workspace/ComfyUI/output
      - ./input:/workspace/ComfyUI/input
    environment:
      - DOWNLOAD_MODELS=${DOWNLOAD_MODELS:-false}
      - COMFYUI_ARGS=${COMFYUI_ARGS:-}
    deploy:
      resources:
        reservations:
          devices:
            - driver: nvidia
              count: all
              capabilities: [gpu]
    restart: unless-stopped
`))

func (b *Builder) writeStartupScript(variant *types.Variant, outputDir string) ([]string, error) {
	var buf bytes.Buffer
	if err := startupTemplate.Execute(&buf, variant); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(outputDir, "startup.sh"), buf.Bytes(), 0o755); err != nil {
		return nil, err
	}
	return []string{"startup.sh"}, nil
}

// writeDockerfile is a no-op unless the variant opts in with
// generate_dockerfile. Building the image itself is out of scope.
func (b *Builder) writeDockerfile(variant *types.Variant, outputDir string) ([]string, error) {
	if !variant.GenerateDockerfile {
		return nil, nil
	}

	v := *variant
	if v.BaseImage == "" {
		v.BaseImage = "effekt/runpod-comfyui:base"
	}

	var buf bytes.Buffer
	if err := dockerfileTemplate.Execute(&buf, &v); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(outputDir, "Dockerfile"), buf.Bytes(), 0o644); err != nil {
		return nil, err
	}
	return []string{"Dockerfile"}, nil
}

func (b *Builder) writeCompose(variant *types.Variant, outputDir string) ([]string, error) {
	var buf bytes.Buffer
	if err := composeTemplate.Execute(&buf, variant); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(outputDir, "docker-compose.yml"), buf.Bytes(), 0o644); err != nil {
		return nil, err
	}
	return []string{"docker-compose.yml"}, nil
}
