package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/effekt/comfybuild/pkg/types"
)

// civitaiModel is the slice of the catalog API response we consume.
type civitaiModel struct {
	ModelVersions []struct {
		Files []struct {
			Name        string `json:"name"`
			Primary     bool   `json:"primary"`
			DownloadURL string `json:"downloadUrl"`
		} `json:"files"`
	} `json:"modelVersions"`
}

// downloadCivitai looks a model up in the CivitAI catalog, picks the
// primary file of the latest version, and hands off to the direct strategy.
func (m *Manager) downloadCivitai(ctx context.Context, modelID string, ref types.ModelRef, outputDir string) error {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	apiURL := fmt.Sprintf("%s/api/v1/models/%s", m.civitaiBase, modelID)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, apiURL, nil)
	if err != nil {
		return err
	}
	if m.civitaiToken != "" {
		req.Header.Set("Authorization", "Bearer "+m.civitaiToken)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("civitai lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("civitai lookup for model %s returned status %d", modelID, resp.StatusCode)
	}

	var model civitaiModel
	if err := json.NewDecoder(resp.Body).Decode(&model); err != nil {
		return fmt.Errorf("failed to decode civitai response: %w", err)
	}
	if len(model.ModelVersions) == 0 {
		return fmt.Errorf("no versions found for civitai model %s", modelID)
	}

	latest := model.ModelVersions[0]
	if len(latest.Files) == 0 {
		return fmt.Errorf("no files found for civitai model %s", modelID)
	}

	file := latest.Files[0]
	for _, f := range latest.Files {
		if f.Primary {
			file = f
			break
		}
	}
	if file.DownloadURL == "" {
		return fmt.Errorf("no download url for civitai model %s", modelID)
	}

	downloadURL := file.DownloadURL
	if m.civitaiToken != "" {
		downloadURL += "?token=" + m.civitaiToken
	}

	if ref.Filename == "" {
		if file.Name != "" {
			ref.Filename = file.Name
		} else {
			ref.Filename = ref.Name + ".safetensors"
		}
	}
	return m.downloadDirect(ctx, downloadURL, ref, outputDir)
}
