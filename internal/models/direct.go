package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"

	"github.com/effekt/comfybuild/internal/logging"
	"github.com/effekt/comfybuild/pkg/types"
)

// maxDownloadRetries caps the backoff retry loop on a single transfer.
const maxDownloadRetries = 3

// progressInterval is how many bytes pass between progress log lines.
const progressInterval int64 = 256 << 20

// downloadDirect fetches a URL into outputDir, going through the cache:
// an existing destination wins, then a cache hit, then the network. A
// successful network transfer lands in the cache before being copied to the
// destination, so a later build with a different destination name reuses it.
func (m *Manager) downloadDirect(ctx context.Context, sourceURL string, ref types.ModelRef, outputDir string) error {
	name := filename(ref, sourceURL)
	outputPath := filepath.Join(outputDir, name)

	if _, err := os.Stat(outputPath); err == nil {
		logging.Info().Str("model", ref.Name).Str("path", outputPath).Msg("model already exists")
		return nil
	}

	cachePath := m.cachePath(sourceURL, name)
	if info, err := os.Stat(cachePath); err == nil && info.Size() > 0 {
		logging.Info().Str("model", ref.Name).Str("cache", cachePath).Msg("model found in cache")
		if err := copyFile(cachePath, outputPath); err != nil {
			logging.Warn().Err(err).Msg("failed to copy from cache, downloading fresh")
		} else {
			return m.checkDigest(outputPath, ref)
		}
	}

	if err := os.MkdirAll(m.cacheDir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	fetch := func() error {
		return m.fetchToCache(ctx, sourceURL, cachePath, name)
	}
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxDownloadRetries), ctx)
	if err := backoff.Retry(fetch, bo); err != nil {
		return fmt.Errorf("failed to download %s: %w", sourceURL, err)
	}

	if err := copyFile(cachePath, outputPath); err != nil {
		return fmt.Errorf("failed to copy into place: %w", err)
	}
	logging.Info().Str("model", ref.Name).Str("path", outputPath).Msg("model downloaded")
	return m.checkDigest(outputPath, ref)
}

// fetchToCache streams a URL into the cache through a temp file, renaming
// only after a complete transfer.
func (m *Manager) fetchToCache(ctx context.Context, sourceURL, cachePath, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return backoff.Permanent(err)
	}
	m.authorize(req)

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d for %s", resp.StatusCode, sourceURL)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	if resp.ContentLength > 0 {
		logging.Info().
			Str("file", name).
			Str("size", humanize.Bytes(uint64(resp.ContentLength))).
			Msg("transfer started")
	}

	tmpPath := cachePath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create cache file: %w", err))
	}

	written, err := io.Copy(f, &progressReader{r: resp.Body, name: name, total: resp.ContentLength})
	closeErr := f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("transfer interrupted after %s: %w", humanize.Bytes(uint64(written)), err)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return closeErr
	}

	if err := os.Rename(tmpPath, cachePath); err != nil {
		os.Remove(tmpPath)
		return backoff.Permanent(fmt.Errorf("failed to finalize cache entry: %w", err))
	}
	return nil
}

// authorize injects the bearer token for Hugging Face hosts.
func (m *Manager) authorize(req *http.Request) {
	if m.hfToken != "" && strings.Contains(req.URL.Host, "huggingface.co") {
		req.Header.Set("Authorization", "Bearer "+m.hfToken)
	}
}

// cachePath keys cache entries by URL hash so the same source is reused
// even when destination file names differ between builds.
func (m *Manager) cachePath(sourceURL, name string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return filepath.Join(m.cacheDir, hex.EncodeToString(sum[:])[:16]+"_"+name)
}

func (m *Manager) checkDigest(path string, ref types.ModelRef) error {
	ok, err := Verify(path, ref.SHA256)
	if err != nil {
		return fmt.Errorf("failed to verify %s: %w", ref.Name, err)
	}
	if !ok {
		return fmt.Errorf("sha256 mismatch for %s", ref.Name)
	}
	return nil
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

// progressReader logs transfer progress at fixed byte intervals.
type progressReader struct {
	r     io.Reader
	name  string
	total int64
	read  int64
	mark  int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if p.read-p.mark >= progressInterval {
		p.mark = p.read
		ev := logging.Debug().Str("file", p.name).Str("received", humanize.Bytes(uint64(p.read)))
		if p.total > 0 {
			ev = ev.Str("total", humanize.Bytes(uint64(p.total)))
		}
		ev.Msg("transfer progress")
	}
	return n, err
}
