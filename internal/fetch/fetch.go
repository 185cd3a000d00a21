package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"tuffix/internal/logger"
)

// Fetcher downloads installer payloads for keywords.
type Fetcher interface {
	// Download saves the body of url at dest.
	Download(url, dest string) error
	// Release looks up a tagged GitHub release of repo (owner/name).
	Release(repo, tag string) (*Release, error)
	// Extract unpacks archive into dest and returns the top-level directory.
	Extract(archive, dest string) (string, error)
}

// Release represents the parts of a GitHub release JSON response we use.
type Release struct {
	TagName    string `json:"tag_name"`    // The release tag (e.g., v1.14.0)
	TarballURL string `json:"tarball_url"` // Source archive of the tagged tree
	Assets     []struct {
		Name               string `json:"name"`                 // Asset filename
		BrowserDownloadURL string `json:"browser_download_url"` // Direct download URL for the asset
	} `json:"assets"`
}

// HTTP is the Fetcher backed by net/http.
type HTTP struct {
	Client *http.Client
	// APIBase is the GitHub API root, overridable for tests.
	APIBase string
}

// NewHTTP returns an HTTP fetcher talking to api.github.com.
func NewHTTP() *HTTP {
	return &HTTP{
		Client:  &http.Client{Timeout: 10 * time.Minute},
		APIBase: "https://api.github.com",
	}
}

// Download implements Fetcher.
func (h *HTTP) Download(url, dest string) error {
	resp, err := h.Client.Get(url)
	if err != nil {
		return errors.Wrapf(err, "failed to GET %s", url)
	}
	// Ensure the response body stream is closed when the function returns
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn("[WARN] Failed to close response body: %v\n", cerr)
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("GET %s: HTTP status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", dest)
	}
	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "failed to create file %s", dest)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		return errors.Wrap(err, "failed to write response to file")
	}
	if err := out.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", dest)
	}

	logger.Debug("[DEBUG] Downloaded %s to: %s\n", url, dest)
	return nil
}

// Release implements Fetcher.
func (h *HTTP) Release(repo, tag string) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/tags/%s", h.APIBase, repo, tag)
	logger.Debug("[DEBUG] Fetching GitHub release from URL: %s\n", url)

	resp, err := h.Client.Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching release %s@%s", repo, tag)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Warn("[WARN] Failed to close HTTP response body: %v\n", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("GitHub release fetch failed for %s@%s: HTTP status %d", repo, tag, resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, errors.Wrapf(err, "failed to decode GitHub release JSON for %s@%s", repo, tag)
	}
	logger.Debug("[DEBUG] Release tag: %s with %d assets\n", release.TagName, len(release.Assets))
	return &release, nil
}

// Extract implements Fetcher.
func (h *HTTP) Extract(archive, dest string) (string, error) {
	return ExtractArchive(archive, dest)
}
