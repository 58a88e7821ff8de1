package dynlib

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cavaliergopher/grab/v3"
)

const releaseQueryTimeout = 10 * time.Second

// Downloader fetches prebuilt shared libraries from a project's GitHub
// releases, matching assets against the current platform and CPU.
type Downloader struct {
	client    *grab.Client
	apiURL    string
	base      string
	targetDir string
}

// NewDownloader creates a downloader for the GitHub repository repo
// (in "owner/name" form). base is the library's base name, the part
// between the platform prefix and extension: "crypto" matches
// libcrypto.so, libcrypto-avx2.so, crypto.dll and so on. Downloads are
// saved into targetDir.
func NewDownloader(repo, base, targetDir string) *Downloader {
	return &Downloader{
		client:    grab.NewClient(),
		apiURL:    fmt.Sprintf("https://api.github.com/repos/%s/releases/latest", repo),
		base:      base,
		targetDir: targetDir,
	}
}

// ReleaseInfo represents GitHub release information.
type ReleaseInfo struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
	} `json:"assets"`
}

// LibraryAsset represents a downloadable library build.
type LibraryAsset struct {
	Name     string
	URL      string
	Size     int64
	Variant  string
	Platform *PlatformInfo
}

// GetLatestRelease fetches the latest release info from GitHub.
func (d *Downloader) GetLatestRelease() (*ReleaseInfo, error) {
	client := &http.Client{Timeout: releaseQueryTimeout}
	resp, err := client.Get(d.apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github API returned status %d", resp.StatusCode)
	}

	var release ReleaseInfo
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode release info: %w", err)
	}

	return &release, nil
}

// SelectBestLibrary selects the release asset best suited to platform:
// the most capable variant the CPU supports, then the plain fallback
// build.
func (d *Downloader) SelectBestLibrary(release *ReleaseInfo, platform *PlatformInfo) (*LibraryAsset, error) {
	var candidates []LibraryAsset

	for _, asset := range release.Assets {
		if !d.matchesPlatform(asset.Name, platform) {
			continue
		}
		candidates = append(candidates, LibraryAsset{
			Name:     asset.Name,
			URL:      asset.BrowserDownloadURL,
			Size:     asset.Size,
			Variant:  detectVariant(asset.Name),
			Platform: platform,
		})
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("no suitable library found for platform %s/%s", platform.OS, platform.Arch)
	}

	for _, want := range platform.Variants() {
		for i := range candidates {
			if candidates[i].Variant == want {
				return &candidates[i], nil
			}
		}
	}
	return &candidates[0], nil
}

func (d *Downloader) matchesPlatform(filename string, platform *PlatformInfo) bool {
	return strings.Contains(filename, platform.Prefix+d.base) &&
		strings.HasSuffix(filename, platform.Extension)
}

func detectVariant(filename string) string {
	switch {
	case strings.Contains(filename, "avx512"):
		return "avx512"
	case strings.Contains(filename, "avx2"):
		return "avx2"
	case strings.Contains(filename, "avx"):
		return "avx"
	}
	return "fallback"
}

// ProgressCallback is called during download to report progress.
type ProgressCallback func(bytesComplete, totalBytes int64, mbps float64, done bool)

// Download downloads the asset with resume support.
func (d *Downloader) Download(asset *LibraryAsset) (string, error) {
	return d.DownloadWithProgress(asset, nil)
}

// DownloadWithProgress downloads the asset, reporting progress through
// the callback when one is given. A partial file from an earlier
// attempt is resumed rather than refetched.
func (d *Downloader) DownloadWithProgress(asset *LibraryAsset, progress ProgressCallback) (string, error) {
	if err := os.MkdirAll(d.targetDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create target directory: %w", err)
	}

	outputPath := filepath.Join(d.targetDir, asset.Name)
	req, err := grab.NewRequest(outputPath, asset.URL)
	if err != nil {
		return "", fmt.Errorf("failed to create download request: %w", err)
	}

	resp := d.client.Do(req)

	if progress != nil {
		start := time.Now()
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				elapsed := time.Since(start).Seconds()
				var mbps float64
				if elapsed > 0 {
					mbps = float64(resp.BytesComplete()) / (1 << 20) / elapsed
				}
				progress(resp.BytesComplete(), resp.Size(), mbps, false)
			case <-resp.Done:
				progress(resp.BytesComplete(), resp.Size(), 0, true)
				if err := resp.Err(); err != nil {
					return "", fmt.Errorf("download failed: %w", err)
				}
				return outputPath, nil
			}
		}
	}

	// Err blocks until the transfer finishes.
	if err := resp.Err(); err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	return outputPath, nil
}

// DownloadLatest downloads the latest library build for the current
// platform and returns its path.
func (d *Downloader) DownloadLatest() (string, error) {
	return d.DownloadLatestWithProgress(nil)
}

// DownloadLatestWithProgress downloads with a progress callback.
func (d *Downloader) DownloadLatestWithProgress(progress ProgressCallback) (string, error) {
	platform := DetectPlatform()

	release, err := d.GetLatestRelease()
	if err != nil {
		return "", err
	}

	asset, err := d.SelectBestLibrary(release, platform)
	if err != nil {
		return "", err
	}

	return d.DownloadWithProgress(asset, progress)
}
