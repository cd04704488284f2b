// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// DefaultOwner and DefaultRepo name the loader's release repository.
	DefaultOwner = "LavaGang"
	DefaultRepo  = "MelonLoader"

	defaultPerPage = 30

	// maxPages bounds pagination.
	maxPages = 3

	// maxJSONResponseBytes bounds API response size (10 MB).
	maxJSONResponseBytes = 10 << 20
)

var (
	// ErrReleaseNotFound is returned when a requested release tag does not exist.
	ErrReleaseNotFound = errors.New("release not found")

	// ErrAssetNotFound is returned when a release has no asset with the wanted name.
	ErrAssetNotFound = errors.New("release asset not found")
)

type (
	// RateLimitError is returned when the GitHub API rate limit is exceeded.
	RateLimitError struct {
		Limit     int
		Remaining int
		ResetAt   time.Time
	}

	// Release is a published loader release.
	Release struct {
		TagName    string
		Name       string
		Prerelease bool
		Draft      bool
		Assets     []Asset
		HTMLURL    string
	}

	// Asset is a downloadable release file.
	Asset struct {
		Name               string
		BrowserDownloadURL string
		Size               int64
		ContentType        string
	}

	githubRelease struct {
		TagName    string        `json:"tag_name"`
		Name       string        `json:"name"`
		Prerelease bool          `json:"prerelease"`
		Draft      bool          `json:"draft"`
		HTMLURL    string        `json:"html_url"`
		Assets     []githubAsset `json:"assets"`
	}

	githubAsset struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
		ContentType        string `json:"content_type"`
	}

	// ReleaseClient queries the GitHub Releases API of the loader repository.
	ReleaseClient struct {
		httpClient *http.Client
		owner      string
		repo       string
		baseURL    string // overridable for tests
		token      string
		userAgent  string
	}

	// ClientOption configures a ReleaseClient.
	ClientOption func(*ReleaseClient)
)

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded (%d remaining, resets at %s)",
		e.Remaining, e.ResetAt.UTC().Format("15:04 UTC"))
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(g *ReleaseClient) { g.httpClient = c }
}

// WithBaseURL overrides the GitHub API base URL.
func WithBaseURL(base string) ClientOption {
	return func(g *ReleaseClient) { g.baseURL = strings.TrimRight(base, "/") }
}

// WithToken sets a GitHub token for authenticated requests.
func WithToken(token string) ClientOption {
	return func(g *ReleaseClient) { g.token = token }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(g *ReleaseClient) { g.userAgent = ua }
}

// WithRepo sets the repository as "owner/name". Invalid values are ignored.
func WithRepo(ownerRepo string) ClientOption {
	return func(g *ReleaseClient) {
		owner, repo, ok := strings.Cut(ownerRepo, "/")
		if ok && owner != "" && repo != "" {
			g.owner, g.repo = owner, repo
		}
	}
}

// NewReleaseClient returns a client for the default loader repository.
func NewReleaseClient(opts ...ClientOption) *ReleaseClient {
	c := &ReleaseClient{
		httpClient: http.DefaultClient,
		owner:      DefaultOwner,
		repo:       DefaultRepo,
		baseURL:    "https://api.github.com",
		userAgent:  "melonpatch/dev",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListReleases returns stable releases sorted by semantic version, newest
// first. Pagination is followed up to maxPages.
func (c *ReleaseClient) ListReleases(ctx context.Context) ([]Release, error) {
	pageURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d",
		c.baseURL, c.owner, c.repo, defaultPerPage)

	var all []Release
	for page := 0; page < maxPages && pageURL != ""; page++ {
		resp, err := c.doRequest(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("listing releases: %w", err)
		}
		if err := checkRateLimit(resp); err != nil {
			_ = resp.Body.Close()
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("listing releases: unexpected status %d", resp.StatusCode)
		}

		releases, err := parseReleases(io.LimitReader(resp.Body, maxJSONResponseBytes))
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("listing releases: %w", err)
		}
		for i := range releases {
			if !releases[i].Draft && !releases[i].Prerelease {
				all = append(all, releases[i])
			}
		}
		pageURL = parseLinkHeader(resp.Header.Get("Link"))
	}

	slices.SortStableFunc(all, func(a, b Release) int {
		return semver.Compare(b.TagName, a.TagName)
	})
	return all, nil
}

// Latest returns the newest stable release.
func (c *ReleaseClient) Latest(ctx context.Context) (*Release, error) {
	releases, err := c.ListReleases(ctx)
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return nil, ErrReleaseNotFound
	}
	return &releases[0], nil
}

// GetReleaseByTag fetches one release by tag, e.g. "v0.6.5".
func (c *ReleaseClient) GetReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	tagURL := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s",
		c.baseURL, c.owner, c.repo, url.PathEscape(tag))

	resp, err := c.doRequest(ctx, tagURL)
	if err != nil {
		return nil, fmt.Errorf("getting release %s: %w", tag, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkRateLimit(resp); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrReleaseNotFound, tag)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("getting release %s: unexpected status %d", tag, resp.StatusCode)
	}

	var gr githubRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&gr); err != nil {
		return nil, fmt.Errorf("getting release %s: decoding response: %w", tag, err)
	}
	r := toRelease(gr)
	return &r, nil
}

// Resolve returns the download URL of the named asset in the release tagged
// tag, or in the latest release when tag is empty.
func (c *ReleaseClient) Resolve(ctx context.Context, tag, assetName string) (Asset, error) {
	var (
		rel *Release
		err error
	)
	if tag == "" {
		rel, err = c.Latest(ctx)
	} else {
		rel, err = c.GetReleaseByTag(ctx, tag)
	}
	if err != nil {
		return Asset{}, err
	}
	return rel.FindAsset(assetName)
}

// FindAsset returns the asset called name, compared case-insensitively.
func (r *Release) FindAsset(name string) (Asset, error) {
	for _, a := range r.Assets {
		if strings.EqualFold(a.Name, name) {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: %s in %s", ErrAssetNotFound, name, r.TagName)
}

func (c *ReleaseClient) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)

	// The token is only sent to the API host, never to redirect targets.
	if c.token != "" && isGitHubHost(req.URL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	return resp, nil
}

// checkRateLimit returns a RateLimitError when X-RateLimit-Remaining is zero.
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}
	rem, err := strconv.Atoi(remaining)
	if err != nil || rem > 0 {
		return nil //nolint:nilerr // Non-numeric header is non-fatal.
	}

	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck // Best-effort header parsing.
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck // Best-effort header parsing.
	return &RateLimitError{Limit: limit, ResetAt: time.Unix(resetUnix, 0)}
}

func parseReleases(body io.Reader) ([]Release, error) {
	var raw []githubRelease
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding releases: %w", err)
	}
	releases := make([]Release, 0, len(raw))
	for _, gr := range raw {
		releases = append(releases, toRelease(gr))
	}
	return releases, nil
}

// parseLinkHeader extracts the rel="next" URL from a Link header.
func parseLinkHeader(header string) string {
	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}

func toRelease(gr githubRelease) Release {
	assets := make([]Asset, 0, len(gr.Assets))
	for _, ga := range gr.Assets {
		assets = append(assets, Asset(ga))
	}
	return Release{
		TagName:    gr.TagName,
		Name:       gr.Name,
		Prerelease: gr.Prerelease,
		Draft:      gr.Draft,
		Assets:     assets,
		HTMLURL:    gr.HTMLURL,
	}
}

func isGitHubHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(reqURL.Host, base.Host) {
		return true
	}
	return strings.EqualFold(base.Host, "api.github.com") && strings.EqualFold(reqURL.Host, "github.com")
}

// redactURL strips query and fragment for use in error messages.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
