// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"
)

func TestListReleases_FiltersAndSorts(t *testing.T) {
	t.Parallel()

	releases := []githubRelease{
		{TagName: "v0.6.1"},
		{TagName: "v0.7.0-ci.1", Prerelease: true},
		{TagName: "v0.6.5"},
		{TagName: "v0.8.0", Draft: true},
		{TagName: "v0.5.7"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/LavaGang/MelonLoader/releases" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewEncoder(w).Encode(releases); err != nil {
			t.Errorf("encoding releases: %v", err)
		}
	}))
	defer srv.Close()

	got, err := NewReleaseClient(WithBaseURL(srv.URL)).ListReleases(context.Background())
	if err != nil {
		t.Fatalf("ListReleases() error = %v", err)
	}
	want := []string{"v0.6.5", "v0.6.1", "v0.5.7"}
	if len(got) != len(want) {
		t.Fatalf("got %d releases, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].TagName != want[i] {
			t.Errorf("release[%d] = %s, want %s", i, got[i].TagName, want[i])
		}
	}
}

func TestListReleases_Pagination(t *testing.T) {
	t.Parallel()

	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			_ = json.NewEncoder(w).Encode([]githubRelease{{TagName: "v0.5.0"}})
			return
		}
		w.Header().Set("Link", "<"+srvURL+r.URL.Path+"?page=2>; rel=\"next\"")
		_ = json.NewEncoder(w).Encode([]githubRelease{{TagName: "v0.6.0"}})
	}))
	defer srv.Close()
	srvURL = srv.URL

	got, err := NewReleaseClient(WithBaseURL(srv.URL)).ListReleases(context.Background())
	if err != nil {
		t.Fatalf("ListReleases() error = %v", err)
	}
	if len(got) != 2 || got[0].TagName != "v0.6.0" || got[1].TagName != "v0.5.0" {
		t.Errorf("got %+v", got)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	rel := githubRelease{
		TagName: "v0.6.5",
		Assets: []githubAsset{
			{Name: "MelonLoader.x86.zip", BrowserDownloadURL: "https://example.test/x86.zip"},
			{Name: "MelonLoader.x64.zip", BrowserDownloadURL: "https://example.test/x64.zip", Size: 42},
		},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/LavaGang/MelonLoader/releases/tags/v0.6.5":
			_ = json.NewEncoder(w).Encode(rel)
		case "/repos/LavaGang/MelonLoader/releases":
			_ = json.NewEncoder(w).Encode([]githubRelease{rel})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewReleaseClient(WithBaseURL(srv.URL))

	asset, err := client.Resolve(context.Background(), "v0.6.5", "melonloader.x64.zip")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if asset.BrowserDownloadURL != "https://example.test/x64.zip" || asset.Size != 42 {
		t.Errorf("asset = %+v", asset)
	}

	if _, err := client.Resolve(context.Background(), "", "MelonLoader.x86.zip"); err != nil {
		t.Errorf("Resolve(latest) error = %v", err)
	}
	if _, err := client.Resolve(context.Background(), "v0.6.5", "missing.zip"); !errors.Is(err, ErrAssetNotFound) {
		t.Errorf("Resolve(missing asset) error = %v, want ErrAssetNotFound", err)
	}
	if _, err := client.Resolve(context.Background(), "v9.9.9", "MelonLoader.x64.zip"); !errors.Is(err, ErrReleaseNotFound) {
		t.Errorf("Resolve(missing tag) error = %v, want ErrReleaseNotFound", err)
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	reset := time.Now().Add(time.Hour).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewReleaseClient(WithBaseURL(srv.URL)).ListReleases(context.Background())
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("error = %v, want RateLimitError", err)
	}
	if rl.Limit != 60 {
		t.Errorf("Limit = %d, want 60", rl.Limit)
	}
}

func TestTokenOnlySentToAPIHost(t *testing.T) {
	t.Parallel()

	api, _ := url.Parse("https://api.github.com/repos")
	cdn, _ := url.Parse("https://objects.githubusercontent.com/x")
	web, _ := url.Parse("https://github.com/LavaGang/MelonLoader/releases/download/v0.6.5/a.zip")

	if !isGitHubHost(api, "https://api.github.com") {
		t.Error("api host should be trusted")
	}
	if !isGitHubHost(web, "https://api.github.com") {
		t.Error("github.com should be trusted for downloads")
	}
	if isGitHubHost(cdn, "https://api.github.com") {
		t.Error("CDN host must not receive the token")
	}
}

func TestWithRepo(t *testing.T) {
	t.Parallel()

	c := NewReleaseClient(WithRepo("someone/fork"))
	if c.owner != "someone" || c.repo != "fork" {
		t.Errorf("repo = %s/%s", c.owner, c.repo)
	}
	c = NewReleaseClient(WithRepo("nonsense"))
	if c.owner != DefaultOwner || c.repo != DefaultRepo {
		t.Errorf("invalid repo should keep defaults, got %s/%s", c.owner, c.repo)
	}
}
