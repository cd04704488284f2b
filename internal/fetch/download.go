// SPDX-License-Identifier: MPL-2.0

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/melonpatch/melonpatch/pkg/progress"
)

// DefaultTimeout bounds a whole download.
const DefaultTimeout = 5 * time.Minute

type (
	// StatusError is returned for non-2xx responses.
	StatusError struct {
		URL  string
		Code int
	}

	// Downloader streams remote files.
	Downloader struct {
		client    *http.Client
		timeout   time.Duration
		userAgent string
		logger    *log.Logger
		reporter  progress.Reporter
	}

	// DownloaderOption configures a Downloader.
	DownloaderOption func(*Downloader)
)

func (e *StatusError) Error() string {
	return fmt.Sprintf("downloading %s: unexpected status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}

// WithClient sets the HTTP client.
func WithClient(c *http.Client) DownloaderOption {
	return func(d *Downloader) { d.client = c }
}

// WithTimeout bounds each download. Zero disables the bound.
func WithTimeout(t time.Duration) DownloaderOption {
	return func(d *Downloader) { d.timeout = t }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) DownloaderOption {
	return func(d *Downloader) { d.logger = l }
}

// WithProgress sets the status sink.
func WithProgress(r progress.Reporter) DownloaderOption {
	return func(d *Downloader) { d.reporter = r }
}

// NewDownloader returns a Downloader with DefaultTimeout.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client:    http.DefaultClient,
		timeout:   DefaultTimeout,
		userAgent: "melonpatch/dev",
		logger:    log.New(io.Discard),
		reporter:  progress.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch copies the body at url into w and returns the number of bytes
// written. Percentages are reported when the server sends Content-Length.
func (d *Downloader) Fetch(ctx context.Context, url string, w io.Writer) (int64, error) {
	var n int64
	err := progress.Track(d.reporter, func(r progress.Reporter) (string, error) {
		var err error
		n, err = d.fetch(ctx, url, w, r)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("downloaded %d bytes", n), nil
	})
	return n, err
}

func (d *Downloader) fetch(ctx context.Context, url string, w io.Writer, r progress.Reporter) (int64, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	d.logger.Debug("downloading", "url", redactURL(url))
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("downloading %s: %w", redactURL(url), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{URL: redactURL(url), Code: resp.StatusCode}
	}

	pw := &progressWriter{w: w, total: resp.ContentLength, r: r}
	n, err := io.Copy(pw, resp.Body)
	if err != nil {
		return n, fmt.Errorf("downloading %s: %w", redactURL(url), err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return n, fmt.Errorf("downloading %s: got %d of %d bytes", redactURL(url), n, resp.ContentLength)
	}
	d.logger.Info("download complete", "url", redactURL(url), "bytes", n)
	return n, nil
}

// ToTempFile downloads url into a new file in dir and returns its path. The
// caller removes the file. When sha256 is not empty the download must match it.
func (d *Downloader) ToTempFile(ctx context.Context, url, dir, sha256 string) (_ string, err error) {
	tmp, err := os.CreateTemp(dir, "melonpatch-download-*.zip")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		if closeErr := tmp.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = d.Fetch(ctx, url, tmp); err != nil {
		return "", err
	}
	if sha256 != "" {
		if err = VerifyFile(tmp.Name(), sha256); err != nil {
			return "", err
		}
	}
	return tmp.Name(), nil
}

type progressWriter struct {
	w       io.Writer
	total   int64
	written int64
	last    int
	r       progress.Reporter
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	pct := progress.Unknown
	if p.total > 0 {
		pct = int(p.written * 100 / p.total)
	}
	if pct != p.last {
		p.last = pct
		p.r.Progress("downloading", pct)
	}
	return n, err
}
