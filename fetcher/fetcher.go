// Package fetcher retrieves remote HTML documents for scoring. It applies a
// per-attempt timeout, bounded retries with exponential backoff, and can
// reduce a page to its main article with go-readability.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

var (
	// ErrInvalidURL is returned for URLs that are not absolute http(s) URLs
	ErrInvalidURL = errors.New("invalid URL")
	// ErrTooLarge is returned when a response body exceeds the size limit
	ErrTooLarge = errors.New("response body too large")
)

// StatusError reports a non-success HTTP status
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// Options configures a Fetcher
type Options struct {
	Timeout     time.Duration
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	UserAgent   string
	MaxBytes    int64
}

// Page is a fetched document plus the facts extracted from it
type Page struct {
	URL             string     `json:"url"`
	FinalURL        string     `json:"finalUrl"`
	StatusCode      int        `json:"statusCode"`
	HTML            string     `json:"-"`
	Title           string     `json:"title,omitempty"`
	Byline          string     `json:"byline,omitempty"`
	Excerpt         string     `json:"excerpt,omitempty"`
	SiteName        string     `json:"siteName,omitempty"`
	PublishedTime   *time.Time `json:"publishedTime,omitempty"`
	MetaDescription string     `json:"metaDescription,omitempty"`
	Attempts        int        `json:"attempts"`
	Readable        bool       `json:"readable"`
}

// Fetcher downloads pages over HTTP
type Fetcher struct {
	client *http.Client
	opts   Options
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a Fetcher with a pooled transport
func New(opts Options) *Fetcher {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return NewWithClient(&http.Client{Transport: transport}, opts)
}

// NewWithClient creates a Fetcher around an existing client
func NewWithClient(client *http.Client, opts Options) *Fetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "CGSAnalyzer/1.0"
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff < opts.BaseBackoff {
		opts.MaxBackoff = opts.BaseBackoff
	}
	return &Fetcher{client: client, opts: opts, sleep: sleepContext}
}

// ValidateURL checks that raw is an absolute http or https URL
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	return u, nil
}

// Fetch downloads a page, retrying transient failures. When readable is
// set the HTML is replaced by the main article content.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, readable bool) (*Page, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}

	var (
		body    []byte
		final   string
		status  int
		lastErr error
	)
	attempts := 0
	for attempt := 0; attempt <= f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := f.sleep(ctx, f.Backoff(attempt)); err != nil {
				return nil, err
			}
		}
		attempts++

		body, final, status, lastErr = f.once(ctx, u.String())
		if lastErr == nil {
			break
		}
		if !retryable(lastErr) || ctx.Err() != nil {
			break
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("failed to fetch %s after %d attempt(s): %w", u, attempts, lastErr)
	}

	page := &Page{
		URL:        u.String(),
		FinalURL:   final,
		StatusCode: status,
		HTML:       string(body),
		Attempts:   attempts,
	}
	page.MetaDescription = metaDescription(body)

	if readable {
		if err := applyReadability(page, final); err != nil {
			return nil, err
		}
	}
	return page, nil
}

// once performs a single attempt bounded by the per-attempt timeout
func (f *Fetcher) once(ctx context.Context, target string) ([]byte, string, int, error) {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", 0, err
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, "", resp.StatusCode, &StatusError{StatusCode: resp.StatusCode}
	}

	reader := io.Reader(resp.Body)
	if f.opts.MaxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.opts.MaxBytes+1)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, "", resp.StatusCode, err
	}
	if f.opts.MaxBytes > 0 && int64(buf.Len()) > f.opts.MaxBytes {
		return nil, "", resp.StatusCode, ErrTooLarge
	}

	return buf.Bytes(), resp.Request.URL.String(), resp.StatusCode, nil
}

// Backoff returns the delay before the given retry attempt (1-based):
// BaseBackoff doubled per attempt and capped at MaxBackoff.
func (f *Fetcher) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	d := f.opts.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= f.opts.MaxBackoff {
			return f.opts.MaxBackoff
		}
	}
	if d > f.opts.MaxBackoff {
		return f.opts.MaxBackoff
	}
	return d
}

// retryable reports whether an attempt error is worth retrying: transport
// failures, 429 and 5xx responses
func retryable(err error) bool {
	if errors.Is(err, ErrTooLarge) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func metaDescription(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	content, _ := doc.Find("meta[name='description']").Attr("content")
	return strings.TrimSpace(content)
}

func applyReadability(page *Page, pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(page.HTML), u)
	if err != nil {
		return fmt.Errorf("failed to extract article: %w", err)
	}

	page.HTML = article.Content
	page.Title = article.Title
	page.Byline = article.Byline
	page.Excerpt = article.Excerpt
	page.SiteName = article.SiteName
	page.PublishedTime = article.PublishedTime
	page.Readable = true
	return nil
}
