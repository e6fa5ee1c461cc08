package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pario-ai/briefbench/pkg/cache"
	"github.com/pario-ai/briefbench/pkg/config"
	"github.com/pario-ai/briefbench/pkg/extract"
)

// ErrFetch means article content could not be retrieved or extracted.
var ErrFetch = errors.New("fetch failed")

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 20 << 20

// Options configures a Fetcher.
type Options struct {
	Timeout    time.Duration
	UserAgent  string
	Extractor  extract.Extractor
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Fetcher resolves article text, preferring the cache.
type Fetcher struct {
	store     *cache.Store
	client    *http.Client
	timeout   time.Duration
	userAgent string
	extractor extract.Extractor
	logger    *zap.Logger
}

// New creates a Fetcher backed by store.
func New(store *cache.Store, opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = config.DefaultUserAgent
	}
	if opts.Extractor == nil {
		opts.Extractor = extract.Text{}
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Fetcher{
		store:     store,
		client:    opts.HTTPClient,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		extractor: opts.Extractor,
		logger:    opts.Logger,
	}
}

// Resolve returns the text of url. A usable cache entry is returned without
// touching the network; forceReuse accepts a cache entry of any age.
// Otherwise the page is fetched, extracted, normalized and cached.
func (f *Fetcher) Resolve(ctx context.Context, url string, forceReuse bool) (string, error) {
	key := cache.KeyFor(url)

	content, age, ok, err := f.store.Read(key)
	if err != nil {
		return "", err
	}
	if ok && f.store.IsFresh(age, forceReuse) {
		f.logger.Info("using cached content",
			zap.String("key", key),
			zap.Float64("age_hours", age),
			zap.Bool("forced", forceReuse))
		return content, nil
	}

	f.logger.Info("fetching article", zap.String("url", url))
	html, err := f.download(ctx, url)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrFetch, url, err)
	}

	text, err := f.extractor.Extract(url, html)
	if err != nil {
		return "", fmt.Errorf("%w: extract %s: %v", ErrFetch, url, err)
	}
	text = Normalize(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s: %v", ErrFetch, url, extract.ErrNoText)
	}

	if err := f.store.Write(key, text); err != nil {
		return "", err
	}
	f.logger.Info("cached article content", zap.String("key", key), zap.Int("chars", len(text)))
	return text, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			f.logger.Warn("failed to close response body", zap.String("url", url), zap.Error(cerr))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// Normalize collapses every whitespace run to a single space and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
