package image

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
)

// maxFetchBytes bounds remote downloads.
const maxFetchBytes = 64 << 20

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	Timeout   time.Duration
	CacheTTL  time.Duration
	UserAgent string
	Client    *http.Client
}

// Fetcher resolves and decodes image references. Decoded file and http
// images are cached by reference.
type Fetcher struct {
	client    *http.Client
	cache     *cache.Cache
	userAgent string
	logger    *slog.Logger
}

// NewFetcher creates a fetcher. Zero options fall back to a 15s timeout and
// a 10 minute cache.
func NewFetcher(opts FetcherOptions, logger *slog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Fetcher{
		client:    client,
		cache:     cache.New(opts.CacheTTL, 2*opts.CacheTTL),
		userAgent: opts.UserAgent,
		logger:    logger,
	}
}

// Fetch returns the decoded image for ref.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (*Layer, error) {
	src, err := Resolve(ref)
	if err != nil {
		return nil, err
	}
	if src.Kind != KindDataURL {
		if v, ok := f.cache.Get(src.Ref); ok {
			return v.(*Layer), nil
		}
	}

	data, err := f.read(ctx, src)
	if err != nil {
		return nil, err
	}
	l, err := DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", src.Kind, shortRef(src.Ref), err)
	}
	l.Ref = src.Ref

	if src.Kind != KindDataURL {
		f.cache.Set(src.Ref, l, cache.DefaultExpiration)
	}
	f.logger.Debug("image fetched", "kind", src.Kind, "ref", shortRef(src.Ref), "format", l.Format,
		"width", l.Width(), "height", l.Height())
	return l, nil
}

// Forget drops ref from the cache.
func (f *Fetcher) Forget(ref string) {
	f.cache.Delete(ref)
}

func (f *Fetcher) read(ctx context.Context, src Source) ([]byte, error) {
	switch src.Kind {
	case KindDataURL:
		data, _, err := DecodeDataURL(src.Ref)
		return data, err
	case KindFile:
		data, err := os.ReadFile(src.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		return data, nil
	case KindHTTP:
		return f.get(ctx, src.Location)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, src.Ref)
	}
}

func (f *Fetcher) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch image: %s: status %d", u, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	return data, nil
}

// shortRef keeps data URLs out of log lines.
func shortRef(ref string) string {
	if len(ref) > 64 {
		return ref[:61] + "..."
	}
	return ref
}
