package loader

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/JonMunkholm/opendata/internal/core"
	"github.com/JonMunkholm/opendata/internal/logging"
	"github.com/JonMunkholm/opendata/internal/objectstore"
)

// ObjectGetter reads objects from an S3-compatible store.
type ObjectGetter interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Timeout      time.Duration // per request; 0 means no timeout
	RateLimitRPS float64       // 0 disables rate limiting
	CacheSize    int           // number of bodies kept; 0 disables caching
	MaxBytes     int64         // 0 disables the size limit
	UserAgent    string
}

// HTTPStatusError reports a response with status >= 400.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("http status %d for %s", e.StatusCode, e.URL)
}

// Unwrap lets errors.Is match core.ErrHTTPStatus.
func (e *HTTPStatusError) Unwrap() error { return core.ErrHTTPStatus }

// Fetcher returns the bytes behind http(s) URLs, s3://bucket/key references
// and local paths. Bodies are cached by reference, so a file listed twice, or
// a schema shared by two datasets, is downloaded once per run.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	cache     *lru.Cache[string, []byte]
	objects   ObjectGetter
	maxBytes  int64
	userAgent string
}

// NewFetcher builds a fetcher. objects may be nil when no object store is
// configured; s3:// references then fail.
func NewFetcher(cfg FetcherConfig, objects ObjectGetter) (*Fetcher, error) {
	f := &Fetcher{
		client:    &http.Client{Timeout: cfg.Timeout},
		objects:   objects,
		maxBytes:  cfg.MaxBytes,
		userAgent: cfg.UserAgent,
	}
	if cfg.RateLimitRPS > 0 {
		f.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []byte](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("init fetch cache: %w", err)
		}
		f.cache = cache
	}
	return f, nil
}

// Fetch returns the content behind ref.
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	log := logging.WithFields(ctx, "url", ref)
	if f.cache != nil {
		if b, ok := f.cache.Get(ref); ok {
			log.Debug("fetch cache hit", "bytes", len(b))
			return b, nil
		}
	}

	start := time.Now()
	var (
		b   []byte
		err error
	)
	switch scheme(ref) {
	case "http", "https":
		b, err = f.fetchHTTP(ctx, ref)
	case "s3":
		b, err = f.fetchObject(ctx, ref)
	case "file":
		b, err = f.fetchFile(strings.TrimPrefix(ref, "file://"))
	default:
		b, err = f.fetchFile(ref)
	}
	if err != nil {
		return nil, err
	}

	log.Debug("fetched", "bytes", len(b), "duration_ms", time.Since(start).Milliseconds())
	if f.cache != nil {
		f.cache.Add(ref, b)
	}
	return b, nil
}

func scheme(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || len(u.Scheme) < 2 {
		// Windows drive letters parse as one-letter schemes.
		return ""
	}
	return strings.ToLower(u.Scheme)
}

func (f *Fetcher) fetchHTTP(ctx context.Context, ref string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", ref, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &HTTPStatusError{URL: ref, StatusCode: resp.StatusCode}
	}

	counter := core.NewCountingReader(resp.Body)
	b, err := core.ReadAllLimited(core.SkipBOM(counter), f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w (read %d bytes)", ref, err, counter.BytesRead)
	}
	return b, nil
}

func (f *Fetcher) fetchObject(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := objectstore.ParseURL(ref)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if f.objects == nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, objectstore.ErrNotConfigured)
	}
	b, err := f.objects.Get(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	b, err = core.ReadAllLimited(core.SkipBOM(bytes.NewReader(b)), f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref, err)
	}
	return b, nil
}

func (f *Fetcher) fetchFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer file.Close()

	b, err := core.ReadAllLimited(core.SkipBOM(file), f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	return b, nil
}
