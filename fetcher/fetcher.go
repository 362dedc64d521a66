// Package fetcher downloads landing pages over a pooled HTTP client and keeps
// recent bodies in a TTL cache.
package fetcher

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	ErrInvalidURL = eris.New("fetcher: invalid url")
	ErrStatus     = eris.New("fetcher: unexpected status")
	ErrTooLarge   = eris.New("fetcher: body exceeds limit")
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

// Config controls the client and the cache.
type Config struct {
	Timeout         time.Duration
	MaxBodyBytes    int64
	UserAgent       string
	CacheTTL        time.Duration
	MaxCacheEntries int
	CleanupInterval time.Duration
}

// DefaultConfig mirrors the configuration defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:         15 * time.Second,
		MaxBodyBytes:    5 << 20,
		UserAgent:       "LandingVerdict/1.0",
		CacheTTL:        30 * time.Minute,
		MaxCacheEntries: 1000,
		CleanupInterval: 5 * time.Minute,
	}
}

// Recorder receives cache hit/miss events.
type Recorder interface {
	RecordCache(hit bool)
}

// Page is a fetched document.
type Page struct {
	URL        string    `json:"url"`
	FinalURL   string    `json:"final_url"`
	StatusCode int       `json:"status_code"`
	HTML       string    `json:"-"`
	Size       int       `json:"size"`
	FetchedAt  time.Time `json:"fetched_at"`
	FromCache  bool      `json:"from_cache"`
}

type cacheEntry struct {
	page      *Page
	timestamp time.Time
}

// CacheStats describes the current cache.
type CacheStats struct {
	Entries    int           `json:"entries"`
	MaxEntries int           `json:"max_entries"`
	TTL        time.Duration `json:"ttl"`
}

// Fetcher fetches pages. It is safe for concurrent use.
type Fetcher struct {
	client   *http.Client
	cfg      Config
	recorder Recorder

	mu    sync.RWMutex
	cache map[string]cacheEntry

	stop     chan struct{}
	stopOnce sync.Once
}

// New builds a Fetcher and starts its cleanup loop. rec may be nil.
func New(cfg Config, rec Recorder) *Fetcher {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.MaxCacheEntries <= 0 {
		cfg.MaxCacheEntries = def.MaxCacheEntries
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	f := &Fetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		cfg:      cfg,
		recorder: rec,
		cache:    make(map[string]cacheEntry),
		stop:     make(chan struct{}),
	}
	go f.periodicCleanup()
	return f
}

// Close stops the cleanup loop and releases idle connections.
func (f *Fetcher) Close() {
	f.stopOnce.Do(func() {
		close(f.stop)
		f.client.CloseIdleConnections()
	})
}

// Fetch returns the page at rawURL, from cache when fresh. A zero CacheTTL
// disables caching.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	key := generateCacheKey(rawURL)
	if f.cfg.CacheTTL > 0 {
		f.mu.RLock()
		entry, found := f.cache[key]
		f.mu.RUnlock()
		if found && time.Since(entry.timestamp) < f.cfg.CacheTTL {
			f.record(true)
			cached := *entry.page
			cached.FromCache = true
			return &cached, nil
		}
		f.record(false)
	}

	page, err := f.download(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	if f.cfg.CacheTTL > 0 {
		f.mu.Lock()
		f.cache[key] = cacheEntry{page: page, timestamp: time.Now()}
		over := len(f.cache) > f.cfg.MaxCacheEntries
		f.mu.Unlock()
		if over {
			f.cleanup()
		}
	}
	return page, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(ErrInvalidURL, "%s: %v", rawURL, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Wrapf(ErrStatus, "%s returned %d", rawURL, resp.StatusCode)
	}

	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	n, err := io.Copy(buf, io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1))
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", rawURL)
	}
	if n > f.cfg.MaxBodyBytes {
		return nil, eris.Wrapf(ErrTooLarge, "%s larger than %d bytes", rawURL, f.cfg.MaxBodyBytes)
	}

	zap.L().Debug("page fetched",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int64("bytes", n),
		zap.Duration("elapsed", time.Since(start)))

	return &Page{
		URL:        rawURL,
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		HTML:       buf.String(),
		Size:       int(n),
		FetchedAt:  time.Now(),
	}, nil
}

// CacheStats reports the current cache size and limits.
func (f *Fetcher) CacheStats() CacheStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return CacheStats{
		Entries:    len(f.cache),
		MaxEntries: f.cfg.MaxCacheEntries,
		TTL:        f.cfg.CacheTTL,
	}
}

// ClearCache drops every cached page.
func (f *Fetcher) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = make(map[string]cacheEntry)
}

func (f *Fetcher) record(hit bool) {
	if f.recorder != nil {
		f.recorder.RecordCache(hit)
	}
}

func (f *Fetcher) periodicCleanup() {
	ticker := time.NewTicker(f.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.cleanup()
		case <-f.stop:
			return
		}
	}
}

// cleanup removes expired entries, then the oldest ones while over the size limit.
func (f *Fetcher) cleanup() {
	now := time.Now()

	f.mu.Lock()
	defer f.mu.Unlock()

	for key, entry := range f.cache {
		if now.Sub(entry.timestamp) > f.cfg.CacheTTL {
			delete(f.cache, key)
		}
	}
	if len(f.cache) <= f.cfg.MaxCacheEntries {
		return
	}

	type aged struct {
		key       string
		timestamp time.Time
	}
	entries := make([]aged, 0, len(f.cache))
	for key, entry := range f.cache {
		entries = append(entries, aged{key, entry.timestamp})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].timestamp.Before(entries[j].timestamp)
	})
	for i := 0; i < len(entries)-f.cfg.MaxCacheEntries; i++ {
		delete(f.cache, entries[i].key)
	}
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return eris.Wrapf(ErrInvalidURL, "%q: %v", rawURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return eris.Wrapf(ErrInvalidURL, "%q must be an absolute http(s) url", rawURL)
	}
	return nil
}

// generateCacheKey creates a unique key for the URL
func generateCacheKey(rawURL string) string {
	hash := md5.Sum([]byte(rawURL))
	return hex.EncodeToString(hash[:])
}
