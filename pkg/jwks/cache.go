// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cognito-authorizer.
//
// go-cognito-authorizer is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package jwks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jeremyhahn/go-cognito-authorizer/pkg/adapters/logger"
	"github.com/jeremyhahn/go-cognito-authorizer/pkg/metrics"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	// DefaultCacheTTL is how long a fetched key set is served without
	// refetching.
	DefaultCacheTTL = time.Hour

	// DefaultFetchTimeout bounds a single key set download.
	DefaultFetchTimeout = 5 * time.Second

	// DefaultRefreshRateLimit is the minimum interval between refreshes
	// triggered by an unknown kid.
	DefaultRefreshRateLimit = 5 * time.Minute

	// DefaultRetryBackoff is how long a failed download suppresses further
	// downloads for lookups against an expired or missing set.
	DefaultRetryBackoff = 30 * time.Second

	// maxKeySetBytes caps the size of a downloaded key set document.
	maxKeySetBytes = 1 << 20
)

// Options configures a CachingResolver.
type Options struct {
	// URL is the JWK Set endpoint (required).
	URL string

	// HTTPClient is used for downloads (default: a client with FetchTimeout)
	HTTPClient *http.Client

	// CacheTTL is how long a fetched set is considered fresh
	CacheTTL time.Duration

	// FetchTimeout bounds a single download
	FetchTimeout time.Duration

	// RefreshRateLimit is the minimum interval between unknown-kid refreshes
	RefreshRateLimit time.Duration

	// RetryBackoff is the quiet period after a failed download
	RetryBackoff time.Duration

	// Logger receives fetch and cache events (default: discard)
	Logger logger.Logger

	// Now overrides the clock used for cache freshness
	Now func() time.Time
}

// CachingResolver fetches, caches and refreshes a remote key set. It is
// safe for concurrent use.
type CachingResolver struct {
	url     string
	client  *http.Client
	ttl     time.Duration
	timeout time.Duration
	limiter *rate.Limiter
	backoff time.Duration
	group   singleflight.Group
	log     logger.Logger
	now     func() time.Time

	mu        sync.RWMutex
	set       *KeySet
	fetchedAt time.Time
	failedAt  time.Time
}

// NewCachingResolver creates a resolver for the key set at opts.URL. No
// request is made until the first lookup or Prefetch.
func NewCachingResolver(opts *Options) (*CachingResolver, error) {
	if opts == nil || opts.URL == "" {
		return nil, fmt.Errorf("jwks: url is required")
	}
	u, err := url.Parse(opts.URL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return nil, fmt.Errorf("jwks: invalid url %q", opts.URL)
	}

	r := &CachingResolver{
		url:     opts.URL,
		client:  opts.HTTPClient,
		ttl:     opts.CacheTTL,
		timeout: opts.FetchTimeout,
		backoff: opts.RetryBackoff,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if r.ttl <= 0 {
		r.ttl = DefaultCacheTTL
	}
	if r.timeout <= 0 {
		r.timeout = DefaultFetchTimeout
	}
	if r.backoff <= 0 {
		r.backoff = DefaultRetryBackoff
	}
	if r.client == nil {
		r.client = &http.Client{Timeout: r.timeout}
	}
	if r.log == nil {
		r.log = logger.Discard()
	}
	if r.now == nil {
		r.now = time.Now
	}

	interval := opts.RefreshRateLimit
	if interval <= 0 {
		interval = DefaultRefreshRateLimit
	}
	r.limiter = rate.NewLimiter(rate.Every(interval), 1)

	return r, nil
}

// URL returns the key set endpoint.
func (r *CachingResolver) URL() string {
	return r.url
}

// SigningKey implements Resolver. A fresh cached set answers directly. An
// unknown kid triggers a refresh when the rate limiter allows one. If a
// refresh fails while the previously cached set still holds the kid, that
// key is served. After a failed download no further download is attempted
// for RetryBackoff; lookups in that window are answered from the stale set
// or fail with ErrKeySetUnavailable.
func (r *CachingResolver) SigningKey(ctx context.Context, kid string) (*SigningKey, error) {
	if kid == "" {
		return nil, fmt.Errorf("%w: token has no kid", ErrKeyNotFound)
	}
	log := r.log.WithContext(ctx)

	cached, fresh := r.snapshot()
	if cached != nil && fresh {
		if key, ok := cached.Lookup(kid); ok {
			return key, nil
		}
		if !r.limiter.Allow() {
			log.Debug("unknown kid, refresh throttled", logger.String("kid", kid))
			return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
		}
		log.Info("unknown kid, refreshing key set", logger.String("kid", kid))
	} else if r.backingOff() {
		if key, ok := cached.Lookup(kid); ok {
			return key, nil
		}
		return nil, fmt.Errorf("%w: retrying after recent fetch failure", ErrKeySetUnavailable)
	}

	set, err := r.refresh(ctx)
	if err != nil {
		if key, ok := cached.Lookup(kid); ok {
			log.Warn("key set refresh failed, serving cached key",
				logger.String("kid", kid),
				logger.Error(err))
			return key, nil
		}
		return nil, err
	}

	if key, ok := set.Lookup(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, kid)
}

// Keys implements KeySource, fetching the set if none is fresh.
func (r *CachingResolver) Keys(ctx context.Context) ([]*SigningKey, error) {
	if err := r.Prefetch(ctx); err != nil {
		return nil, err
	}
	set, _ := r.snapshot()
	return set.Keys(), nil
}

// Prefetch makes sure a fresh key set is cached.
func (r *CachingResolver) Prefetch(ctx context.Context) error {
	if _, fresh := r.snapshot(); fresh {
		return nil
	}
	_, err := r.refresh(ctx)
	return err
}

func (r *CachingResolver) snapshot() (*KeySet, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.set == nil {
		return nil, false
	}
	return r.set, r.now().Sub(r.fetchedAt) < r.ttl
}

// backingOff reports whether the last download failed within the retry
// backoff window.
func (r *CachingResolver) backingOff() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.failedAt.IsZero() && r.now().Sub(r.failedAt) < r.backoff
}

// refresh downloads the set once no matter how many callers arrive
// concurrently. Callers stop waiting when their own ctx ends.
func (r *CachingResolver) refresh(ctx context.Context) (*KeySet, error) {
	ch := r.group.DoChan(r.url, func() (any, error) {
		return r.fetch(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrKeySetUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeySet), nil
	}
}

func (r *CachingResolver) fetch(ctx context.Context) (*KeySet, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	log := r.log.WithContext(ctx)
	start := time.Now()

	set, err := r.download(ctx)
	duration := time.Since(start).Seconds()
	if err != nil {
		r.mu.Lock()
		r.failedAt = r.now()
		r.mu.Unlock()

		metrics.RecordKeySetFetch(metrics.StatusError, duration, 0)
		log.Error("key set fetch failed", logger.String("url", r.url), logger.Error(err))
		return nil, err
	}

	r.mu.Lock()
	r.set = set
	r.fetchedAt = r.now()
	r.failedAt = time.Time{}
	r.mu.Unlock()

	metrics.RecordKeySetFetch(metrics.StatusSuccess, duration, set.Len())
	log.Debug("key set fetched",
		logger.String("url", r.url),
		logger.Int("keys", set.Len()),
		logger.Duration("duration", time.Since(start)))
	return set, nil
}

func (r *CachingResolver) download(ctx context.Context) (*KeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeySetUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeySetUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", ErrKeySetUnavailable, r.url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxKeySetBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrKeySetUnavailable, err)
	}

	set, err := ParseSet(body)
	if err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("%w: %s contains no usable signing keys", ErrKeySetUnavailable, r.url)
	}
	return set, nil
}
