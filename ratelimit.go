package mdtl

import (
	"context"
	"sync"
	"time"
)

// RateLimitConfig caps the rate of backend calls.
type RateLimitConfig struct {
	RequestsPerMinute int // Sustained rate; values below 1 mean 60
	BurstSize         int // Calls allowed back to back (default: RequestsPerMinute)
}

// RateLimiter is a token bucket shared by every worker of a run.
type RateLimiter struct {
	mu       sync.Mutex
	capacity float64
	perSec   float64
	tokens   float64
	updated  time.Time
}

// NewRateLimiter returns a limiter that starts with a full bucket.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rpm := cfg.RequestsPerMinute
	if rpm < 1 {
		rpm = 60
	}
	burst := cfg.BurstSize
	if burst < 1 {
		burst = rpm
	}
	return &RateLimiter{
		capacity: float64(burst),
		perSec:   float64(rpm) / 60,
		tokens:   float64(burst),
		updated:  time.Now(),
	}
}

// Wait takes a token, sleeping until one accrues. It returns ctx.Err() when
// ctx ends first.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		delay, ok := r.reserve()
		if ok {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire takes a token if one is available right now.
func (r *RateLimiter) TryAcquire() bool {
	_, ok := r.reserve()
	return ok
}

// Available reports the tokens currently in the bucket.
func (r *RateLimiter) Available() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advance(time.Now())
	return r.tokens
}

// reserve takes a token when one is available, otherwise it reports how long
// until the next one accrues.
func (r *RateLimiter) reserve() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advance(time.Now())
	if r.tokens >= 1 {
		r.tokens--
		return 0, true
	}
	missing := 1 - r.tokens
	return time.Duration(missing / r.perSec * float64(time.Second)), false
}

// advance credits the tokens earned since the last update. Callers hold mu.
func (r *RateLimiter) advance(now time.Time) {
	if elapsed := now.Sub(r.updated); elapsed > 0 {
		r.tokens = min(r.capacity, r.tokens+elapsed.Seconds()*r.perSec)
	}
	r.updated = now
}

// RateLimitedBackend makes every call to the wrapped backend wait for the
// limiter first.
type RateLimitedBackend struct {
	backend Backend
	limiter *RateLimiter
}

var _ Backend = (*RateLimitedBackend)(nil)

// NewRateLimitedBackend wraps backend with a limiter built from cfg.
func NewRateLimitedBackend(backend Backend, cfg RateLimitConfig) *RateLimitedBackend {
	return &RateLimitedBackend{backend: backend, limiter: NewRateLimiter(cfg)}
}

// Translate implements Backend. A wait cut short by ctx is not retryable.
func (b *RateLimitedBackend) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return "", &ProviderError{Backend: b.backend.Name(), Message: "waiting for rate limit", Cause: err}
	}
	return b.backend.Translate(ctx, req)
}

// Name reports the wrapped backend's name so cache keys stay stable.
func (b *RateLimitedBackend) Name() string {
	return b.backend.Name()
}

// Limiter exposes the limiter, mainly for tests.
func (b *RateLimitedBackend) Limiter() *RateLimiter {
	return b.limiter
}
