package ai

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// rateLimiter is a token bucket refilled continuously at capacity tokens per
// minute. Tokens are topped up lazily on acquire.
type rateLimiter struct {
	mu       sync.Mutex
	now      func() time.Time
	last     time.Time
	tokens   float64
	capacity float64
	poll     time.Duration
}

func newRateLimiter(requestsPerMinute int, now func() time.Time) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &rateLimiter{
		now:      now,
		last:     now(),
		tokens:   float64(requestsPerMinute),
		capacity: float64(requestsPerMinute),
		poll:     100 * time.Millisecond,
	}
}

func (rl *rateLimiter) tryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(rl.last)
	rl.last = now
	rl.tokens += elapsed.Minutes() * rl.capacity
	if rl.tokens > rl.capacity {
		rl.tokens = rl.capacity
	}
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// wait blocks until a token is available or ctx is done.
func (rl *rateLimiter) wait(ctx context.Context) error {
	if rl.tryAcquire() {
		return nil
	}
	ticker := time.NewTicker(rl.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-ticker.C:
			if rl.tryAcquire() {
				return nil
			}
		}
	}
}

type limitedProvider struct {
	next    Provider
	limiter *rateLimiter
}

func (p *limitedProvider) Generate(ctx context.Context, req Request) (string, error) {
	if err := p.limiter.wait(ctx); err != nil {
		return "", err
	}
	return p.next.Generate(ctx, req)
}
