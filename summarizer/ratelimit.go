package summarizer

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/BaSui01/chatflow/types"
)

// RateLimited wraps a provider with a token-bucket limiter so parallel
// chunk dispatch respects the backend's rate limits.
type RateLimited struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithRateLimit wraps p with an rps/burst limiter. rps <= 0 returns p
// unchanged.
func WithRateLimit(p Provider, rps float64, burst int) Provider {
	if rps <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		inner:   p,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *RateLimited) ID() string { return r.inner.ID() }

func (r *RateLimited) Summarize(ctx context.Context, req Request) (*Summary, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, types.NewError(types.ErrTimeout, "rate limiter wait aborted").
			WithProvider(r.inner.ID()).
			WithCause(err)
	}
	return r.inner.Summarize(ctx, req)
}
