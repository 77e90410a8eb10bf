package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// limitedClient blocks callers until the limiter grants a slot.
type limitedClient struct {
	next    Client
	limiter *rate.Limiter
}

// WithRateLimit wraps next so at most requestsPerMinute invocations start
// per minute, with a burst of one minute's budget spread over ten seconds.
// A non-positive budget returns next unchanged.
func WithRateLimit(next Client, requestsPerMinute int) Client {
	if requestsPerMinute <= 0 {
		return next
	}
	burst := max(1, requestsPerMinute/6)
	return &limitedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), burst),
	}
}

func (l *limitedClient) Name() string { return l.next.Name() }

func (l *limitedClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{Provider: l.next.Name(), Message: fmt.Sprintf("rate limit wait: %v", err), Code: 429}
	}
	return l.next.Complete(ctx, req)
}
