// Package auth acquires and caches OAuth client-credential tokens for the
// serving workspace.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/caselink/internal/logging"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// Token endpoints tried in order on the workspace host.
var TokenPaths = []string{"/oidc/v1/token", "/oidc/token"}

const (
	// DefaultLifetime applies when the token response omits expires_in.
	DefaultLifetime = 55 * time.Minute
	// MinLifetime is the floor applied to any reported lifetime.
	MinLifetime = 30 * time.Second
	// RefreshSkew is how long before expiry a cached token stops being served.
	RefreshSkew = 60 * time.Second
)

// Credentials identify a client-credentials grant on a workspace host.
type Credentials struct {
	Host         string
	ClientID     string
	ClientSecret string
	Scope        string
}

// TokenSource hands out bearer tokens for a set of credentials.
type TokenSource interface {
	// Key identifies the cache slot the credentials map to.
	Key(c Credentials) string
	// Token returns a valid bearer token, exchanging credentials if needed.
	Token(ctx context.Context, c Credentials) (string, error)
	// Invalidate drops any cached token.
	Invalidate()
}

// cached is the single credential slot. It is replaced wholesale.
type cached struct {
	key       string
	token     string
	expiresAt time.Time
}

// TokenCache is a TokenSource backed by one process-wide slot.
// Concurrent refreshes for the same key are collapsed into one exchange.
type TokenCache struct {
	mu     sync.Mutex
	slot   *cached
	group  singleflight.Group
	client *http.Client
	now    func() time.Time
	log    *logging.Logger
}

// Option configures a TokenCache.
type Option func(*TokenCache)

// WithHTTPClient sets the client used for token exchanges.
func WithHTTPClient(c *http.Client) Option {
	return func(tc *TokenCache) { tc.client = c }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(tc *TokenCache) { tc.now = now }
}

// NewTokenCache creates an empty token cache.
func NewTokenCache(log *logging.Logger, opts ...Option) *TokenCache {
	tc := &TokenCache{
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
		log:    log.Sub("auth"),
	}
	for _, o := range opts {
		o(tc)
	}
	return tc
}

// Key returns the slot key for the credentials. The secret is not part of it.
func (tc *TokenCache) Key(c Credentials) string {
	return NormalizeHost(c.Host) + "|" + c.ClientID + "|" + c.Scope
}

// Token returns the cached token while it is more than RefreshSkew away
// from expiry, otherwise performs a fresh exchange.
func (tc *TokenCache) Token(ctx context.Context, c Credentials) (string, error) {
	key := tc.Key(c)
	if tok, ok := tc.lookup(key); ok {
		return tok, nil
	}

	v, err, shared := tc.group.Do(key, func() (any, error) {
		if tok, ok := tc.lookup(key); ok {
			return tok, nil
		}
		return tc.refresh(ctx, key, c)
	})
	if err != nil {
		return "", err
	}
	if shared {
		tc.log.Debug().Msg("joined in-flight token exchange")
	}
	return v.(string), nil
}

// Invalidate drops the cached token so the next call exchanges again.
func (tc *TokenCache) Invalidate() {
	tc.mu.Lock()
	tc.slot = nil
	tc.mu.Unlock()
}

// ExpiresAt reports the expiry of the cached token, if any.
func (tc *TokenCache) ExpiresAt() (time.Time, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.slot == nil {
		return time.Time{}, false
	}
	return tc.slot.expiresAt, true
}

func (tc *TokenCache) lookup(key string) (string, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tc.slot == nil || tc.slot.key != key {
		return "", false
	}
	if !tc.now().Before(tc.slot.expiresAt.Add(-RefreshSkew)) {
		return "", false
	}
	return tc.slot.token, true
}

func (tc *TokenCache) refresh(ctx context.Context, key string, c Credentials) (string, error) {
	host := NormalizeHost(c.Host)
	if host == "" {
		return "", errors.New("auth: workspace host is not configured")
	}
	if c.ClientID == "" || c.ClientSecret == "" {
		return "", errors.New("auth: client id and secret are required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, tc.client)

	var lastErr error
	for _, path := range TokenPaths {
		tok, err := tc.exchange(ctx, host+path, c)
		if err != nil {
			tc.log.Debug().Err(err).Str("path", path).Msg("token exchange failed, trying next path")
			lastErr = err
			continue
		}

		now := tc.now()
		lifetime := DefaultLifetime
		if !tok.Expiry.IsZero() {
			lifetime = tok.Expiry.Sub(now)
		}
		lifetime = max(lifetime, MinLifetime)

		slot := &cached{key: key, token: tok.AccessToken, expiresAt: now.Add(lifetime)}
		tc.mu.Lock()
		tc.slot = slot
		tc.mu.Unlock()

		tc.log.Info().
			Str("path", path).
			Dur("lifetime", lifetime).
			Msg("obtained workspace token")
		return tok.AccessToken, nil
	}
	return "", fmt.Errorf("auth: token exchange failed: %w", lastErr)
}

func (tc *TokenCache) exchange(ctx context.Context, tokenURL string, c Credentials) (*oauth2.Token, error) {
	cfg := clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	if c.Scope != "" {
		cfg.Scopes = []string{c.Scope}
	}
	tok, err := cfg.Token(ctx)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint %s returned no access_token", tokenURL)
	}
	return tok, nil
}

// NormalizeHost returns the host as an https origin without a trailing slash.
func NormalizeHost(h string) string {
	h = strings.TrimSpace(h)
	if h == "" {
		return ""
	}
	if !strings.HasPrefix(h, "http://") && !strings.HasPrefix(h, "https://") {
		h = "https://" + h
	}
	return strings.TrimRight(h, "/")
}
