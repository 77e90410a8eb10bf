package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/soyeahso/caselink/internal/auth"
	"github.com/soyeahso/caselink/internal/logging"
)

// Invocation path templates tried in order; %s is the escaped endpoint name.
var InvocationPaths = []string{
	"/serving-endpoints/%s/invocations",
	"/api/2.0/serving-endpoints/%s/invocations",
}

// Environment variables consulted for a static token, in order.
var TokenEnvVars = []string{"DATABRICKS_TOKEN", "DATABRICKS_ACCESS_TOKEN", "DATABRICKS_PAT"}

const (
	defaultTemperature = 0.2
	defaultMaxTokens   = 600
	maxErrorBody       = 512
)

// ServingConfig configures a ServingClient.
type ServingConfig struct {
	Host         string
	Token        string
	ClientID     string
	ClientSecret string
	Scope        string
	Endpoint     string
	Temperature  *float64
	MaxTokens    int
}

// ServingClient invokes a model serving endpoint.
type ServingClient struct {
	cfg    ServingConfig
	tokens auth.TokenSource
	client *http.Client
	getenv func(string) string
	log    *logging.Logger
}

// ServingOption configures a ServingClient.
type ServingOption func(*ServingClient)

// WithHTTPClient sets the client used for invocations.
func WithHTTPClient(c *http.Client) ServingOption {
	return func(s *ServingClient) { s.client = c }
}

// WithEnv overrides environment lookups.
func WithEnv(getenv func(string) string) ServingOption {
	return func(s *ServingClient) { s.getenv = getenv }
}

// NewServingClient creates a client for the configured endpoint. tokens is
// used only when no static token resolves.
func NewServingClient(cfg ServingConfig, tokens auth.TokenSource, log *logging.Logger, opts ...ServingOption) *ServingClient {
	s := &ServingClient{
		cfg:    cfg,
		tokens: tokens,
		client: &http.Client{},
		getenv: os.Getenv,
		log:    log.Sub("llm.serving"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Name returns the endpoint name.
func (s *ServingClient) Name() string { return s.cfg.Endpoint }

// credential is a resolved bearer token and whether it came from an exchange.
type credential struct {
	token     string
	exchanged bool
	source    string
}

// resolveCredential picks the first available token: explicit config, then
// the token environment variables, then a client-credentials exchange.
func (s *ServingClient) resolveCredential(ctx context.Context) (credential, error) {
	if t := strings.TrimSpace(s.cfg.Token); t != "" {
		return credential{token: t, source: "config"}, nil
	}
	for _, name := range TokenEnvVars {
		if t := strings.TrimSpace(s.getenv(name)); t != "" {
			return credential{token: t, source: name}, nil
		}
	}
	if s.cfg.ClientID != "" && s.cfg.ClientSecret != "" && s.tokens != nil {
		tok, err := s.tokens.Token(ctx, auth.Credentials{
			Host:         s.cfg.Host,
			ClientID:     s.cfg.ClientID,
			ClientSecret: s.cfg.ClientSecret,
			Scope:        s.cfg.Scope,
		})
		if err != nil {
			return credential{}, s.authError(err)
		}
		return credential{token: tok, exchanged: true, source: "oauth"}, nil
	}
	return credential{}, s.authError(nil)
}

func (s *ServingClient) authError(cause error) *AuthError {
	return &AuthError{
		HostSet:         strings.TrimSpace(s.cfg.Host) != "",
		TokenSet:        s.cfg.Token != "",
		ClientIDSet:     s.cfg.ClientID != "",
		ClientSecretSet: s.cfg.ClientSecret != "",
		ManagedApp:      s.getenv("DATABRICKS_APP_NAME") != "" || s.getenv("DATABRICKS_APP_PORT") != "",
		Cause:           cause,
	}
}

// servingPayload is the chat body accepted by serving endpoints.
type servingPayload struct {
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Complete posts the request to each invocation path in turn and returns
// the first 2xx reply, normalized to text. When every path fails the most
// recent failure is returned as a *ProviderError.
func (s *ServingClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	host := auth.NormalizeHost(s.cfg.Host)
	if host == "" {
		return nil, s.authError(errors.New("workspace host is not configured"))
	}

	cred, err := s.resolveCredential(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(s.payload(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	var lastErr *ProviderError
	for _, tmpl := range InvocationPaths {
		path := fmt.Sprintf(tmpl, url.PathEscape(s.cfg.Endpoint))

		if cred.token == "" {
			if cred, err = s.resolveCredential(ctx); err != nil {
				return nil, err
			}
		}

		raw, status, err := s.post(ctx, host+path, cred.token, body)
		if err == nil {
			s.log.Debug().
				Str("path", path).
				Str("credential", cred.source).
				Dur("duration", time.Since(start)).
				Msg("invocation succeeded")
			return &CompletionResponse{
				Content:  Normalize(raw),
				Raw:      raw,
				Path:     path,
				Duration: time.Since(start),
			}, nil
		}

		lastErr = &ProviderError{Provider: s.Name(), Message: err.Error(), Code: status, Path: path}
		s.log.Warn().
			Str("path", path).
			Int("status", status).
			Err(err).
			Msg("invocation failed, trying next path")

		if cred.exchanged && (status == http.StatusUnauthorized || status == http.StatusForbidden) {
			s.tokens.Invalidate()
			cred = credential{}
		}
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		return nil, &ProviderError{Provider: s.Name(), Message: "no invocation paths configured"}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w (last attempt: %v)", err, lastErr)
	}
	return nil, lastErr
}

func (s *ServingClient) payload(req CompletionRequest) servingPayload {
	p := servingPayload{
		Messages:    req.Messages,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}
	switch {
	case req.Temperature != nil:
		p.Temperature = *req.Temperature
	case s.cfg.Temperature != nil:
		p.Temperature = *s.cfg.Temperature
	}
	switch {
	case req.MaxTokens > 0:
		p.MaxTokens = req.MaxTokens
	case s.cfg.MaxTokens > 0:
		p.MaxTokens = s.cfg.MaxTokens
	}
	return p
}

// post sends one invocation. It returns the body on 2xx, otherwise the
// status (0 on transport failure) and an error.
func (s *ServingClient) post(ctx context.Context, target, token string, body []byte) (json.RawMessage, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, fmt.Errorf("API error (%d): %s", resp.StatusCode, truncate(string(respBody), maxErrorBody))
	}
	if !json.Valid(respBody) {
		// Some gateways reply with bare text; keep it as a JSON string.
		quoted, _ := json.Marshal(string(respBody))
		return quoted, resp.StatusCode, nil
	}
	return respBody, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
