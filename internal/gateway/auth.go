package gateway

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/soyeahso/caselink/internal/config"
)

// Gateway auth modes.
const (
	AuthNone     = "none"
	AuthToken    = "token"
	AuthPassword = "password"
)

// Environment fallbacks for the gateway secrets.
const (
	envGatewayToken    = "CASELINK_GATEWAY_TOKEN"
	envGatewayPassword = "CASELINK_GATEWAY_PASSWORD"
)

// AuthResult is the outcome of checking one set of credentials.
type AuthResult struct {
	OK     bool   `json:"ok"`
	Method string `json:"method,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ResolvedAuth is the gateway's effective auth: a mode and its secrets.
type ResolvedAuth struct {
	Mode     string
	Token    string
	Password string
}

// ResolveAuth merges config with the environment. A secret in the config
// file wins over the environment. Without an explicit mode, a password
// selects password mode, a token selects token mode, and nothing leaves the
// gateway open.
func ResolveAuth(cfg config.GatewayAuth) ResolvedAuth {
	auth := ResolvedAuth{
		Mode:     cfg.Mode,
		Token:    firstSet(cfg.Token, os.Getenv(envGatewayToken)),
		Password: firstSet(cfg.Password, os.Getenv(envGatewayPassword)),
	}
	if auth.Mode != "" {
		return auth
	}
	switch {
	case auth.Password != "":
		auth.Mode = AuthPassword
	case auth.Token != "":
		auth.Mode = AuthToken
	default:
		auth.Mode = AuthNone
	}
	return auth
}

func firstSet(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// expected returns the secret the mode compares against and the client
// field that must match it.
func (a ResolvedAuth) expected(client *ConnectAuth) (want, got string, ok bool) {
	switch a.Mode {
	case AuthToken:
		return a.Token, client.Token, true
	case AuthPassword:
		return a.Password, client.Password, true
	}
	return "", "", false
}

// Authorize checks client credentials against the gateway's auth. Reasons
// are safe to send back to the client.
func Authorize(serverAuth ResolvedAuth, clientAuth *ConnectAuth) AuthResult {
	if serverAuth.Mode == AuthNone {
		return AuthResult{OK: true, Method: AuthNone}
	}
	if clientAuth == nil {
		return AuthResult{Reason: "no credentials provided"}
	}

	want, got, known := serverAuth.expected(clientAuth)
	switch {
	case !known:
		return AuthResult{Reason: "unknown auth mode: " + serverAuth.Mode}
	case want == "":
		return AuthResult{Reason: "server " + serverAuth.Mode + " not configured"}
	case got == "":
		return AuthResult{Reason: serverAuth.Mode + " required"}
	case !safeEqual(got, want):
		return AuthResult{Reason: serverAuth.Mode + "_mismatch"}
	}
	return AuthResult{OK: true, Method: serverAuth.Mode}
}

// authFromRequest reads "Authorization: Bearer <secret>". The secret is
// the token or the password depending on the gateway mode.
func authFromRequest(serverAuth ResolvedAuth, r *http.Request) *ConnectAuth {
	secret, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	secret = strings.TrimSpace(secret)
	if !ok || secret == "" {
		return nil
	}
	if serverAuth.Mode == AuthPassword {
		return &ConnectAuth{Password: secret}
	}
	return &ConnectAuth{Token: secret}
}

// safeEqual compares digests so neither content nor length leaks through
// timing.
func safeEqual(a, b string) bool {
	da, db := sha256.Sum256([]byte(a)), sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(da[:], db[:]) == 1
}
