package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
// Missing credentials are not an issue here; they surface per turn as an
// authentication error so the gateway can still start and serve context.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	// Databricks validation
	if h := strings.TrimSpace(cfg.Databricks.Host); h != "" {
		u, err := url.Parse(normalizeHostForCheck(h))
		if err != nil || u.Host == "" {
			issues = append(issues, ValidationIssue{
				Path:    "databricks.host",
				Message: fmt.Sprintf("not a valid host: %q", h),
			})
		}
	}
	if (cfg.Databricks.ClientID == "") != (cfg.Databricks.ClientSecret == "") {
		issues = append(issues, ValidationIssue{
			Path:    "databricks.clientSecret",
			Message: "clientId and clientSecret must be set together",
		})
	}

	// Agent validation
	if strings.TrimSpace(cfg.Agent.Endpoint) == "" {
		issues = append(issues, ValidationIssue{
			Path:    "agent.endpoint",
			Message: "endpoint is required",
		})
	}
	if cfg.Agent.MaxActions != nil && (*cfg.Agent.MaxActions < 0 || *cfg.Agent.MaxActions > MaxActionsCeiling) {
		issues = append(issues, ValidationIssue{
			Path:    "agent.maxActions",
			Message: fmt.Sprintf("must be 0-%d, got %d", MaxActionsCeiling, *cfg.Agent.MaxActions),
		})
	}
	if t := cfg.Agent.Temperature; t != nil && (*t < 0 || *t > 2) {
		issues = append(issues, ValidationIssue{
			Path:    "agent.temperature",
			Message: fmt.Sprintf("must be 0-2, got %g", *t),
		})
	}
	if cfg.Agent.MaxTokens < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.maxTokens",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Agent.MaxTokens),
		})
	}
	if cfg.Agent.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.timeoutSeconds",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Agent.TimeoutSeconds),
		})
	}
	if cfg.Agent.RequestsPerMinute < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.requestsPerMinute",
			Message: fmt.Sprintf("must be >= 0, got %d", cfg.Agent.RequestsPerMinute),
		})
	}

	// Gateway validation
	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}
	if cfg.Gateway.Bind == "custom" && cfg.Gateway.CustomBindHost == "" {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.customBindHost",
			Message: "required when bind is custom",
		})
	}

	validAuthModes := []string{"none", "token", "password"}
	if cfg.Gateway.Auth.Mode != "" && !slices.Contains(validAuthModes, cfg.Gateway.Auth.Mode) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.auth.mode",
			Message: fmt.Sprintf("must be one of %v, got %q", validAuthModes, cfg.Gateway.Auth.Mode),
		})
	}

	// Logging validation
	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	// Session validation
	validStores := []string{"file", "memory"}
	if cfg.Session.Store != "" && !slices.Contains(validStores, cfg.Session.Store) {
		issues = append(issues, ValidationIssue{
			Path:    "session.store",
			Message: fmt.Sprintf("must be one of %v, got %q", validStores, cfg.Session.Store),
		})
	}

	return issues
}

// normalizeHostForCheck prefixes a scheme so bare hostnames parse.
func normalizeHostForCheck(h string) string {
	if strings.HasPrefix(h, "http://") || strings.HasPrefix(h, "https://") {
		return h
	}
	return "https://" + h
}
