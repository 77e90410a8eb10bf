package config

import (
	"fmt"
	"time"
)

// Bounds and defaults for the agent surface.
const (
	DefaultMaxActions  = 5
	MaxActionsCeiling  = 10
	DefaultEndpoint    = "databricks-gpt-5-2"
	DefaultScope       = "all-apis"
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 600
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	maxActions := DefaultMaxActions
	temp := DefaultTemperature
	return Config{
		Databricks: DatabricksConfig{
			Scope: DefaultScope,
		},
		Agent: AgentConfig{
			Endpoint:       DefaultEndpoint,
			MaxActions:     &maxActions,
			Temperature:    &temp,
			MaxTokens:      DefaultMaxTokens,
			TimeoutSeconds: 60,
			HistoryLimit:   20,
		},
		Context: ContextConfig{
			CacheTTLSeconds: 120,
			SuspectLimit:    12,
			CaseLimit:       12,
		},
		Gateway: GatewayConfig{
			Port: 18790,
			Bind: "loopback",
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
		Session: SessionConfig{
			Store: "file",
		},
	}
}

// ClampMaxActions forces n into [0, MaxActionsCeiling].
func ClampMaxActions(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxActionsCeiling {
		return MaxActionsCeiling
	}
	return n
}

// EffectiveMaxActions returns the clamped action cap.
func (a AgentConfig) EffectiveMaxActions() int {
	if a.MaxActions == nil {
		return DefaultMaxActions
	}
	return ClampMaxActions(*a.MaxActions)
}

// EffectiveTemperature returns the sampling temperature, defaulting to 0.2.
func (a AgentConfig) EffectiveTemperature() float64 {
	if a.Temperature == nil {
		return DefaultTemperature
	}
	return *a.Temperature
}

// Timeout returns the invocation chain timeout.
func (a AgentConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// CacheTTL returns the projection cache lifetime.
func (c ContextConfig) CacheTTL() time.Duration {
	if c.CacheTTLSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
