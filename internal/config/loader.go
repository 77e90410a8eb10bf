package config

import (
	"errors"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields resolves ${ENV_VAR} references in credential
// fields so secrets need not live in the file.
func expandSensitiveFields(cfg *Config) {
	for _, f := range []*string{
		&cfg.Databricks.Host,
		&cfg.Databricks.Token,
		&cfg.Databricks.ClientID,
		&cfg.Databricks.ClientSecret,
		&cfg.Gateway.Auth.Token,
		&cfg.Gateway.Auth.Password,
	} {
		*f = expandEnvVars(*f)
	}
}

// Load returns Defaults overlaid with the YAML at path and then the
// environment. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
		}
		applyDefaults(&cfg)
		expandSensitiveFields(&cfg)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Databricks.Scope == "" {
		cfg.Databricks.Scope = DefaultScope
	}
	if cfg.Agent.Endpoint == "" {
		cfg.Agent.Endpoint = DefaultEndpoint
	}
	if cfg.Agent.MaxActions == nil {
		n := DefaultMaxActions
		cfg.Agent.MaxActions = &n
	}
	clamped := ClampMaxActions(*cfg.Agent.MaxActions)
	cfg.Agent.MaxActions = &clamped
	if cfg.Agent.Temperature == nil {
		t := DefaultTemperature
		cfg.Agent.Temperature = &t
	}
	if cfg.Agent.MaxTokens == 0 {
		cfg.Agent.MaxTokens = DefaultMaxTokens
	}
	if cfg.Agent.TimeoutSeconds == 0 {
		cfg.Agent.TimeoutSeconds = 60
	}
	if cfg.Agent.HistoryLimit == 0 {
		cfg.Agent.HistoryLimit = 20
	}
	if cfg.Context.CacheTTLSeconds == 0 {
		cfg.Context.CacheTTLSeconds = 120
	}
	if cfg.Context.SuspectLimit == 0 {
		cfg.Context.SuspectLimit = 12
	}
	if cfg.Context.CaseLimit == 0 {
		cfg.Context.CaseLimit = 12
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18790
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
	if cfg.Session.Store == "" {
		cfg.Session.Store = "file"
	}
}

// envOverrides maps environment variables onto config fields. Empty
// values are ignored.
var envOverrides = []struct {
	name  string
	apply func(cfg *Config, v string)
}{
	{"DATABRICKS_HOST", func(c *Config, v string) { c.Databricks.Host = v }},
	{"DATABRICKS_TOKEN", func(c *Config, v string) { c.Databricks.Token = v }},
	{"DATABRICKS_CLIENT_ID", func(c *Config, v string) { c.Databricks.ClientID = v }},
	{"DATABRICKS_CLIENT_SECRET", func(c *Config, v string) { c.Databricks.ClientSecret = v }},
	{"DATABRICKS_OAUTH_SCOPE", func(c *Config, v string) { c.Databricks.Scope = v }},
	{"DATABRICKS_AGENT_ENDPOINT", func(c *Config, v string) { c.Agent.Endpoint = v }},
	{"UI_AGENT_MAX_ACTIONS", func(c *Config, v string) {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			n = DefaultMaxActions
		}
		n = ClampMaxActions(n)
		c.Agent.MaxActions = &n
	}},
	{"CASELINK_GATEWAY_PORT", func(c *Config, v string) {
		if port, err := strconv.Atoi(v); err == nil {
			c.Gateway.Port = port
		}
	}},
	{"CASELINK_LOG_LEVEL", func(c *Config, v string) { c.Logging.Level = strings.ToLower(v) }},
}

func applyEnvOverrides(cfg *Config) {
	for _, o := range envOverrides {
		if v := os.Getenv(o.name); v != "" {
			o.apply(cfg, v)
		}
	}
}
