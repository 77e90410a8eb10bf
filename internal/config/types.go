package config

// Config is the root configuration for caselink.
type Config struct {
	Databricks DatabricksConfig `yaml:"databricks,omitempty"`
	Agent      AgentConfig      `yaml:"agent,omitempty"`
	Context    ContextConfig    `yaml:"context,omitempty"`
	Gateway    GatewayConfig    `yaml:"gateway,omitempty"`
	Store      StoreConfig      `yaml:"store,omitempty"`
	Session    SessionConfig    `yaml:"session,omitempty"`
	Logging    LoggingConfig    `yaml:"logging,omitempty"`
	Hooks      HooksConfig      `yaml:"hooks,omitempty"`
}

// DatabricksConfig holds the serving workspace and its credentials.
// Secret fields may be written as ${ENV_VAR}.
type DatabricksConfig struct {
	Host         string `yaml:"host,omitempty"`
	Token        string `yaml:"token,omitempty"`
	ClientID     string `yaml:"clientId,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty"`
	Scope        string `yaml:"scope,omitempty"`
}

// AgentConfig controls prompt assembly and model invocation.
type AgentConfig struct {
	Endpoint          string   `yaml:"endpoint,omitempty"`
	MaxActions        *int     `yaml:"maxActions,omitempty"` // clamped to [0,10]
	Temperature       *float64 `yaml:"temperature,omitempty"`
	MaxTokens         int      `yaml:"maxTokens,omitempty"`
	TimeoutSeconds    int      `yaml:"timeoutSeconds,omitempty"`
	RequestsPerMinute int      `yaml:"requestsPerMinute,omitempty"` // 0 disables the limiter
	HistoryLimit      int      `yaml:"historyLimit,omitempty"`
}

// ContextConfig controls the per-turn context snapshot.
type ContextConfig struct {
	CacheTTLSeconds int `yaml:"cacheTtlSeconds,omitempty"`
	SuspectLimit    int `yaml:"suspectLimit,omitempty"`
	CaseLimit       int `yaml:"caseLimit,omitempty"`
}

// GatewayConfig controls the gateway HTTP/WebSocket server.
type GatewayConfig struct {
	Port           int         `yaml:"port,omitempty"`
	Bind           string      `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string      `yaml:"customBindHost,omitempty"`
	Auth           GatewayAuth `yaml:"auth,omitempty"`
	AllowedOrigins []string    `yaml:"allowedOrigins,omitempty"`
}

// GatewayAuth configures gateway authentication.
type GatewayAuth struct {
	Mode     string `yaml:"mode,omitempty"` // "none" | "token" | "password"; empty infers from the secret set
	Token    string `yaml:"token,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// StoreConfig locates the SQLite projection database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// SessionConfig controls the client-side session store used by `caselink chat`.
type SessionConfig struct {
	Store string `yaml:"store,omitempty"` // "file" | "memory"
	Path  string `yaml:"path,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "json"
}

// HooksConfig configures turn lifecycle hooks.
type HooksConfig struct {
	AuditFile string `yaml:"auditFile,omitempty"` // JSON lines, one per completed or failed turn
}
