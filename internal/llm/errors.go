package llm

import (
	"fmt"
	"strings"
)

// ProviderError is returned when every invocation path failed. It carries
// the most recent failure.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP status of the last attempt, 0 for transport errors
	Path     string
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// AuthError is returned when no usable credential could be resolved. It
// records which sources were present, never their values.
type AuthError struct {
	HostSet         bool
	TokenSet        bool
	ClientIDSet     bool
	ClientSecretSet bool
	ManagedApp      bool // running inside the Databricks Apps runtime
	Cause           error
}

func (e *AuthError) Error() string {
	var b strings.Builder
	b.WriteString("no usable serving credential")
	fmt.Fprintf(&b, " (host=%t token=%t clientId=%t clientSecret=%t)",
		e.HostSet, e.TokenSet, e.ClientIDSet, e.ClientSecretSet)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	b.WriteString(". ")
	if e.ManagedApp {
		b.WriteString("This app runs in the Databricks Apps runtime: grant the app's service principal " +
			"CAN_QUERY on the serving endpoint and make sure DATABRICKS_CLIENT_ID and " +
			"DATABRICKS_CLIENT_SECRET are injected.")
	} else {
		b.WriteString("Set DATABRICKS_HOST and either DATABRICKS_TOKEN or " +
			"DATABRICKS_CLIENT_ID with DATABRICKS_CLIENT_SECRET.")
	}
	return b.String()
}

func (e *AuthError) Unwrap() error { return e.Cause }
