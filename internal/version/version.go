package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/soyeahso/caselink/internal/version.Version=1.0.0
//	  -X github.com/soyeahso/caselink/internal/version.Commit=abc123
//	  -X github.com/soyeahso/caselink/internal/version.Date=2026-01-01"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Build describes the running binary. It is reported by the health endpoint.
type Build struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

// Current returns the build description with the commit shortened.
func Current() Build {
	return Build{
		Version: Version,
		Commit:  short(Commit),
		Date:    Date,
		Go:      runtime.Version(),
	}
}

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("caselink %s (commit: %s, built: %s, %s/%s)",
		Version, short(Commit), Date, runtime.GOOS, runtime.GOARCH)
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
