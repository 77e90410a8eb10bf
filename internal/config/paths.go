package config

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeEnv overrides the base directory.
const HomeEnv = "CASELINK_HOME"

// Paths are the on-disk locations caselink reads and writes.
type Paths struct {
	Base     string // ~/.caselink
	Config   string // <base>/config.yaml
	Sessions string // <base>/sessions
	Logs     string // <base>/logs
	Data     string // <base>/data
	Database string // <base>/data/caselink.db
}

// ResolvePaths derives every path from $CASELINK_HOME, or ~/.caselink
// when it is unset.
func ResolvePaths() (Paths, error) {
	base := os.Getenv(HomeEnv)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, err
		}
		base = filepath.Join(home, ".caselink")
	}
	return pathsUnder(base), nil
}

func pathsUnder(base string) Paths {
	p := Paths{
		Base:     base,
		Config:   filepath.Join(base, "config.yaml"),
		Sessions: filepath.Join(base, "sessions"),
		Logs:     filepath.Join(base, "logs"),
		Data:     filepath.Join(base, "data"),
	}
	p.Database = filepath.Join(p.Data, "caselink.db")
	return p
}

// SessionFile is the chat client's session document.
func (p Paths) SessionFile() string {
	return filepath.Join(p.Sessions, "chat.json")
}

// Resolve interprets a path from the config file: "~/" expands to the
// user's home, relative paths are taken from Base, and absolute paths are
// returned cleaned. Empty stays empty.
func (p Paths) Resolve(path string) string {
	switch {
	case path == "":
		return ""
	case path == "~" || strings.HasPrefix(path, "~/"):
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
		return filepath.Clean(path)
	case filepath.IsAbs(path):
		return filepath.Clean(path)
	default:
		return filepath.Join(p.Base, path)
	}
}

// EnsureDirs creates the base directory and its children with owner-only
// permissions.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Base, p.Sessions, p.Logs, p.Data} {
		if err := os.MkdirAll(d, 0o700); err != nil {
			return err
		}
	}
	return nil
}
