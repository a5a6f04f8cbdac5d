// Package engine is the top-level FlowQuery entrypoint: it loads a
// Config, wires a session.Session (database, function/procedure
// registries, loader, logger) and an auth.Auth backend together, and
// exposes a single Query method that parses, authorizes, and runs a
// query string. Grounded on the teacher's removed engine.go shape (spec
// §9's design note; see DESIGN.md) adapted to FlowQuery's embeddable-
// library model: no server, no catalog, one Engine per process/test.
package engine

import (
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/flowquery-go/flowquery/auth"
)

// Config is the declarative, YAML-loadable configuration for an
// Engine (SPEC_FULL.md §10's "Configuration" ambient-stack entry).
type Config struct {
	// HistoryPath is where a REPL front-end persists command history.
	// FlowQuery's core never reads or writes this file itself; it is
	// carried here purely as configuration a REPL binary can consume.
	HistoryPath string `yaml:"history_path"`

	// LoaderTimeout bounds how long a LOAD operation's HTTP request may
	// take before it is canceled (spec §9's configurable default-loader-
	// timeout knob).
	LoaderTimeout time.Duration `yaml:"loader_timeout"`

	// Auth selects the permission backend: "none" (default) or
	// "native". NativeUsersFile is required when Auth is "native".
	Auth            string `yaml:"auth"`
	NativeUsersFile string `yaml:"native_users_file"`
}

// DefaultConfig returns the zero-config engine: no authentication, a
// 30 second loader timeout, no history file.
func DefaultConfig() Config {
	return Config{
		Auth:          "none",
		LoaderTimeout: 30 * time.Second,
	}
}

// LoadConfig reads and parses a YAML config file, filling unset fields
// from DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	if cfg.LoaderTimeout == 0 {
		cfg.LoaderTimeout = 30 * time.Second
	}
	return cfg, nil
}

// buildAuth constructs the auth.Auth backend this config selects.
func (c Config) buildAuth() (auth.Auth, error) {
	switch c.Auth {
	case "", "none":
		return new(auth.None), nil
	case "native":
		return auth.NewNativeFile(c.NativeUsersFile)
	default:
		return nil, &UnknownAuthBackendError{Backend: c.Auth}
	}
}

// UnknownAuthBackendError is returned by Config.buildAuth for an
// unrecognized Auth value.
type UnknownAuthBackendError struct{ Backend string }

func (e *UnknownAuthBackendError) Error() string {
	return "engine: unknown auth backend " + e.Backend
}
