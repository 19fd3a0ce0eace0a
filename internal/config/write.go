package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ErrExists is returned by WriteDefault when the target file already exists.
var ErrExists = errors.New("config file already exists")

const header = `# goblinswitch configuration.
# Every key can be overridden with an environment variable, e.g.
# GOBLINSWITCH_GIT_REMOTE=upstream or GOBLINSWITCH_ENGINE_PROGRESS_RATE=20.

`

// document mirrors Config with TOML tags; durations are written as strings.
type document struct {
	Path      string `toml:"path"`
	Debug     bool   `toml:"debug"`
	LogFile   string `toml:"log_file"`
	TraceFile string `toml:"trace_file"`
	Git       struct {
		Remote          string `toml:"remote"`
		CheckoutBackend string `toml:"checkout_backend"`
		Binary          string `toml:"binary"`
	} `toml:"git"`
	Auth struct {
		Method   string `toml:"method"`
		User     string `toml:"user"`
		TokenEnv string `toml:"token_env"`
	} `toml:"auth"`
	Engine struct {
		EventBuffer   int     `toml:"event_buffer"`
		WorkBuffer    int     `toml:"work_buffer"`
		ProgressRate  float64 `toml:"progress_rate"`
		ShutdownGrace string  `toml:"shutdown_grace"`
	} `toml:"engine"`
	UI struct {
		WatchRefs     bool `toml:"watch_refs"`
		ShowStatus    bool `toml:"show_status"`
		ProgressWidth int  `toml:"progress_width"`
	} `toml:"ui"`
}

func toDocument(c Config) document {
	var d document
	d.Path = c.Path
	d.Debug = c.Debug
	d.LogFile = c.LogFile
	d.TraceFile = c.TraceFile
	d.Git.Remote = c.Git.Remote
	d.Git.CheckoutBackend = c.Git.CheckoutBackend
	d.Git.Binary = c.Git.Binary
	d.Auth.Method = c.Auth.Method
	d.Auth.User = c.Auth.User
	d.Auth.TokenEnv = c.Auth.TokenEnv
	d.Engine.EventBuffer = c.Engine.EventBuffer
	d.Engine.WorkBuffer = c.Engine.WorkBuffer
	d.Engine.ProgressRate = c.Engine.ProgressRate
	d.Engine.ShutdownGrace = c.Engine.ShutdownGrace.String()
	d.UI.WatchRefs = c.UI.WatchRefs
	d.UI.ShowStatus = c.UI.ShowStatus
	d.UI.ProgressWidth = c.UI.ProgressWidth
	return d
}

// Encode writes c as TOML.
func Encode(w io.Writer, c Config) error {
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	return toml.NewEncoder(w).Encode(toDocument(c))
}

// WriteDefault writes the default configuration to path, creating parent
// directories. An existing file is left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if !force && fileExists(path) {
		return fmt.Errorf("%w: %s", ErrExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	if err := Encode(f, Defaults()); err != nil {
		f.Close()
		return fmt.Errorf("write config: %w", err)
	}
	return f.Close()
}
