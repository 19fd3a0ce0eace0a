// Package config loads goblinswitch settings from TOML files, environment
// variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Johannes-Berggren/goblinswitch/internal/git"
)

// EnvPrefix prefixes environment overrides, e.g. GOBLINSWITCH_GIT_REMOTE.
const EnvPrefix = "GOBLINSWITCH"

// LocalFile is looked up in the working directory before the user config.
const LocalFile = ".goblinswitch.toml"

// Config holds all configuration options.
type Config struct {
	Path      string       `mapstructure:"path"`
	Debug     bool         `mapstructure:"debug"`
	LogFile   string       `mapstructure:"log_file"`
	TraceFile string       `mapstructure:"trace_file"`
	Git       GitConfig    `mapstructure:"git"`
	Auth      AuthConfig   `mapstructure:"auth"`
	Engine    EngineConfig `mapstructure:"engine"`
	UI        UIConfig     `mapstructure:"ui"`
}

type GitConfig struct {
	Remote          string `mapstructure:"remote"`
	CheckoutBackend string `mapstructure:"checkout_backend"` // "auto", "cli" or "go-git"
	Binary          string `mapstructure:"binary"`
}

// AuthConfig selects the fetch credential. The token itself is never stored
// in the file, only the name of the variable holding it.
type AuthConfig struct {
	Method   string `mapstructure:"method"` // "auto", "ssh-agent", "basic" or "none"
	User     string `mapstructure:"user"`
	TokenEnv string `mapstructure:"token_env"`
}

type EngineConfig struct {
	EventBuffer   int           `mapstructure:"event_buffer"`
	WorkBuffer    int           `mapstructure:"work_buffer"`
	ProgressRate  float64       `mapstructure:"progress_rate"` // events per second, 0 = unlimited
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

type UIConfig struct {
	WatchRefs     bool `mapstructure:"watch_refs"`
	ShowStatus    bool `mapstructure:"show_status"`
	ProgressWidth int  `mapstructure:"progress_width"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Path: ".",
		Git: GitConfig{
			Remote:          git.DefaultRemote,
			CheckoutBackend: git.BackendAuto,
			Binary:          "git",
		},
		Auth: AuthConfig{
			Method:   git.AuthAuto,
			User:     "git",
			TokenEnv: "GOBLINSWITCH_TOKEN",
		},
		Engine: EngineConfig{
			EventBuffer:   256,
			WorkBuffer:    8,
			ProgressRate:  0,
			ShutdownGrace: 30 * time.Second,
		},
		UI: UIConfig{
			WatchRefs:     true,
			ShowStatus:    false,
			ProgressWidth: 40,
		},
	}
}

// SetDefaults registers every key on v so that env overrides and Unmarshal
// see the full key set.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("path", d.Path)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("trace_file", d.TraceFile)
	v.SetDefault("git.remote", d.Git.Remote)
	v.SetDefault("git.checkout_backend", d.Git.CheckoutBackend)
	v.SetDefault("git.binary", d.Git.Binary)
	v.SetDefault("auth.method", d.Auth.Method)
	v.SetDefault("auth.user", d.Auth.User)
	v.SetDefault("auth.token_env", d.Auth.TokenEnv)
	v.SetDefault("engine.event_buffer", d.Engine.EventBuffer)
	v.SetDefault("engine.work_buffer", d.Engine.WorkBuffer)
	v.SetDefault("engine.progress_rate", d.Engine.ProgressRate)
	v.SetDefault("engine.shutdown_grace", d.Engine.ShutdownGrace)
	v.SetDefault("ui.watch_refs", d.UI.WatchRefs)
	v.SetDefault("ui.show_status", d.UI.ShowStatus)
	v.SetDefault("ui.progress_width", d.UI.ProgressWidth)
}

// Load reads the configuration into v. cfgFile, when set, must exist.
// Otherwise .goblinswitch.toml in the working directory and then
// ~/.config/goblinswitch/config.toml are tried; no file at all is fine.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	switch {
	case cfgFile != "":
		v.SetConfigFile(cfgFile)
	case fileExists(LocalFile):
		v.SetConfigFile(LocalFile)
	default:
		if dir, err := UserConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.SetConfigName("config")
		v.SetConfigType("toml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and non-positive sizes.
func (c Config) Validate() error {
	var errs []error

	backends := []string{git.BackendAuto, git.BackendCLI, git.BackendGoGit}
	if !slices.Contains(backends, c.Git.CheckoutBackend) {
		errs = append(errs, fmt.Errorf("git.checkout_backend: %q is not one of %s", c.Git.CheckoutBackend, strings.Join(backends, ", ")))
	}

	methods := []string{git.AuthAuto, git.AuthSSHAgent, git.AuthBasic, git.AuthNone}
	if !slices.Contains(methods, c.Auth.Method) {
		errs = append(errs, fmt.Errorf("auth.method: %q is not one of %s", c.Auth.Method, strings.Join(methods, ", ")))
	}

	if c.Git.Remote == "" {
		errs = append(errs, errors.New("git.remote: must not be empty"))
	}
	if c.Engine.EventBuffer <= 0 {
		errs = append(errs, fmt.Errorf("engine.event_buffer: must be positive, got %d", c.Engine.EventBuffer))
	}
	if c.Engine.WorkBuffer <= 0 {
		errs = append(errs, fmt.Errorf("engine.work_buffer: must be positive, got %d", c.Engine.WorkBuffer))
	}
	if c.Engine.ProgressRate < 0 {
		errs = append(errs, fmt.Errorf("engine.progress_rate: must not be negative, got %v", c.Engine.ProgressRate))
	}
	if c.Engine.ShutdownGrace <= 0 {
		errs = append(errs, fmt.Errorf("engine.shutdown_grace: must be positive, got %s", c.Engine.ShutdownGrace))
	}
	if c.UI.ProgressWidth <= 0 {
		errs = append(errs, fmt.Errorf("ui.progress_width: must be positive, got %d", c.UI.ProgressWidth))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// GitOptions converts the git and auth sections for git.Discover.
func (c Config) GitOptions() git.Options {
	return git.Options{
		Remote:          c.Git.Remote,
		CheckoutBackend: c.Git.CheckoutBackend,
		Binary:          c.Git.Binary,
		Auth: git.AuthOptions{
			Method:   c.Auth.Method,
			User:     c.Auth.User,
			TokenEnv: c.Auth.TokenEnv,
		},
	}
}

// UserConfigDir returns ~/.config/goblinswitch.
func UserConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".config", "goblinswitch"), nil
}

// DataDir returns ~/.goblinswitch, where logs are kept.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".goblinswitch"), nil
}

// EnsureDataDir creates the data directory if needed.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return dir, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
