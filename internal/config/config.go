// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable the tool reads, e.g.
// PYPI_TOKEN_CLIENT_PYPI_USERNAME for pypi.username.
const EnvPrefix = "PYPI_TOKEN_CLIENT"

// DefaultConfigName is the file looked up in the working directory when no
// --config flag is given.
const DefaultConfigName = "pypi-token-client"

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	PyPI() PyPIConfig
	Login() LoginConfig

	SetBrowserHeadless(bool)
	SetBrowserPersistDir(string)
	SetPyPIBaseURL(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	PyPICfg    PyPIConfig    `mapstructure:"pypi" yaml:"pypi"`
	LoginCfg   LoginConfig   `mapstructure:"login" yaml:"login"`
}

var _ Interface = (*Config)(nil)

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) PyPI() PyPIConfig       { return c.PyPICfg }
func (c *Config) Login() LoginConfig     { return c.LoginCfg }

func (c *Config) SetBrowserHeadless(b bool)       { c.BrowserCfg.Headless = b }
func (c *Config) SetBrowserPersistDir(dir string) { c.BrowserCfg.PersistDir = dir }
func (c *Config) SetPyPIBaseURL(u string)         { c.PyPICfg.BaseURL = u }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the Chromium instance driven by the client.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// PersistDir keeps the browser profile (cookies, local storage) between
	// runs. Empty means a throwaway profile.
	PersistDir        string        `mapstructure:"persist_dir" yaml:"persist_dir"`
	ExecPath          string        `mapstructure:"exec_path" yaml:"exec_path"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ActionTimeout     time.Duration `mapstructure:"action_timeout" yaml:"action_timeout"`
	// PauseOnError keeps a headed browser open after a failure until the
	// user closes it.
	PauseOnError bool `mapstructure:"pause_on_error" yaml:"pause_on_error"`
}

// PyPIConfig selects the index instance and, optionally, the account.
type PyPIConfig struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"-"`
}

// LoginConfig controls the retry-with-reprompt loop around login.
type LoginConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	MinInterval time.Duration `mapstructure:"min_interval" yaml:"min_interval"`
	UseKeyring  bool          `mapstructure:"use_keyring" yaml:"use_keyring"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "pypi-token-client")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.persist_dir", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 900)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.action_timeout", "15s")
	v.SetDefault("browser.pause_on_error", true)

	// -- PyPI --
	v.SetDefault("pypi.base_url", "https://pypi.org")
	v.SetDefault("pypi.username", "")
	v.SetDefault("pypi.password", "")

	// -- Login --
	v.SetDefault("login.max_attempts", 3)
	v.SetDefault("login.min_interval", "2s")
	v.SetDefault("login.use_keyring", true)
}

// BindEnvironment makes every key overridable by an environment variable
// named after it, e.g. browser.persist_dir by PYPI_TOKEN_CLIENT_BROWSER_PERSIST_DIR.
func BindEnvironment(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper unmarshals v into a Config, expands home-relative paths
// and validates the result.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Both paths may be written as ~/something in a config file.
	var err error
	if cfg.BrowserCfg.PersistDir, err = homedir.Expand(cfg.BrowserCfg.PersistDir); err != nil {
		return nil, fmt.Errorf("expanding browser.persist_dir: %w", err)
	}
	if cfg.LoggerCfg.LogFile, err = homedir.Expand(cfg.LoggerCfg.LogFile); err != nil {
		return nil, fmt.Errorf("expanding logger.log_file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the values a run cannot proceed without.
func (c *Config) Validate() error {
	if c.LoginCfg.MaxAttempts <= 0 {
		return fmt.Errorf("login.max_attempts must be a positive integer")
	}
	if c.LoginCfg.MinInterval < 0 {
		return fmt.Errorf("login.min_interval must not be negative")
	}
	if c.BrowserCfg.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be positive")
	}
	if c.BrowserCfg.ActionTimeout <= 0 {
		return fmt.Errorf("browser.action_timeout must be positive")
	}
	if c.BrowserCfg.WindowWidth < 0 || c.BrowserCfg.WindowHeight < 0 {
		return fmt.Errorf("browser window size must not be negative")
	}
	u, err := url.Parse(c.PyPICfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("pypi.base_url must be an absolute http(s) URL, got %q", c.PyPICfg.BaseURL)
	}
	switch c.LoggerCfg.Format {
	case "console", "json":
		// Supported encoders.
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.LoggerCfg.Format)
	}
	return nil
}
