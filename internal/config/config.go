package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	CurrentVersion = 1
	DefaultPath    = "~/.schemair/schemair.yaml"

	// PasswordEnv overrides source.password when set.
	PasswordEnv = "SCHEMAIR_SOURCE_PASSWORD"

	defaultMaxRetries = 3
)

// Dialects lists the supported source dialect names.
var Dialects = []string{"postgresql", "oracle", "sqlserver"}

// Config is the top-level configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Source    SourceConfig    `yaml:"source"`
	Output    OutputConfig    `yaml:"output,omitempty"`
	Generator GeneratorConfig `yaml:"generator,omitempty"`
	Naming    NamingConfig    `yaml:"naming,omitempty"`
	Connect   ConnectConfig   `yaml:"connect,omitempty"`
	Logging   LogConfig       `yaml:"logging,omitempty"`
}

// SourceConfig defines the source database connection. URL, when set,
// is passed to the driver as-is and the discrete fields are ignored.
type SourceConfig struct {
	Dialect  string `yaml:"dialect"` // postgresql, oracle or sqlserver
	URL      string `yaml:"url,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	Schema   string `yaml:"schema,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	SSL      bool   `yaml:"ssl,omitempty"`
}

// OutputConfig defines where artifacts are written.
type OutputConfig struct {
	Directory string `yaml:"directory,omitempty"` // default output/ir
}

// GeneratorConfig defines the downstream command run after each artifact.
// Arguments may contain {table} and {artifact} placeholders.
type GeneratorConfig struct {
	Command []string      `yaml:"command,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"` // default 5m
}

// NamingConfig extends the built-in column naming conventions.
type NamingConfig struct {
	// Synonyms adds spellings to a built-in class: creator, modifier,
	// created_at or modified_at.
	Synonyms map[string][]string `yaml:"synonyms,omitempty"`
	Rules    []NamingRule        `yaml:"rules,omitempty"`
}

// NamingRule is a user-defined rule applied after the built-in ones.
type NamingRule struct {
	Name     string   `yaml:"name"`
	Synonyms []string `yaml:"synonyms"`
	Insert   string   `yaml:"insert,omitempty"` // none or serverDefault
	Update   string   `yaml:"update,omitempty"` // none or serverDefault
}

// ConnectConfig bounds retries of the initial connection. An explicit
// max_retries of 0 disables retrying.
type ConnectConfig struct {
	MaxRetries      *int          `yaml:"max_retries,omitempty"`      // default 3
	InitialInterval time.Duration `yaml:"initial_interval,omitempty"` // default 1s
}

// Retries returns the configured retry count, or the default when unset.
func (c ConnectConfig) Retries() int {
	if c.MaxRetries == nil {
		return defaultMaxRetries
	}
	return *c.MaxRetries
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level     string `yaml:"level,omitempty"`     // debug, info, warn, error
	Directory string `yaml:"directory,omitempty"` // default ~/.schemair/logs/
}

// Load reads and parses the config file from the given path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if v := os.Getenv(PasswordEnv); v != "" {
		cfg.Source.Password = v
	}
	if err := cfg.resolveSecrets(); err != nil {
		return nil, fmt.Errorf("resolving secrets: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the given path.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ExpandHome(DefaultPath)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate reports configuration that cannot produce a working run.
func (c *Config) Validate() error {
	var errs []error

	if !knownDialect(c.Source.Dialect) {
		errs = append(errs, fmt.Errorf("source.dialect %q must be one of %s",
			c.Source.Dialect, strings.Join(Dialects, ", ")))
	}
	if c.Source.URL == "" && (c.Source.Host == "" || c.Source.Database == "") {
		errs = append(errs, errors.New("source.url or source.host and source.database are required"))
	}
	for _, r := range c.Naming.Rules {
		if len(r.Synonyms) == 0 {
			errs = append(errs, fmt.Errorf("naming rule %q has no synonyms", r.Name))
		}
		for _, d := range []string{r.Insert, r.Update} {
			if d != "" && d != "none" && d != "serverDefault" {
				errs = append(errs, fmt.Errorf("naming rule %q: directive %q must be none or serverDefault", r.Name, d))
			}
		}
	}
	if c.Connect.MaxRetries != nil && *c.Connect.MaxRetries < 0 {
		errs = append(errs, errors.New("connect.max_retries must not be negative"))
	}
	if c.Generator.Timeout < 0 {
		errs = append(errs, errors.New("generator.timeout must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	if c.Output.Directory == "" {
		c.Output.Directory = filepath.Join("output", "ir")
	}
	c.Output.Directory = ExpandHome(c.Output.Directory)
	if c.Generator.Timeout == 0 {
		c.Generator.Timeout = 5 * time.Minute
	}
	if c.Connect.MaxRetries == nil {
		n := defaultMaxRetries
		c.Connect.MaxRetries = &n
	}
	if c.Connect.InitialInterval == 0 {
		c.Connect.InitialInterval = time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Directory == "" {
		c.Logging.Directory = ExpandHome("~/.schemair/logs/")
	}
}

// Masked returns a copy of the config with the password hidden, including
// a password embedded in source.url.
func (c *Config) Masked() *Config {
	cp := *c
	if cp.Source.Password != "" {
		cp.Source.Password = "********"
	}
	if u, err := url.Parse(cp.Source.URL); err == nil && u.User != nil {
		cp.Source.URL = u.Redacted()
	}
	return &cp
}

func knownDialect(name string) bool {
	for _, d := range Dialects {
		if d == name {
			return true
		}
	}
	return false
}

var secretPattern = regexp.MustCompile(`\$\{(ENV|VAULT|AWS_SM):([^}]+)\}`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Source.Password, err = ResolveValue(c.Source.Password)
	if err != nil {
		return fmt.Errorf("source password: %w", err)
	}
	c.Source.URL, err = ResolveValue(c.Source.URL)
	if err != nil {
		return fmt.Errorf("source url: %w", err)
	}
	return nil
}

// ResolveValue resolves secret references in a string value. A reference
// may be embedded in a longer string, e.g. a URL carrying a password.
func ResolveValue(val string) (string, error) {
	var firstErr error
	out := secretPattern.ReplaceAllStringFunc(val, func(m string) string {
		parts := secretPattern.FindStringSubmatch(m)
		v, err := resolveRef(parts[1], parts[2])
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func resolveRef(provider, ref string) (string, error) {
	switch provider {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", provider)
	}
}

// splitRef splits "path#key" into its parts; key is empty when absent.
func splitRef(ref string) (path, key string) {
	path, key, _ = strings.Cut(ref, "#")
	return path, key
}

// ExpandHome expands ~ to the user's home directory.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
