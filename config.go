package mailbox

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/99designs/keyring"
	"github.com/spf13/viper"
)

// Config describes one mailbox account. It is usually loaded with
// LoadConfig from a YAML file and MAILBOX_* environment variables.
type Config struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
	// AccessToken switches authentication to XOAUTH2.
	AccessToken string `mapstructure:"access_token" yaml:"access_token"`
	Host        string `mapstructure:"host" yaml:"host"`
	Port        int    `mapstructure:"port" yaml:"port"`
	// Provider selects the search dialect: imap, gmail or outlook.
	Provider string `mapstructure:"provider" yaml:"provider"`
	Folder   string `mapstructure:"folder" yaml:"folder"`

	DialTimeout    time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	DialRetries    int           `mapstructure:"dial_retries" yaml:"dial_retries"`
	Verbose        bool          `mapstructure:"verbose" yaml:"verbose"`

	Keyring KeyringConfig `mapstructure:"keyring" yaml:"keyring"`
}

// KeyringConfig points at a password stored in the OS keyring under
// Service, keyed by the account username. It is consulted only when no
// password or access token is configured.
type KeyringConfig struct {
	Service string `mapstructure:"service" yaml:"service"`
	// FileDir enables the encrypted file backend as a last resort.
	FileDir string `mapstructure:"file_dir" yaml:"file_dir"`
}

// EnvPrefix prefixes the environment variables read by LoadConfig, for
// example MAILBOX_PASSWORD or MAILBOX_KEYRING_SERVICE.
const EnvPrefix = "MAILBOX"

// LoadConfig reads configuration from the YAML file at path, then applies
// MAILBOX_* environment overrides. An empty path reads the environment
// only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults register every key so environment variables are seen by
	// Unmarshal even when the file does not mention them.
	v.SetDefault("username", "")
	v.SetDefault("password", "")
	v.SetDefault("access_token", "")
	v.SetDefault("host", "")
	v.SetDefault("port", DefaultPort)
	v.SetDefault("provider", "imap")
	v.SetDefault("folder", DefaultFolder)
	v.SetDefault("dial_timeout", "0s")
	v.SetDefault("command_timeout", "0s")
	v.SetDefault("dial_retries", 0)
	v.SetDefault("verbose", false)
	v.SetDefault("keyring.service", "")
	v.SetDefault("keyring.file_dir", "")

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Dialect resolves the configured provider.
func (c *Config) Dialect() (Dialect, error) {
	return DialectByName(c.Provider)
}

// Options converts the configuration into session options.
func (c *Config) Options() []Option {
	opts := []Option{
		WithFolder(c.Folder),
		WithDialTimeout(c.DialTimeout),
		WithCommandTimeout(c.CommandTimeout),
		WithDialRetries(c.DialRetries),
		WithVerbose(c.Verbose),
	}
	if c.AccessToken != "" {
		opts = append(opts, WithXOAuth2(c.AccessToken))
	}
	return opts
}

// Open resolves the password and opens a Session. Extra options are applied
// after the configured ones.
func (c *Config) Open(opts ...Option) (*Session, error) {
	dialect, err := c.Dialect()
	if err != nil {
		return nil, err
	}
	password, err := c.ResolvePassword()
	if err != nil {
		return nil, err
	}
	return Open(c.Username, password, c.Host, c.Port, dialect, append(c.Options(), opts...)...)
}

// ResolvePassword returns the configured password, or looks it up in the
// keyring when none (and no access token) is set.
func (c *Config) ResolvePassword() (string, error) {
	if c.Password != "" || c.AccessToken != "" || c.Keyring.Service == "" {
		return c.Password, nil
	}
	if c.Username == "" {
		return "", errors.New("mailbox: keyring lookup needs a username")
	}

	ring, err := openKeyring(c.Keyring)
	if err != nil {
		return "", fmt.Errorf("opening keyring %q: %w", c.Keyring.Service, err)
	}
	item, err := ring.Get(c.Username)
	if err != nil {
		return "", fmt.Errorf("getting password for %q from keyring %q: %w", c.Username, c.Keyring.Service, err)
	}
	return string(item.Data), nil
}

// openKeyring is replaced in tests.
var openKeyring = func(kc KeyringConfig) (keyring.Keyring, error) {
	cfg := keyring.Config{
		ServiceName: kc.Service,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
		},
		KeychainTrustApplication: true,
	}
	if kc.FileDir != "" {
		cfg.AllowedBackends = append(cfg.AllowedBackends, keyring.FileBackend)
		cfg.FileDir = kc.FileDir
		cfg.FilePasswordFunc = keyring.TerminalPrompt
		if pw := os.Getenv(EnvPrefix + "_KEYRING_FILE_PASSWORD"); pw != "" {
			cfg.FilePasswordFunc = keyring.FixedStringPrompt(pw)
		}
	}
	return keyring.Open(cfg)
}
