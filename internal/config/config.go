// Package config loads the service configuration from defaults, an optional
// config file, a .env file and LOSTFOUND_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "LOSTFOUND"

// Config is the full service configuration.
type Config struct {
	Addr     string         `mapstructure:"addr"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Auth     AuthConfig     `mapstructure:"auth"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type StorageConfig struct {
	Driver    string `mapstructure:"driver"`
	Root      string `mapstructure:"root"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`

	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type AuthConfig struct {
	AdminEmails  []string      `mapstructure:"admin_emails"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	CookieSecure bool          `mapstructure:"cookie_secure"`
	SessionKey   string        `mapstructure:"session_key"`
}

type OAuthConfig struct {
	Google       GoogleConfig `mapstructure:"google"`
	RedirectBase string       `mapstructure:"redirect_base"`
	SuccessURL   string       `mapstructure:"success_url"`
	FailureURL   string       `mapstructure:"failure_url"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type CacheConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

// OAuthEnabled reports whether any Google OAuth credential is configured.
func (c *Config) OAuthEnabled() bool {
	return c.OAuth.Google.ClientID != "" || c.OAuth.Google.ClientSecret != ""
}

var defaults = map[string]any{
	"addr":                       ":8080",
	"database.driver":            "sqlite",
	"database.dsn":               "lostfound.sqlite3",
	"storage.driver":             "fs",
	"storage.root":               "uploads",
	"storage.bucket":             "",
	"storage.region":             "us-east-1",
	"storage.endpoint":           "",
	"storage.path_style":         false,
	"storage.access_key_id":      "",
	"storage.secret_access_key":  "",
	"auth.admin_emails":          []string{},
	"auth.session_ttl":           "168h",
	"auth.cookie_secure":         false,
	"auth.session_key":           "",
	"oauth.google.client_id":     "",
	"oauth.google.client_secret": "",
	"oauth.redirect_base":        "http://localhost:8080",
	"oauth.success_url":          "/",
	"oauth.failure_url":          "/?login=failed",
	"cache.size":                 512,
	"cache.ttl":                  "30s",
	"log.file":                   "",
}

// Load reads the configuration. path may be empty, in which case only
// defaults, .env and the environment apply. A missing .env is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	var admins []string
	for _, list := range c.Auth.AdminEmails {
		for _, e := range strings.Split(list, ",") {
			if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
				admins = append(admins, e)
			}
		}
	}
	c.Auth.AdminEmails = admins
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	c.OAuth.RedirectBase = strings.TrimRight(c.OAuth.RedirectBase, "/")
}

// Validate reports the first missing or invalid required setting.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	switch c.Storage.Driver {
	case "memory":
	case "fs":
		if c.Storage.Root == "" {
			return errors.New("storage.root is required for the fs driver")
		}
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("storage.driver must be memory, fs or s3, got %q", c.Storage.Driver)
	}

	if c.OAuthEnabled() {
		if c.OAuth.Google.ClientID == "" || c.OAuth.Google.ClientSecret == "" {
			return errors.New("oauth.google.client_id and oauth.google.client_secret must both be set")
		}
		if c.Auth.SessionKey == "" {
			return errors.New("auth.session_key is required when OAuth is enabled")
		}
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth.session_ttl must be positive")
	}
	if c.Cache.Size <= 0 {
		return errors.New("cache.size must be positive")
	}
	return nil
}
