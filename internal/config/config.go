package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	BackendLocal = "local"
	BackendS3    = "s3"
)

type Config struct {
	Backend string    `toml:"backend"`
	S3      S3Config  `toml:"s3"`
	Log     LogConfig `toml:"log"`
}

type S3Config struct {
	Enabled  bool   `toml:"enabled"`
	Bucket   string `toml:"bucket"`
	Prefix   string `toml:"prefix"`
	Endpoint string `toml:"endpoint"`
	Region   string `toml:"region"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend: BackendLocal,
		S3: S3Config{
			Prefix: "deepwiki",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the optional TOML file at path and applies environment
// overrides on top of it. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv builds a configuration from environment variables alone.
func FromEnv() (*Config, error) {
	return Load("")
}

func (c *Config) applyEnv() {
	if v, ok := lookupEnv("DEEPWIKI_STORAGE_BACKEND"); ok {
		c.Backend = v
	}
	if v, ok := lookupEnv("DEEPWIKI_S3_ENABLED"); ok {
		c.S3.Enabled = isTruthy(v)
	}
	if v, ok := lookupEnv("DEEPWIKI_S3_BUCKET"); ok {
		c.S3.Bucket = v
	}
	if v, ok := lookupEnv("DEEPWIKI_S3_PREFIX"); ok {
		c.S3.Prefix = v
	}
	if v, ok := lookupEnv("DEEPWIKI_S3_ENDPOINT_URL"); ok {
		c.S3.Endpoint = v
	}
	if v, ok := lookupEnv("AWS_REGION"); ok {
		c.S3.Region = v
	} else if v, ok := lookupEnv("AWS_DEFAULT_REGION"); ok {
		c.S3.Region = v
	}
	if v, ok := lookupEnv("DEEPWIKI_LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookupEnv("DEEPWIKI_LOG_FORMAT"); ok {
		c.Log.Format = v
	}
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func (c *Config) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = BackendLocal
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) Normalize() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	c.S3.Bucket = strings.TrimSpace(c.S3.Bucket)
	c.S3.Prefix = strings.Trim(strings.TrimSpace(c.S3.Prefix), "/")
	c.S3.Endpoint = strings.TrimSpace(c.S3.Endpoint)
	c.S3.Region = strings.TrimSpace(c.S3.Region)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendLocal, BackendS3:
	default:
		return errors.New("backend must be local or s3")
	}

	if strings.Contains(c.S3.Bucket, "/") {
		return errors.New("s3.bucket must not contain '/'")
	}

	if c.S3.Endpoint != "" {
		parsed, err := url.Parse(c.S3.Endpoint)
		if err != nil || parsed.Host == "" {
			return fmt.Errorf("s3.endpoint must be a valid http(s) URL: %q", c.S3.Endpoint)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return errors.New("s3.endpoint must use http or https")
		}
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New("log.format must be text or json")
	}

	return nil
}

// Enabled reports whether remote storage is active: a bucket must be
// configured, and either the backend is "s3" or the explicit enable flag
// is set.
func (c *Config) Enabled() bool {
	return c.S3.Bucket != "" && (c.Backend == BackendS3 || c.S3.Enabled)
}
