// Package config loads cftp settings from defaults, an optional YAML file,
// CFTP_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dorkyrobot/cftp/internal/store"
	"github.com/dorkyrobot/cftp/internal/vpath"
)

const (
	BackendS3     = "s3"
	BackendMinIO  = "minio"
	BackendMemory = "memory"
)

// EnvPrefix prefixes every environment variable the loader reads, e.g.
// CFTP_API_KEY.
const EnvPrefix = "CFTP"

// DefaultS3Regions is advertised by the S3 backend when no regions are
// configured.
var DefaultS3Regions = []string{
	"us-east-1", "us-east-2", "us-west-1", "us-west-2",
	"eu-west-1", "eu-central-1", "ap-southeast-1", "ap-northeast-1",
}

// RegionConfig names a region and the endpoints that reach it.
type RegionConfig struct {
	Name            string `mapstructure:"name" yaml:"name"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	PrivateEndpoint string `mapstructure:"private_endpoint" yaml:"private_endpoint,omitempty"`
}

type Config struct {
	Backend   string `mapstructure:"backend" yaml:"backend"`
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	Region    string `mapstructure:"region" yaml:"region,omitempty"`

	Username string `mapstructure:"username" yaml:"username,omitempty"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Profile  string `mapstructure:"profile" yaml:"profile,omitempty"`

	Endpoint  string         `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	PathStyle bool           `mapstructure:"path_style" yaml:"path_style,omitempty"`
	Regions   []RegionConfig `mapstructure:"regions" yaml:"regions,omitempty"`
	Fixture   string         `mapstructure:"fixture" yaml:"fixture,omitempty"`

	PageSize  int    `mapstructure:"page_size" yaml:"page_size"`
	ChunkSize int    `mapstructure:"chunk_size" yaml:"chunk_size"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`

	path string
}

// flagKeys maps config keys to the command-line flags that override them.
var flagKeys = map[string]string{
	"backend":    "backend",
	"delimiter":  "delimiter",
	"region":     "region",
	"username":   "username",
	"api_key":    "api-key",
	"profile":    "profile",
	"endpoint":   "endpoint",
	"path_style": "path-style",
	"fixture":    "fixture",
	"page_size":  "page-size",
	"chunk_size": "chunk-size",
	"log_level":  "log-level",
}

func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "cftp", "config.yaml")
}

// SetDefaults registers a default for every scalar key so that environment
// variables are seen by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", BackendS3)
	v.SetDefault("delimiter", string(vpath.Default))
	v.SetDefault("region", "")
	v.SetDefault("username", "")
	v.SetDefault("api_key", "")
	v.SetDefault("profile", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("path_style", false)
	v.SetDefault("fixture", "")
	v.SetDefault("page_size", store.DefaultPageSize)
	v.SetDefault("chunk_size", store.DefaultChunkSize)
	v.SetDefault("log_level", "warn")
}

// Load reads the config file at path (DefaultPath when empty), then applies
// environment variables and any flags in flags that were set. A missing
// default file is not an error; a missing explicit file is.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil || explicit {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{path: path}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.path = path
	return cfg, nil
}

// Path returns the file the config was loaded from, whether or not it
// existed.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendS3, BackendMinIO, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q; valid options: s3, minio, memory", c.Backend)
	}
	if err := vpath.Delimiter(c.Delimiter).Validate(); err != nil {
		return err
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.Backend == BackendMemory && c.Fixture == "" {
		return errors.New("memory backend requires a fixture; use --fixture")
	}
	for _, r := range c.Regions {
		if r.Name == "" {
			return errors.New("region entry without a name")
		}
	}
	return nil
}

// Delim returns the configured delimiter.
func (c *Config) Delim() vpath.Delimiter {
	return vpath.Delimiter(c.Delimiter)
}

// RegionList returns the configured regions. Without any, the S3 backend
// advertises DefaultS3Regions and the MinIO backend a single region named
// after the region setting (default "us-east-1").
func (c *Config) RegionList() []RegionConfig {
	if len(c.Regions) > 0 {
		return c.Regions
	}
	switch c.Backend {
	case BackendS3:
		out := make([]RegionConfig, len(DefaultS3Regions))
		for i, name := range DefaultS3Regions {
			out[i] = RegionConfig{Name: name}
		}
		return out
	case BackendMinIO:
		name := c.Region
		if name == "" {
			name = "us-east-1"
		}
		return []RegionConfig{{Name: name}}
	}
	return nil
}

// Redacted returns a copy with the API key masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.APIKey != "" {
		out.APIKey = "********"
	}
	return out
}

// YAML renders the effective configuration with the API key masked.
func (c *Config) YAML() ([]byte, error) {
	r := c.Redacted()
	data, err := yaml.Marshal(&r)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}
