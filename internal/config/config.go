// Package config loads run settings from a config file, .env, the environment
// and command-line flags.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PATHOVAR_POLICY.
const EnvPrefix = "PATHOVAR"

// Config holds the settings shared by the CLI and the web server.
type Config struct {
	InputFasta         string `mapstructure:"input_fasta"`
	OutputFasta        string `mapstructure:"output_fasta"`
	Policy             string `mapstructure:"policy"`
	LogFile            string `mapstructure:"log_file"`
	LogLevel           string `mapstructure:"log_level"`
	ProteinsAPIBase    string `mapstructure:"proteins_api_base"`
	CacheStore         string `mapstructure:"cache_store"`
	CachePath          string `mapstructure:"cache_path"`
	CacheTTLSecs       int64  `mapstructure:"cache_ttl_seconds"`
	Concurrency        int    `mapstructure:"concurrency"`
	QPS                int    `mapstructure:"qps"`
	RequestTimeoutSecs int64  `mapstructure:"request_timeout_seconds"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input_fasta", "")
	v.SetDefault("output_fasta", "all_pathogenic_variants_combined.fasta")
	v.SetDefault("policy", "pathogenic")
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("proteins_api_base", "https://www.ebi.ac.uk/proteins/api")
	v.SetDefault("cache_store", "json")
	v.SetDefault("cache_path", "")
	v.SetDefault("cache_ttl_seconds", int64(7*24*3600))
	v.SetDefault("concurrency", 4)
	v.SetDefault("qps", 10)
	v.SetDefault("request_timeout_seconds", int64(30))
}

// DotEnvFile is loaded into the environment before config is read, when
// present. Variables already set are not overridden.
var DotEnvFile = ".env"

// LoadConfig reads configuration into v and decodes it. If path is empty,
// ./config.json is used when present; a missing default file is not an
// error. Environment variables with EnvPrefix override file values, and
// flags bound to v override both.
func LoadConfig(v *viper.Viper, path string) (*Config, error) {
	if DotEnvFile != "" {
		if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = "config.json"
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// CacheTTL returns the cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSecs) * time.Second
}

// RequestTimeout returns the per-lookup timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}
