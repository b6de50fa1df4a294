// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/rapport/internal/logging"
	"github.com/aretw0/rapport/pkg/adapters/remote"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no configuration file is named explicitly.
const DefaultFile = "rapport.yaml"

// Environment variables recognised by Load.
const (
	EnvAPIBaseURL    = "RAPPORT_API_BASE_URL"
	EnvLegacyBaseURL = "NEXT_PUBLIC_API_BASE_URL"
	EnvLogLevel      = "RAPPORT_LOG_LEVEL"
	EnvHTTPPort      = "RAPPORT_HTTP_PORT"
	EnvRedisAddr     = "RAPPORT_REDIS_ADDR"
	EnvRedisPassword = "RAPPORT_REDIS_PASSWORD"
	EnvRedisDB       = "RAPPORT_REDIS_DB"
	EnvRedisPrefix   = "RAPPORT_REDIS_PREFIX"
	EnvRedisTTL      = "RAPPORT_REDIS_TTL"
	EnvSessionID     = "RAPPORT_SESSION_ID"
)

const (
	defaultHTTPPort    = 8080
	defaultStubPort    = 8000
	defaultRedisPrefix = "rapport:session:"
)

// Config holds all application configuration.
type Config struct {
	// APIBaseURL is the root of the answer endpoint; requests go to APIBaseURL + "/chat".
	APIBaseURL string `yaml:"api_base_url" mapstructure:"api_base_url"`
	LogLevel   string `yaml:"log_level" mapstructure:"log_level"`
	SessionID  string `yaml:"session_id" mapstructure:"session_id"`

	HTTP  HTTPConfig  `yaml:"http" mapstructure:"http"`
	Stub  StubConfig  `yaml:"stub" mapstructure:"stub"`
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// HTTPConfig controls the session HTTP adapter.
type HTTPConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// StubConfig controls the development answer endpoint.
type StubConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// RedisConfig controls the optional snapshot publisher. Empty Addr disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr" mapstructure:"addr"`
	Password string        `yaml:"password" mapstructure:"password"`
	DB       int           `yaml:"db" mapstructure:"db"`
	Prefix   string        `yaml:"prefix" mapstructure:"prefix"`
	TTL      time.Duration `yaml:"ttl" mapstructure:"ttl"`

	// Redact lists regular expressions masked in published snapshots.
	Redact []string `yaml:"redact" mapstructure:"redact"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		APIBaseURL: remote.DefaultBaseURL,
		LogLevel:   "info",
		HTTP:       HTTPConfig{Port: defaultHTTPPort},
		Stub:       StubConfig{Port: defaultStubPort},
		Redis:      RedisConfig{Prefix: defaultRedisPrefix},
	}
}

// Load builds the configuration from defaults, then the YAML file at path,
// then environment variables. An empty path reads DefaultFile if it exists;
// a named file that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultFile
	}
	if err := cfg.mergeFile(path, optional); err != nil {
		return nil, err
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from .env files without overriding the ones already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) mergeFile(path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           c,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv() error {
	if v := getEnv(EnvLegacyBaseURL); v != "" {
		c.APIBaseURL = v
	}
	if v := getEnv(EnvAPIBaseURL); v != "" {
		c.APIBaseURL = v
	}
	if v := getEnv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := getEnv(EnvSessionID); v != "" {
		c.SessionID = v
	}
	if v := getEnv(EnvRedisAddr); v != "" {
		c.Redis.Addr = v
	}
	if v := getEnv(EnvRedisPassword); v != "" {
		c.Redis.Password = v
	}
	if v := getEnv(EnvRedisPrefix); v != "" {
		c.Redis.Prefix = v
	}

	var err error
	if c.HTTP.Port, err = getEnvInt(EnvHTTPPort, c.HTTP.Port); err != nil {
		return err
	}
	if c.Redis.DB, err = getEnvInt(EnvRedisDB, c.Redis.DB); err != nil {
		return err
	}
	if v := getEnv(EnvRedisTTL); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRedisTTL, err)
		}
		c.Redis.TTL = ttl
	}
	return nil
}

// Validate checks that all configuration fields are usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("api_base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api_base_url must be an http(s) URL, got %q", c.APIBaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("api_base_url has no host: %q", c.APIBaseURL)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if err := validPort("http.port", c.HTTP.Port); err != nil {
		return err
	}
	if err := validPort("stub.port", c.Stub.Port); err != nil {
		return err
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must be >= 0")
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must be >= 0")
	}
	for _, p := range c.Redis.Redact {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("redis.redact: %w", err)
		}
	}
	return nil
}

// RedisEnabled reports whether snapshots should be published to Redis.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

func validPort(name string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
	}
	return nil
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func getEnvInt(key string, fallback int) (int, error) {
	value := getEnv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
