package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes the runtime configuration of the tracker.
type Config struct {
	Prod     bool   `yaml:"prod"`
	LogLevel string `yaml:"log_level"`

	API       APIConfig       `yaml:"api"`
	Polling   PollingConfig   `yaml:"polling"`
	Channel   ChannelConfig   `yaml:"channel"`
	Redis     RedisConfig     `yaml:"redis"`
	Server    ServerConfig    `yaml:"server"`
	Preflight PreflightConfig `yaml:"preflight"`
}

type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Token          string        `yaml:"token"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	UploadTimeout  time.Duration `yaml:"upload_timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`
	RatePerSecond  float64       `yaml:"rate_per_second"`
	Burst          int           `yaml:"burst"`
}

type PollingConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type ChannelConfig struct {
	Disabled        bool          `yaml:"disabled"`
	PingInterval    time.Duration `yaml:"ping_interval"`
	LivenessTimeout time.Duration `yaml:"liveness_timeout"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
	// MaxStreamDuration bounds how long a job may stay on the channel without a terminal status.
	MaxStreamDuration time.Duration `yaml:"max_stream_duration"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

type ServerConfig struct {
	ListenAddr   string `yaml:"listen_addr"`
	AuthToken    string `yaml:"auth_token"`
	NoAuthBypass bool   `yaml:"no_auth_bypass"`
}

type PreflightConfig struct {
	MaxUploadSize int64    `yaml:"max_upload_size"`
	AllowedTypes  []string `yaml:"allowed_types"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel: "debug",
		API: APIConfig{
			BaseURL:        DefaultAPIBaseURL,
			RequestTimeout: DefaultRequestTimeout,
			UploadTimeout:  DefaultUploadTimeout,
			MaxRetries:     DefaultMaxRetries,
			RetryBaseDelay: DefaultRetryBaseDelay,
			RetryMaxDelay:  DefaultRetryMaxDelay,
			RatePerSecond:  DefaultClientRatePerSec,
			Burst:          DefaultClientBurst,
		},
		Polling: PollingConfig{
			Interval:    DefaultPollInterval,
			MaxAttempts: DefaultPollMaxAttempts,
		},
		Channel: ChannelConfig{
			PingInterval:    DefaultPingInterval,
			LivenessTimeout: DefaultLivenessTimeout,
			DialTimeout:       DefaultDialTimeout,
			MaxStreamDuration: DefaultMaxStreamDuration,
		},
		Redis: RedisConfig{
			Addr: RedisAddr,
		},
		Server: ServerConfig{
			ListenAddr: ServerListenAddr,
		},
		Preflight: PreflightConfig{
			MaxUploadSize: DefaultMaxUploadSizeByte,
			AllowedTypes:  []string{".pdf", ".docx", ".rtf", ".txt"},
		},
	}
}

// Load reads a YAML config from path on top of the defaults. A missing or empty
// file yields the defaults. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("empty config path")
	}
	fileData, err := os.ReadFile(path) //nolint:gosec // config path comes from the operator
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if len(fileData) > 0 {
		if err := yaml.Unmarshal(fileData, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml: %w", err)
		}
	}
	applyEnv(&cfg)
	cfg.Preflight.AllowedTypes = normalizeExtensions(cfg.Preflight.AllowedTypes)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DOCWATCH_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("DOCWATCH_TOKEN"); v != "" {
		cfg.API.Token = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
}

// Validate rejects values that would let a polling or liveness loop run unbounded.
func (c Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.Polling.Interval <= 0 {
		return fmt.Errorf("invalid polling.interval: %s (must be > 0)", c.Polling.Interval)
	}
	if c.Polling.MaxAttempts < 1 {
		return fmt.Errorf("invalid polling.max_attempts: %d (must be >= 1)", c.Polling.MaxAttempts)
	}
	if c.Channel.PingInterval <= 0 || c.Channel.LivenessTimeout <= c.Channel.PingInterval {
		return fmt.Errorf("channel.liveness_timeout (%s) must exceed channel.ping_interval (%s)",
			c.Channel.LivenessTimeout, c.Channel.PingInterval)
	}
	if c.Channel.MaxStreamDuration <= 0 {
		return fmt.Errorf("invalid channel.max_stream_duration: %s (must be > 0)", c.Channel.MaxStreamDuration)
	}
	if c.API.MaxRetries < 0 {
		return fmt.Errorf("invalid api.max_retries: %d", c.API.MaxRetries)
	}
	return nil
}

func normalizeExtensions(in []string) []string {
	if len(in) == 0 {
		return Default().Preflight.AllowedTypes
	}
	seen := make(map[string]struct{}, len(in))
	normalized := make([]string, 0, len(in))
	for _, ext := range in {
		e := strings.ToLower(strings.TrimSpace(ext))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		normalized = append(normalized, e)
	}
	return normalized
}
