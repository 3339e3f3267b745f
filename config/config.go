package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-wavelet/logging"
	"github.com/RyanBlaney/sonido-wavelet/pipeline"
	"github.com/RyanBlaney/sonido-wavelet/store"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SONIDO_SERVER_HTTP_ADDR
const EnvPrefix = "SONIDO"

// Store backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	App      AppConfig         `mapstructure:"app"`
	Server   ServerConfig      `mapstructure:"server"`
	Log      logging.ZapConfig `mapstructure:"log"`
	Store    StoreConfig       `mapstructure:"store"`
	Pipeline pipeline.Config   `mapstructure:"pipeline"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// MaxUploadBytes returns the request body limit for uploads
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

type StoreConfig struct {
	Backend       string               `mapstructure:"backend"`
	TTL           time.Duration        `mapstructure:"ttl"`
	SweepSchedule string               `mapstructure:"sweep_schedule"`
	Redis         store.RedisConfig    `mapstructure:"redis"`
	Postgres      store.PostgresConfig `mapstructure:"postgres"`
}

// DefaultCORSOrigins are the web consumers allowed by default
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"https://sibilytics-ai.in",
	"https://www.sibilytics-ai.in",
	"https://app.sibilytics-ai.in",
}

// Load reads configuration from the YAML file at path, then applies
// SONIDO_* environment overrides. A .env file in the working directory is
// loaded into the environment first. The YAML file is skipped when envOnly
// is set or the file does not exist.
func Load(path string, envOnly bool) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if !envOnly && path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("stat config %s: %w", path, err)
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

func setDefaults(v *viper.Viper) {
	p := pipeline.DefaultConfig()

	v.SetDefault("app.env", "dev")

	v.SetDefault("server.http_addr", ":8000")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.max_upload_mb", 200)
	v.SetDefault("server.cors_origins", DefaultCORSOrigins)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", false)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", true)

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.ttl", store.DefaultTTL.String())
	v.SetDefault("store.sweep_schedule", store.DefaultSweepSchedule)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "sonido:upload:")
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.max_open_conns", 20)
	v.SetDefault("store.postgres.max_idle_conns", 5)
	v.SetDefault("store.postgres.conn_max_lifetime", "30m")

	v.SetDefault("pipeline.timeout", p.Timeout.String())
	v.SetDefault("pipeline.workers", p.Workers)
	v.SetDefault("pipeline.default_sample_rate", p.DefaultSampleRate)
	v.SetDefault("pipeline.entropy_bins", p.EntropyBins)
	v.SetDefault("pipeline.max_inflated_mb", p.MaxInflatedMB)
	v.SetDefault("pipeline.threshold.mode", string(p.Threshold.Mode))
	v.SetDefault("pipeline.threshold.estimator", string(p.Threshold.Estimator))
	v.SetDefault("pipeline.spectrum.zero_pad", p.Spectrum.ZeroPad)
	v.SetDefault("pipeline.spectrum.normalize", p.Spectrum.Normalize)
	v.SetDefault("pipeline.spectrogram.window", p.Spectrogram.Window)
	v.SetDefault("pipeline.spectrogram.window_size", p.Spectrogram.WindowSize)
	v.SetDefault("pipeline.spectrogram.hop_size", p.Spectrogram.HopSize)
	v.SetDefault("pipeline.spectrogram.detrend", p.Spectrogram.Detrend)
	v.SetDefault("pipeline.limits.max_response_points", p.Limits.MaxResponsePoints)
	v.SetDefault("pipeline.limits.max_coefficient_points", p.Limits.MaxCoefficientPoints)
	v.SetDefault("pipeline.limits.max_plot_points", p.Limits.MaxPlotPoints)
	v.SetDefault("pipeline.limits.max_detail_plot_points", p.Limits.MaxDetailPlotPoints)
	v.SetDefault("pipeline.limits.max_freq_bins", p.Limits.MaxFreqBins)
	v.SetDefault("pipeline.limits.max_time_bins", p.Limits.MaxTimeBins)
}

// Validate checks cross-field constraints viper cannot express
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required for the redis backend")
		}
	case BackendPostgres:
		if c.Store.Postgres.DSN == "" {
			return errors.New("store.postgres.dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	if c.Store.TTL <= 0 {
		return fmt.Errorf("store.ttl must be positive, got %s", c.Store.TTL)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB)
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}
