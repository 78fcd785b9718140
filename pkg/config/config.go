package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Ephemeris sources.
const (
	SourceAnalytic   = "analytic"
	SourceClickHouse = "clickhouse"
	SourceRemote     = "remote"
)

type Config struct {
	Environment string          `yaml:"environment" default:"development" validate:"required"`
	Log         LogConfig       `yaml:"log"`
	Server      ServerConfig    `yaml:"server"`
	Metrics     MetricsConfig   `yaml:"metrics"`
	Astro       AstroConfig     `yaml:"astro"`
	Ephemeris   EphemerisConfig `yaml:"ephemeris"`
	ClickHouse  ClickHouse      `yaml:"clickhouse"`
	Kafka       KafkaConfig     `yaml:"kafka"`
	Cache       CacheConfig     `yaml:"cache"`
	RateLimit   RateLimit       `yaml:"ratelimit"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
	// Topic receives aggregated error logs when Kafka is enabled.
	Topic string `yaml:"topic"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig controls cross-origin access to the API. A "*" origin allows any caller.
type CORSConfig struct {
	Enabled      bool          `yaml:"enabled" default:"true"`
	AllowOrigins []string      `yaml:"allow_origins" default:"[\"*\"]" validate:"dive,required"`
	MaxAge       time.Duration `yaml:"max_age" default:"10m"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// AstroConfig tunes the search. Step sizes are in minutes.
type AstroConfig struct {
	SiderealMode        string        `yaml:"sidereal_mode" default:"lahiri" validate:"oneof=lahiri"`
	CivilZone           string        `yaml:"civil_zone" default:"UTC"`
	PaddingDays         int           `yaml:"padding_days" default:"60" validate:"gte=1,lte=3660"`
	AngularToleranceDeg float64       `yaml:"angular_tolerance_deg" default:"0.025" validate:"gt=0"`
	MinStepMinutes      int           `yaml:"min_step_minutes" default:"1" validate:"gte=1"`
	MaxStepMinutes      int           `yaml:"max_step_minutes" default:"10" validate:"gte=1"`
	MaxStepsPerSearch   int64         `yaml:"max_steps_per_search" default:"2000000" validate:"gte=0"`
	RefineTo            time.Duration `yaml:"refine_to"`
	Parallel            bool          `yaml:"parallel" default:"true"`
}

type EphemerisConfig struct {
	Source         string        `yaml:"source" default:"analytic" validate:"oneof=analytic clickhouse remote"`
	Table          string        `yaml:"table" default:"astro.ephemeris"`
	RemoteURL      string        `yaml:"remote_url"`
	Timeout        time.Duration `yaml:"timeout" default:"5s"`
	RetryAttempts  int           `yaml:"retry_attempts" default:"3" validate:"gte=1"`
	SampleInterval time.Duration `yaml:"sample_interval" default:"1h"`
	Chunk          time.Duration `yaml:"chunk" default:"744h"`
}

type ClickHouse struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"astro"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time"`
}

type KafkaConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Brokers      []string `yaml:"brokers"`
	RequestTopic string   `yaml:"request_topic" default:"astro.overlap.requests"`
	ResultTopic  string   `yaml:"result_topic" default:"astro.overlap.results"`
	RequiredAcks int      `yaml:"required_acks" default:"-1"`
	Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"5"`
		Linger       time.Duration `yaml:"linger" default:"10ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"astro-overlap"`
		Workers    int           `yaml:"workers" default:"4" validate:"gte=1"`
		BufferSize int           `yaml:"buffer_size" default:"64"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"200ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
		DLQTopic   string        `yaml:"dlq_topic" default:"astro.overlap.requests.dlq"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10485760"`
	} `yaml:"consumer"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled" default:"true"`
	TTL     time.Duration `yaml:"ttl" default:"24h"`
	Redis   struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
}

type RateLimit struct {
	Capacity     int     `yaml:"capacity" default:"20" validate:"gte=1"`
	RefillPerSec float64 `yaml:"refill_per_sec" default:"5" validate:"gt=0"`
}

var validate = validator.New()

// Load reads a YAML file, fills defaults and validates.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse fills defaults, decodes YAML bytes over them and validates.
// Defaults go first so an explicit false or 0 in the file is kept.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("EPHEMERIS_SOURCE"); v != "" {
		c.Ephemeris.Source = v
	}
	if v := getenv("CIVIL_ZONE"); v != "" {
		c.Astro.CivilZone = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("KAFKA_REQUEST_TOPIC"); v != "" {
		c.Kafka.RequestTopic = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Redis.Enabled = true
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORS.AllowOrigins = strings.Split(v, ",")
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// Validate checks tags, then rules spanning several fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Astro.MinStepMinutes > c.Astro.MaxStepMinutes {
		return fmt.Errorf("astro.min_step_minutes (%d) exceeds astro.max_step_minutes (%d)",
			c.Astro.MinStepMinutes, c.Astro.MaxStepMinutes)
	}
	switch c.Ephemeris.Source {
	case SourceClickHouse:
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for ephemeris.source=clickhouse")
		}
	case SourceRemote:
		if c.Ephemeris.RemoteURL == "" {
			return fmt.Errorf("ephemeris.remote_url is required for ephemeris.source=remote")
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka.enabled")
	}
	return nil
}
