package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"120s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RunTimeout      time.Duration `yaml:"run_timeout" default:"110s"`
		CORS            struct {
			Enabled      bool          `yaml:"enabled" default:"true"`
			AllowOrigins []string      `yaml:"allow_origins"`
			MaxAge       time.Duration `yaml:"max_age" default:"10m"`
		} `yaml:"cors"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logger struct {
		Level      string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format     string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output     string `yaml:"output" default:"stdout" validate:"required"`
		TimeFormat string `yaml:"time_format"`
		MaxSizeMB  int    `yaml:"max_size_mb" default:"100"`
		MaxBackups int    `yaml:"max_backups" default:"3"`
		MaxAgeDays int    `yaml:"max_age_days" default:"28"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logger"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost" validate:"required_if=Enabled true"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"finwalk"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		InitSchema       bool          `yaml:"init_schema" default:"true"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		MaxRows          int           `yaml:"max_rows" default:"200000" validate:"gt=0"`
		Breaker          struct {
			MaxRequests      uint32        `yaml:"max_requests" default:"1"`
			Interval         time.Duration `yaml:"interval" default:"60s"`
			Timeout          time.Duration `yaml:"timeout" default:"30s"`
			FailureThreshold uint32        `yaml:"failure_threshold" default:"5" validate:"gt=0"`
		} `yaml:"breaker"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled   bool          `yaml:"enabled"`
		Addr      string        `yaml:"addr" default:"localhost:6379"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		KeyPrefix string        `yaml:"key_prefix" default:"finwalk"`
		TTL       time.Duration `yaml:"ttl" default:"24h"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled          bool     `yaml:"enabled"`
		Brokers          []string `yaml:"brokers" validate:"required_if=Enabled true"`
		RequiredAcks     int      `yaml:"required_acks" default:"1"`
		Compression      string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		AutoCreateTopics bool     `yaml:"auto_create_topics"`
		Producer         struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		RunsTopic    string `yaml:"runs_topic" default:"finwalk.runs"`
		LogCollector struct {
			Topic          string        `yaml:"topic" default:"finwalk.logs"`
			Interval       time.Duration `yaml:"interval" default:"30s"`
			CountThreshold int           `yaml:"count_threshold" default:"100"`
		} `yaml:"log_collector"`
	} `yaml:"kafka"`
	Stats struct {
		Provider   string        `yaml:"provider" default:"local" validate:"oneof=local remote"`
		Method     string        `yaml:"method" default:"welch" validate:"oneof=welch student paired"`
		ServiceURL string        `yaml:"service_url" validate:"omitempty,url"`
		Timeout    time.Duration `yaml:"timeout" default:"5s"`
		Retries    int           `yaml:"retries" default:"3" validate:"gte=1"`
	} `yaml:"stats"`
	Simulator struct {
		Fees     float64       `yaml:"fees" validate:"gte=0,lt=1"`
		Cache    bool          `yaml:"cache" default:"true"`
		CacheTTL time.Duration `yaml:"cache_ttl" default:"1h"`
	} `yaml:"simulator"`
	WalkForward struct {
		WindowLen         int     `yaml:"window_len" default:"730" validate:"gt=1"`
		OOSLen            int     `yaml:"oos_len" default:"180" validate:"gt=0,ltfield=WindowLen"`
		Splits            int     `yaml:"splits" default:"30" validate:"gte=0"`
		Stride            int     `yaml:"stride" validate:"gte=0"`
		Placement         string  `yaml:"placement" default:"right_to_left" validate:"oneof=left_to_right right_to_left"`
		Candidates        []int   `yaml:"candidates" validate:"omitempty,min=2,dive,gt=0"`
		Direction         string  `yaml:"direction" default:"long" validate:"oneof=long short both"`
		Frequency         string  `yaml:"frequency" default:"1d" validate:"oneof=1s 1m 5m 15m 1h 4h 1d"`
		HigherIsBetter    bool    `yaml:"higher_is_better" default:"true"`
		Threshold         float64 `yaml:"significance_threshold" default:"0.05" validate:"gt=0,lt=1"`
		Alternative       string  `yaml:"alternative" default:"out_sample_greater" validate:"oneof=out_sample_greater two_sided out_sample_less"`
		Workers           int     `yaml:"workers" default:"4" validate:"gte=1,lte=256"`
		MaxEvaluations    int     `yaml:"max_evaluations" default:"100000" validate:"gte=0"`
		SkipInvalidSplits bool    `yaml:"skip_invalid_splits" default:"true"`
		Holding           bool    `yaml:"holding_baseline" default:"true"`
	} `yaml:"walkforward"`
	RateLimit struct {
		RPS   float64 `yaml:"rps" default:"2" validate:"gt=0"`
		Burst int     `yaml:"burst" default:"4" validate:"gt=0"`
	} `yaml:"ratelimit"`
}

var validate = validator.New()

// Default returns a configuration holding only default values.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	if len(c.WalkForward.Candidates) == 0 {
		c.WalkForward.Candidates = DefaultCandidates()
	}
	return &c, nil
}

// DefaultCandidates is 10..49, one step apart.
func DefaultCandidates() []int {
	out := make([]int, 0, 40)
	for w := 10; w < 50; w++ {
		out = append(out, w)
	}
	return out
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(c.WalkForward.Candidates) == 0 {
		c.WalkForward.Candidates = DefaultCandidates()
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file in the working directory is loaded first when present.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("FINWALK_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("STATS_SERVICE_URL"); v != "" {
		c.Stats.ServiceURL = v
		c.Stats.Provider = "remote"
	}
	if v := os.Getenv("WALKFORWARD_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WALKFORWARD_WORKERS: %w", err)
		}
		c.WalkForward.Workers = n
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Stats.Provider == "remote" && c.Stats.ServiceURL == "" {
		return fmt.Errorf("stats.service_url is required for the remote provider")
	}
	wf := c.WalkForward
	if (wf.Splits > 0) == (wf.Stride > 0) {
		return fmt.Errorf("walkforward: exactly one of splits and stride must be positive (splits=%d stride=%d)", wf.Splits, wf.Stride)
	}
	return nil
}
