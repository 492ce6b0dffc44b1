// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Indexer, Search, Postgres, Kafka, Redis, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// AllowOrigins lists origins allowed by CORS; "*" allows any.
	AllowOrigins []string `yaml:"allowOrigins"`
	// RateLimit is the number of API requests per client per RateWindow.
	// Zero disables rate limiting.
	RateLimit  int           `yaml:"rateLimit"`
	RateWindow time.Duration `yaml:"rateWindow"`
}

// IndexerConfig controls where the documentation corpus lives, where
// snapshots are written, and how often the corpus is re-indexed.
type IndexerConfig struct {
	CorpusPath       string        `yaml:"corpusPath"`
	CacheDir         string        `yaml:"cacheDir"`
	CorpusVersion    string        `yaml:"corpusVersion"`
	UpdateInterval   time.Duration `yaml:"updateInterval"`
	MaxFileSize      int64         `yaml:"maxFileSize"`
	MinContentLength int           `yaml:"minContentLength"`
	MaxContentLength int           `yaml:"maxContentLength"`
	SaveEvery        int           `yaml:"saveEvery"`
	Workers          int           `yaml:"workers"`
	Watch            bool          `yaml:"watch"`
	WatchDebounce    time.Duration `yaml:"watchDebounce"`
}

// SearchConfig controls query defaults, the quality floor, and the scoring
// weights used by the adaptive ranker.
type SearchConfig struct {
	DefaultLimit      int            `yaml:"defaultLimit"`
	MaxResults        int            `yaml:"maxResults"`
	QualityFloor      float64        `yaml:"qualityFloor"`
	ImportantSections []string       `yaml:"importantSections"`
	Weights           ScoringWeights `yaml:"weights"`
}

// ScoringWeights are the tunable bonus and penalty magnitudes of the
// adaptive ranker. Only their relative ordering is meaningful:
// title > description > content frequency > section metadata.
type ScoringWeights struct {
	TitleExact       float64 `yaml:"titleExact"`
	TitleContains    float64 `yaml:"titleContains"`
	Description      float64 `yaml:"description"`
	ContentFrequency float64 `yaml:"contentFrequency"`
	// ContentFrequencyCap bounds the per-term content bonus so repetition
	// cannot outrank a description match. Zero disables the bound.
	ContentFrequencyCap float64 `yaml:"contentFrequencyCap"`
	Section             float64 `yaml:"section"`
	Subsection          float64 `yaml:"subsection"`
	ExactPhrase         float64 `yaml:"exactPhrase"`
	CategoryMatch       float64 `yaml:"categoryMatch"`
	BeginnerBonus       float64 `yaml:"beginnerBonus"`
	AdvancedPenalty     float64 `yaml:"advancedPenalty"`
	TechnicalBonus      float64 `yaml:"technicalBonus"`
	ContextualTerm      float64 `yaml:"contextualTerm"`
	LongDocument        float64 `yaml:"longDocument"`
	VeryLongDocument    float64 `yaml:"veryLongDocument"`
	RecentSixMonths     float64 `yaml:"recentSixMonths"`
	RecentYear          float64 `yaml:"recentYear"`
	CodePenalty         float64 `yaml:"codePenalty"`
	ImportantSection    float64 `yaml:"importantSection"`
	ShortPenalty        float64 `yaml:"shortPenalty"`
	WellFormedTitle     float64 `yaml:"wellFormedTitle"`
	MaxScore            float64 `yaml:"maxScore"`
}

// DefaultScoringWeights returns the weights the ranker uses when none are
// configured.
func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		TitleExact:          50,
		TitleContains:       20,
		Description:         10,
		ContentFrequency:    3,
		ContentFrequencyCap: 8,
		Section:             4,
		Subsection:          2,
		ExactPhrase:         25,
		CategoryMatch:       15,
		BeginnerBonus:       10,
		AdvancedPenalty:     10,
		TechnicalBonus:      10,
		ContextualTerm:      5,
		LongDocument:        5,
		VeryLongDocument:    5,
		RecentSixMonths:     8,
		RecentYear:          4,
		CodePenalty:         5,
		ImportantSection:    5,
		ShortPenalty:        10,
		WellFormedTitle:     2,
		MaxScore:            1000,
	}
}

// PostgresConfig holds PostgreSQL connection parameters. The database only
// stores the indexing run log and is optional.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete   string `yaml:"indexComplete"`
	SearchEvents    string `yaml:"searchEvents"`
	ReindexRequests string `yaml:"reindexRequests"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging for the search pipeline.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a .env file (if present), then a YAML config file (if
// provided), and finally applies environment-variable overrides. It returns
// a Config populated with sensible defaults for any missing values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env file: %w", err)
	}
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the indexer cannot run with.
func (c *Config) Validate() error {
	if c.Indexer.CorpusPath == "" {
		return errors.New("indexer.corpusPath is required")
	}
	if c.Indexer.CacheDir == "" {
		return errors.New("indexer.cacheDir is required")
	}
	if c.Indexer.UpdateInterval <= 0 {
		return fmt.Errorf("indexer.updateInterval must be positive, got %s", c.Indexer.UpdateInterval)
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow <= 0 {
		return fmt.Errorf("server.rateWindow must be positive when rateLimit is set, got %s", c.Server.RateWindow)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search limits invalid: defaultLimit=%d maxResults=%d",
			c.Search.DefaultLimit, c.Search.MaxResults)
	}
	return nil
}

// defaultConfig returns a Config with production-ready defaults for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowOrigins:    []string{"*"},
			RateLimit:       120,
			RateWindow:      time.Minute,
		},
		Indexer: IndexerConfig{
			CorpusPath:       "data/documentation",
			CacheDir:         "data/cache",
			CorpusVersion:    "17.0",
			UpdateInterval:   24 * time.Hour,
			MaxFileSize:      1 << 20,
			MinContentLength: 100,
			MaxContentLength: 50000,
			SaveEvery:        50,
			Workers:          4,
			WatchDebounce:    30 * time.Second,
		},
		Search: SearchConfig{
			DefaultLimit:      20,
			MaxResults:        100,
			QualityFloor:      10,
			ImportantSections: []string{"applications", "administration", "getting_started", "essentials"},
			Weights:           DefaultScoringWeights(),
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "docsearch",
			User:            "docsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "docsearch-group",
			Topics: KafkaTopics{
				IndexComplete:   "docs.index.complete",
				SearchEvents:    "docs.search.events",
				ReindexRequests: "docs.reindex.requests",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			SampleRate: 0.1,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DS_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("DS_ALLOW_ORIGINS"); v != "" {
		cfg.Server.AllowOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_CORPUS_PATH"); v != "" {
		cfg.Indexer.CorpusPath = v
	}
	if v := os.Getenv("DS_CACHE_DIR"); v != "" {
		cfg.Indexer.CacheDir = v
	}
	if v := os.Getenv("DS_CORPUS_VERSION"); v != "" {
		cfg.Indexer.CorpusVersion = v
	}
	if v := os.Getenv("DS_UPDATE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Indexer.UpdateInterval = d
		}
	}
	if v := os.Getenv("DS_INDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Workers = n
		}
	}
	if v := os.Getenv("DS_INDEX_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Indexer.Watch = b
		}
	}
	if v := os.Getenv("DS_POSTGRES_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = b
		}
	}
	if v := os.Getenv("DS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DS_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("DS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("DS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
