package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	NATS       NATSConfig       `mapstructure:"nats"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Keywords   KeywordsConfig   `mapstructure:"keywords"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	STT        STTConfig        `mapstructure:"stt"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Fallback   FallbackConfig   `mapstructure:"fallback"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Version     string `mapstructure:"version"`
	Debug       bool   `mapstructure:"debug"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	Schema          string        `mapstructure:"schema"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&search_path=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.Schema,
	)
}

type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	URL        string `mapstructure:"url"`
	StreamName string `mapstructure:"stream_name"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

// KeywordsConfig selects where the scam keyword list is loaded from.
type KeywordsConfig struct {
	Source string `mapstructure:"source"` // "file" or "postgres"
	Path   string `mapstructure:"path"`
}

type ClassifierConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	Iterations int     `mapstructure:"iterations"`
	LearnRate  float64 `mapstructure:"learn_rate"`
}

type STTConfig struct {
	Provider string        `mapstructure:"provider"` // "whisper" or "simulated"
	Endpoint string        `mapstructure:"endpoint"`
	Language string        `mapstructure:"language"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	AnalysisTTL time.Duration `mapstructure:"analysis_ttl"`
}

type FallbackConfig struct {
	DataDir        string `mapstructure:"data_dir"`
	TranscriptFile string `mapstructure:"transcript_file"`
	SampleAudio    string `mapstructure:"sample_audio"`
}

const (
	KeywordSourceFile     = "file"
	KeywordSourcePostgres = "postgres"

	STTProviderWhisper   = "whisper"
	STTProviderSimulated = "simulated"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "callguard")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8000)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.max_upload_bytes", 25<<20)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "callguard")
	v.SetDefault("database.dbname", "callguard")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.schema", "public")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.key_prefix", "callguard:")

	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.stream_name", "CALLGUARD_ALERTS")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"*"})
	v.SetDefault("cors.max_age", 300)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_minute", 120)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.time_format", time.RFC3339)

	v.SetDefault("keywords.source", KeywordSourceFile)
	v.SetDefault("keywords.path", "data/scam_keywords.txt")

	v.SetDefault("classifier.enabled", true)
	v.SetDefault("classifier.iterations", 500)
	v.SetDefault("classifier.learn_rate", 0.5)

	v.SetDefault("stt.provider", STTProviderSimulated)
	v.SetDefault("stt.endpoint", "http://localhost:9000/asr")
	v.SetDefault("stt.language", "auto")
	v.SetDefault("stt.timeout", 60*time.Second)

	v.SetDefault("cache.analysis_ttl", 10*time.Minute)

	v.SetDefault("fallback.data_dir", "data")
	v.SetDefault("fallback.transcript_file", "fallback_transcript.txt")
	v.SetDefault("fallback.sample_audio", "sample_scam_call.wav")
}

// Load reads configuration from file and environment variables. A missing
// config file is not an error when no explicit path was given.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/callguard")
	}

	v.SetEnvPrefix("CALLGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadDefault loads configuration with default path
func LoadDefault() (*Config, error) {
	return Load("")
}

// Validate rejects settings that cannot be served
func (c *Config) Validate() error {
	switch c.Keywords.Source {
	case KeywordSourceFile, KeywordSourcePostgres:
	default:
		return fmt.Errorf("unknown keywords.source %q", c.Keywords.Source)
	}
	switch c.STT.Provider {
	case STTProviderWhisper, STTProviderSimulated:
	default:
		return fmt.Errorf("unknown stt.provider %q", c.STT.Provider)
	}
	if c.Keywords.Source == KeywordSourcePostgres && !c.Database.Enabled {
		return fmt.Errorf("keywords.source=postgres requires database.enabled")
	}
	return nil
}
