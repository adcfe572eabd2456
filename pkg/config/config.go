package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Upstream   UpstreamConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Timetable  TimetableConfig
	Generation GenerationConfig
	ShareLinks ShareLinkConfig
}

// UpstreamConfig points at the GenPlan REST API that owns all business logic.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig validates access tokens issued by the upstream API.
type JWTConfig struct {
	Secret     string
	CookieName string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// TimetableConfig tunes snapshot caching and grid memoization.
type TimetableConfig struct {
	CacheEnabled    bool
	CacheTTL        time.Duration
	MemoSize        int
	DefaultBuilding string
}

// GenerationConfig controls the asynchronous schedule generation queue.
type GenerationConfig struct {
	Workers    int
	Retries    int
	RetryDelay time.Duration
	JobTTL     time.Duration
	Timeout    time.Duration
}

// ShareLinkConfig signs shareable timetable export links.
type ShareLinkConfig struct {
	Secret string
	TTL    time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Upstream = UpstreamConfig{
		BaseURL: strings.TrimRight(v.GetString("UPSTREAM_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("UPSTREAM_TIMEOUT"), 15*time.Second),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		CookieName: v.GetString("JWT_COOKIE_NAME"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Timetable = TimetableConfig{
		CacheEnabled:    v.GetBool("ENABLE_CACHE"),
		CacheTTL:        parseDuration(v.GetString("TIMETABLE_CACHE_TTL"), 30*time.Second),
		MemoSize:        v.GetInt("PROJECTION_MEMO_SIZE"),
		DefaultBuilding: v.GetString("DEFAULT_BUILDING"),
	}

	cfg.Generation = GenerationConfig{
		Workers:    v.GetInt("GENERATION_WORKERS"),
		Retries:    v.GetInt("GENERATION_RETRIES"),
		RetryDelay: parseDuration(v.GetString("GENERATION_RETRY_DELAY"), 5*time.Second),
		JobTTL:     parseDuration(v.GetString("GENERATION_JOB_TTL"), time.Hour),
		Timeout:    parseDuration(v.GetString("GENERATION_TIMEOUT"), 10*time.Minute),
	}

	cfg.ShareLinks = ShareLinkConfig{
		Secret: v.GetString("SHARE_LINK_SECRET"),
		TTL:    parseDuration(v.GetString("SHARE_LINK_TTL"), 7*24*time.Hour),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 3000)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("UPSTREAM_BASE_URL", "http://localhost:8000")
	v.SetDefault("UPSTREAM_TIMEOUT", "15s")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_COOKIE_NAME", "access_token")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("TIMETABLE_CACHE_TTL", "30s")
	v.SetDefault("PROJECTION_MEMO_SIZE", 64)
	v.SetDefault("DEFAULT_BUILDING", "all")

	v.SetDefault("GENERATION_WORKERS", 1)
	v.SetDefault("GENERATION_RETRIES", 2)
	v.SetDefault("GENERATION_RETRY_DELAY", "5s")
	v.SetDefault("GENERATION_JOB_TTL", "1h")
	v.SetDefault("GENERATION_TIMEOUT", "10m")

	v.SetDefault("SHARE_LINK_SECRET", "dev_share_secret")
	v.SetDefault("SHARE_LINK_TTL", "168h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
