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

const (
	StorageProviderLocal = "local"
	StorageProviderS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Exports   ExportsConfig
	Jobs      JobsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig tunes the generator and the optimizer budget applied when a
// request does not override it.
type SchedulerConfig struct {
	Enabled           bool
	ProposalTTL       time.Duration
	CacheTTL          time.Duration
	TimeLimit         time.Duration
	MaxSteps          int
	MaxDepth          int
	MaxDisplaced      int
	Iterations        int
	Seed              int64
	Workers           int
	WeightPref        float64
	WeightUtil        float64
	WeightBalance     float64
	OptimizeByDefault bool
}

// ExportsConfig selects where rendered reports are stored and how download
// links are signed.
type ExportsConfig struct {
	Enabled         bool
	Provider        string
	StorageDir      string
	Bucket          string
	Prefix          string
	Endpoint        string
	Region          string
	AccessKey       string
	SecretKey       string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// JobsConfig sizes the background optimization queue.
type JobsConfig struct {
	Workers int
	Retries int
	Buffer  int
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

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:           v.GetBool("ENABLE_SCHEDULER"),
		ProposalTTL:       parseDuration(v.GetString("SCHEDULER_PROPOSAL_TTL"), 30*time.Minute),
		CacheTTL:          parseDuration(v.GetString("SCHEDULER_CACHE_TTL"), 2*time.Hour),
		TimeLimit:         parseDuration(v.GetString("SCHEDULER_TIME_LIMIT"), 20*time.Second),
		MaxSteps:          v.GetInt("SCHEDULER_MAX_STEPS"),
		MaxDepth:          v.GetInt("SCHEDULER_MAX_DEPTH"),
		MaxDisplaced:      v.GetInt("SCHEDULER_MAX_DISPLACED"),
		Iterations:        v.GetInt("SCHEDULER_ITERATIONS"),
		Seed:              v.GetInt64("SCHEDULER_SEED"),
		Workers:           v.GetInt("SCHEDULER_WORKERS"),
		WeightPref:        v.GetFloat64("SCHEDULER_WEIGHT_PREFERENCE"),
		WeightUtil:        v.GetFloat64("SCHEDULER_WEIGHT_UTILIZATION"),
		WeightBalance:     v.GetFloat64("SCHEDULER_WEIGHT_BALANCE"),
		OptimizeByDefault: v.GetBool("SCHEDULER_OPTIMIZE_BY_DEFAULT"),
	}

	cfg.Exports = ExportsConfig{
		Enabled:         v.GetBool("ENABLE_EXPORTS"),
		Provider:        strings.ToLower(v.GetString("EXPORTS_PROVIDER")),
		StorageDir:      v.GetString("EXPORTS_STORAGE_DIR"),
		Bucket:          v.GetString("EXPORTS_S3_BUCKET"),
		Prefix:          v.GetString("EXPORTS_S3_PREFIX"),
		Endpoint:        v.GetString("EXPORTS_S3_ENDPOINT"),
		Region:          v.GetString("EXPORTS_S3_REGION"),
		AccessKey:       v.GetString("EXPORTS_S3_ACCESS_KEY"),
		SecretKey:       v.GetString("EXPORTS_S3_SECRET_KEY"),
		SignedURLSecret: v.GetString("EXPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("EXPORTS_SIGNED_URL_TTL"), 24*time.Hour),
	}

	cfg.Jobs = JobsConfig{
		Workers: v.GetInt("JOBS_WORKERS"),
		Retries: v.GetInt("JOBS_RETRIES"),
		Buffer:  v.GetInt("JOBS_BUFFER"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Exports.Provider {
	case StorageProviderLocal, StorageProviderS3:
	default:
		return errors.New("EXPORTS_PROVIDER must be local or s3")
	}
	if c.Exports.Enabled && c.Exports.Provider == StorageProviderS3 && c.Exports.Bucket == "" {
		return errors.New("EXPORTS_S3_BUCKET is required for the s3 provider")
	}
	if c.Scheduler.WeightPref < 0 || c.Scheduler.WeightUtil < 0 || c.Scheduler.WeightBalance < 0 {
		return errors.New("scheduler weights must be >= 0")
	}
	if c.Env == EnvProduction && c.JWT.Secret == "dev_secret" {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "classgrid")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_PROPOSAL_TTL", "30m")
	v.SetDefault("SCHEDULER_CACHE_TTL", "2h")
	v.SetDefault("SCHEDULER_TIME_LIMIT", "20s")
	v.SetDefault("SCHEDULER_MAX_STEPS", 20000)
	v.SetDefault("SCHEDULER_MAX_DEPTH", 2)
	v.SetDefault("SCHEDULER_MAX_DISPLACED", 2)
	v.SetDefault("SCHEDULER_ITERATIONS", 2000)
	v.SetDefault("SCHEDULER_SEED", 1)
	v.SetDefault("SCHEDULER_WORKERS", 0)
	v.SetDefault("SCHEDULER_WEIGHT_PREFERENCE", 1.0)
	v.SetDefault("SCHEDULER_WEIGHT_UTILIZATION", 1.0)
	v.SetDefault("SCHEDULER_WEIGHT_BALANCE", 0.5)
	v.SetDefault("SCHEDULER_OPTIMIZE_BY_DEFAULT", true)

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORTS_PROVIDER", StorageProviderLocal)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_S3_BUCKET", "")
	v.SetDefault("EXPORTS_S3_PREFIX", "schedules")
	v.SetDefault("EXPORTS_S3_ENDPOINT", "")
	v.SetDefault("EXPORTS_S3_REGION", "us-east-1")
	v.SetDefault("EXPORTS_S3_ACCESS_KEY", "")
	v.SetDefault("EXPORTS_S3_SECRET_KEY", "")
	v.SetDefault("EXPORTS_SIGNED_URL_SECRET", "dev_exports_secret")
	v.SetDefault("EXPORTS_SIGNED_URL_TTL", "24h")

	v.SetDefault("JOBS_WORKERS", 2)
	v.SetDefault("JOBS_RETRIES", 1)
	v.SetDefault("JOBS_BUFFER", 32)
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
