package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Cache drivers supported by the fallback cache.
const (
	CacheDriverRedis  = "redis"
	CacheDriverMemory = "memory"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Gateway  GatewayConfig
	JWT      JWTConfig
	Auth     AuthConfig
	CORS     CORSConfig
	Log      LogConfig
	Workflow WorkflowConfig
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

// Configured reports whether enough credentials exist to attempt the remote store at all.
func (c DatabaseConfig) Configured() bool {
	return strings.TrimSpace(c.Host) != "" &&
		strings.TrimSpace(c.User) != "" &&
		strings.TrimSpace(c.Name) != ""
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// CacheConfig selects the fallback cache backend.
type CacheConfig struct {
	Driver       string
	KeyPrefix    string
	MaxTxRetries int
}

// GatewayConfig tunes remote attempts made by the persistence gateway.
type GatewayConfig struct {
	RemoteRetries int
	RetryBackoff  time.Duration
	RemoteTimeout time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AuthConfig holds the fixed per-role default passwords and the two admin accounts.
type AuthConfig struct {
	StudentPassword string
	StaffPassword   string
	ParentPassword  string
	Admin1Email     string
	Admin1Password  string
	Admin2Email     string
	Admin2Password  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// WorkflowConfig toggles the change request endpoints.
type WorkflowConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
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

	driver := strings.ToLower(strings.TrimSpace(v.GetString("CACHE_DRIVER")))
	if driver != CacheDriverMemory {
		driver = CacheDriverRedis
	}
	cfg.Cache = CacheConfig{
		Driver:       driver,
		KeyPrefix:    v.GetString("CACHE_KEY_PREFIX"),
		MaxTxRetries: v.GetInt("CACHE_MAX_TX_RETRIES"),
	}

	cfg.Gateway = GatewayConfig{
		RemoteRetries: v.GetInt("GATEWAY_REMOTE_RETRIES"),
		RetryBackoff:  parseDuration(v.GetString("GATEWAY_RETRY_BACKOFF"), 100*time.Millisecond),
		RemoteTimeout: parseDuration(v.GetString("GATEWAY_REMOTE_TIMEOUT"), 5*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Auth = AuthConfig{
		StudentPassword: v.GetString("AUTH_STUDENT_PASSWORD"),
		StaffPassword:   v.GetString("AUTH_STAFF_PASSWORD"),
		ParentPassword:  v.GetString("AUTH_PARENT_PASSWORD"),
		Admin1Email:     v.GetString("AUTH_ADMIN1_EMAIL"),
		Admin1Password:  v.GetString("AUTH_ADMIN1_PASSWORD"),
		Admin2Email:     v.GetString("AUTH_ADMIN2_EMAIL"),
		Admin2Password:  v.GetString("AUTH_ADMIN2_PASSWORD"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Workflow = WorkflowConfig{
		Enabled: v.GetBool("ENABLE_CHANGE_REQUESTS"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("CACHE_DRIVER", CacheDriverRedis)
	v.SetDefault("CACHE_KEY_PREFIX", "campus:")
	v.SetDefault("CACHE_MAX_TX_RETRIES", 5)

	v.SetDefault("GATEWAY_REMOTE_RETRIES", 2)
	v.SetDefault("GATEWAY_RETRY_BACKOFF", "100ms")
	v.SetDefault("GATEWAY_REMOTE_TIMEOUT", "5s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "campus-records-api")

	v.SetDefault("AUTH_STUDENT_PASSWORD", "student123")
	v.SetDefault("AUTH_STAFF_PASSWORD", "staff123")
	v.SetDefault("AUTH_PARENT_PASSWORD", "parent123")
	v.SetDefault("AUTH_ADMIN1_EMAIL", "admin1@campus.local")
	v.SetDefault("AUTH_ADMIN1_PASSWORD", "admin1pass")
	v.SetDefault("AUTH_ADMIN2_EMAIL", "admin2@campus.local")
	v.SetDefault("AUTH_ADMIN2_PASSWORD", "admin2pass")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_CHANGE_REQUESTS", true)
}

// viper reports a missing explicit config file as a path error rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
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
