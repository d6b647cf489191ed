package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Email    EmailConfig
	Redis    RedisConfig
	Log      LogConfig
	Cache    CacheConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
	Environment  string
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Enabled        bool
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	DSN            string
	MigrationsPath string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type JWTConfig struct {
	Secret         string
	ExpirationTime time.Duration
	Issuer         string
}

type EmailConfig struct {
	SendGridAPIKey string
	FromEmail      string
	FromName       string
	TemplateDir    string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

// CacheConfig configures the HTTP response cache.
type CacheConfig struct {
	Debug bool
	// DefaultDuration is a duration expression such as "1 hour" or a number of milliseconds.
	DefaultDuration string
	// Namespace is used in the bypass header names (x-<namespace>-bypass).
	Namespace string
	// KeyPrefix namespaces cached records in Redis; it also scopes a full clear.
	KeyPrefix string
	// Store selects the record store: "redis" (shared) or "memory" (per process).
	Store            string
	MemoryMaxEntries int64
}

type StorageConfig struct {
	S3  S3Config
	GCS GCSConfig
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	DefaultACL      string
}

type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	CredentialsJSON string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
			Environment:    getEnv("APP_ENV", "local"),
			AllowedOrigins: getSliceEnv("ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Enabled:         getBoolEnv("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "service_kit"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "./migrations"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret:         getEnv("JWT_SECRET", ""),
			ExpirationTime: getDurationEnv("JWT_EXPIRATION_TIME", time.Hour),
			Issuer:         getEnv("JWT_ISSUER", ""),
		},
		Email: EmailConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("FROM_EMAIL", "noreply@example.com"),
			FromName:       getEnv("FROM_NAME", "Service Kit"),
			TemplateDir:    getEnv("EMAIL_TEMPLATE_DIR", "templates/email"),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Cache: CacheConfig{
			Debug:            getBoolEnv("APICACHE_DEBUG", false) || debugEnvContains("apicache"),
			DefaultDuration:  getEnv("APICACHE_DEFAULT_DURATION", "1 hour"),
			Namespace:        getEnv("APICACHE_NAMESPACE", "apicache"),
			KeyPrefix:        getEnv("APICACHE_KEY_PREFIX", "apicache"),
			Store:            strings.ToLower(getEnv("APICACHE_STORE", "redis")),
			MemoryMaxEntries: int64(getIntEnv("APICACHE_MEMORY_MAX_ENTRIES", 10000)),
		},
		Storage: StorageConfig{
			S3: S3Config{
				Region:          getEnv("AWS_REGION", "us-east-1"),
				Bucket:          getEnv("S3_BUCKET", ""),
				AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
				SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
				Endpoint:        getEnv("S3_ENDPOINT", ""),
				DefaultACL:      getEnv("S3_DEFAULT_ACL", "private"),
			},
			GCS: GCSConfig{
				Bucket:          getEnv("GCS_BUCKET", ""),
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
				CredentialsJSON: getEnv("GCS_CREDENTIALS_JSON", ""),
			},
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	return cfg, cfg.Validate()
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET is not set"))
	}
	if c.JWT.Issuer == "" {
		errs = append(errs, fmt.Errorf("JWT_ISSUER is not set"))
	}
	if c.Redis.Host == "" || c.Redis.Port == "" {
		errs = append(errs, fmt.Errorf("REDIS_HOST and REDIS_PORT must be set"))
	}
	if c.Cache.Store != "redis" && c.Cache.Store != "memory" {
		errs = append(errs, fmt.Errorf("APICACHE_STORE must be redis or memory, got %q", c.Cache.Store))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// S3Enabled reports whether an S3 bucket is configured.
func (c *StorageConfig) S3Enabled() bool { return c.S3.Bucket != "" }

// GCSEnabled reports whether a GCS bucket is configured.
func (c *StorageConfig) GCSEnabled() bool { return c.GCS.Bucket != "" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getSliceEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// debugEnvContains checks the comma separated DEBUG variable for name.
func debugEnvContains(name string) bool {
	for _, part := range strings.Split(os.Getenv("DEBUG"), ",") {
		if strings.TrimSpace(part) == name {
			return true
		}
	}
	return false
}
