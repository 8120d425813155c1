package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// DebugModeEnv is the environment variable for debug mode.
	DebugModeEnv = "DEBUG_MODE"

	// StoreDriverEnv selects the product store backend ("postgres" or "mongo").
	StoreDriverEnv = "STORE_DRIVER"

	// DBHostEnv is the environment variable for database host.
	DBHostEnv = "DB_HOST"

	// DBPortEnv is the environment variable for database port.
	DBPortEnv = "DB_PORT"

	// DBUserEnv is the environment variable for database user.
	DBUserEnv = "DB_USER"

	// DBPassEnv is the environment variable for database password.
	DBPassEnv = "DB_PASS"

	// DBNameEnv is the environment variable for database name.
	DBNameEnv = "DB_NAME"

	// MigrationsURLEnv is the environment variable for the migrations source URL.
	MigrationsURLEnv = "MIGRATIONS_URL"

	// MongoURIEnv is the environment variable for the MongoDB connection string.
	MongoURIEnv = "MONGO_URI"

	// MongoDatabaseEnv is the environment variable for the MongoDB database name.
	MongoDatabaseEnv = "MONGO_DATABASE"

	// HTTPServerPortEnv is the environment variable for HTTP server port.
	HTTPServerPortEnv = "HTTP_SERVER_PORT"

	// MetricsServerPortEnv is the environment variable for metrics server port.
	MetricsServerPortEnv = "METRICS_SERVER_PORT"

	// JWTSecretEnv is the environment variable for the HMAC secret used to verify bearer tokens.
	JWTSecretEnv = "JWT_SECRET"

	// EnvFilePath is the environment variable for .env file path (only for local/test environment).
	EnvFilePath = "ENV_PATH"

	// DefaultEnvFilePath is the default path to the .env file.
	DefaultEnvFilePath = ".env"

	// AWSRegionEnv is the environment variable for AWS region.
	AWSRegionEnv = "AWS_REGION"

	// AWSEndpointEnv is the environment variable for AWS endpoint.
	AWSEndpointEnv = "AWS_ENDPOINT"

	// SQSQueueURLEnv is the environment variable for SQS queue URL.
	SQSQueueURLEnv = "SQS_QUEUE_URL"

	// S3BucketEnv is the environment variable for the product image bucket.
	S3BucketEnv = "S3_BUCKET"

	// S3PresignTTLEnv is the environment variable for presigned image URL lifetime.
	S3PresignTTLEnv = "S3_PRESIGN_TTL"

	// RedisAddrEnv is the environment variable for the Redis address (host:port).
	RedisAddrEnv = "REDIS_ADDR"

	// RedisPasswordEnv is the environment variable for the Redis password.
	RedisPasswordEnv = "REDIS_PASSWORD"

	// RedisDBEnv is the environment variable for the Redis database index.
	RedisDBEnv = "REDIS_DB"

	// CategoryCacheTTLEnv is the environment variable for the category list cache lifetime.
	CategoryCacheTTLEnv = "CATEGORY_CACHE_TTL"

	// OutboxIntervalEnv is the environment variable for the outbox polling interval.
	OutboxIntervalEnv = "OUTBOX_INTERVAL"
)

const (
	// StoreDriverPostgres keeps products in PostgreSQL.
	StoreDriverPostgres = "postgres"

	// StoreDriverMongo keeps products in MongoDB.
	StoreDriverMongo = "mongo"

	defaultMigrationsURL    = "file://migrations"
	defaultMongoDatabase    = "catalog"
	defaultPresignTTL       = time.Hour
	defaultCategoryCacheTTL = 5 * time.Minute
	defaultOutboxInterval   = 2 * time.Second
)

var (
	// ErrMissingConfig is returned when required configuration values are missing.
	ErrMissingConfig = errors.New("missing config data")

	// ErrUnknownStoreDriver is returned when STORE_DRIVER names an unsupported backend.
	ErrUnknownStoreDriver = errors.New("unknown store driver")
)

// Config represents the application configuration.
type Config struct {
	DebugMode      bool
	StoreDriver    string
	Database       DB
	Mongo          Mongo
	HTTPServer     Server
	MetricsServer  Server
	Auth           Auth
	AWS            AWSConfig
	Redis          Redis
	OutboxInterval time.Duration
}

// AWSConfig represents AWS-specific configuration settings.
type AWSConfig struct {
	Region       string
	Endpoint     string
	SQSQueueURL  string
	S3Bucket     string
	S3PresignTTL time.Duration
}

// DB represents database configuration settings.
type DB struct {
	Host          string
	User          string
	Password      string
	Name          string
	Port          string
	MigrationsURL string
}

// Mongo represents MongoDB connection settings.
type Mongo struct {
	URI      string
	Database string
}

// Server represents server configuration settings.
type Server struct {
	Port string
}

// Auth holds bearer token verification settings.
type Auth struct {
	JWTSecret string
}

// Redis holds category cache settings. An empty Addr disables the cache.
type Redis struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func allNonEmpty(keyValues map[string]string) error {
	for key, value := range keyValues {
		if value == "" {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("error", "value is empty"))
			return fmt.Errorf("%w for key: %s", ErrMissingConfig, key)
		}
	}
	return nil
}

func allNumbers(keyValues map[string]string) error {
	for key, value := range keyValues {
		_, err := strconv.Atoi(value)
		if err != nil {
			slog.Error("configuration validation failed", slog.String("key", key), slog.String("value", value), slog.String("error", err.Error()))
			return fmt.Errorf("invalid number for key %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if err := allNonEmpty(map[string]string{
			DBHostEnv: c.Database.Host,
			DBUserEnv: c.Database.User,
			DBNameEnv: c.Database.Name,
		}); err != nil {
			return fmt.Errorf("database configuration incomplete: %w", err)
		}
		if err := allNumbers(map[string]string{
			DBPortEnv: c.Database.Port,
		}); err != nil {
			return fmt.Errorf("invalid port number: %w", err)
		}
	case StoreDriverMongo:
		if err := allNonEmpty(map[string]string{
			MongoURIEnv: c.Mongo.URI,
		}); err != nil {
			return fmt.Errorf("mongo configuration incomplete: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStoreDriver, c.StoreDriver)
	}

	// Validate server ports
	if err := allNonEmpty(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("server port configuration incomplete: %w", err)
	}
	if err := allNumbers(map[string]string{
		HTTPServerPortEnv:    c.HTTPServer.Port,
		MetricsServerPortEnv: c.MetricsServer.Port,
	}); err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}

	if err := allNonEmpty(map[string]string{
		JWTSecretEnv: c.Auth.JWTSecret,
	}); err != nil {
		return fmt.Errorf("auth configuration incomplete: %w", err)
	}

	return nil
}

func getEnvAsBool(name string, defaultValue bool) bool {
	if val, err := strconv.ParseBool(os.Getenv(name)); err == nil {
		return val
	}
	return defaultValue
}

func getEnv(name, defaultValue string) string {
	if val := os.Getenv(name); val != "" {
		return val
	}
	return defaultValue
}

func getEnvAsDuration(name string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for key %s: %w", name, err)
	}
	return d, nil
}

func getEnvAsInt(name string, defaultValue int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid number for key %s: %w", name, err)
	}
	return n, nil
}

// ApplyEnvFile loads environment variables from the specified .env files.
func ApplyEnvFile(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

func applyDefaultEnvFile() {
	envPath := os.Getenv(EnvFilePath)
	if envPath == "" {
		envPath = DefaultEnvFilePath
	}
	if err := ApplyEnvFile(envPath); err != nil {
		// just log the error, maybe all envs are set in another way
		slog.Info("failed to load from .env", slog.Any("err", err))
	}
}

// LoadFromEnv loads the catalog API configuration from environment variables and validates it.
func LoadFromEnv() (*Config, error) {
	applyDefaultEnvFile()

	presignTTL, err := getEnvAsDuration(S3PresignTTLEnv, defaultPresignTTL)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getEnvAsDuration(CategoryCacheTTLEnv, defaultCategoryCacheTTL)
	if err != nil {
		return nil, err
	}
	outboxInterval, err := getEnvAsDuration(OutboxIntervalEnv, defaultOutboxInterval)
	if err != nil {
		return nil, err
	}
	redisDB, err := getEnvAsInt(RedisDBEnv, 0)
	if err != nil {
		return nil, err
	}

	conf := &Config{
		DebugMode:   getEnvAsBool(DebugModeEnv, false),
		StoreDriver: getEnv(StoreDriverEnv, StoreDriverPostgres),
		Database: DB{
			Host:          os.Getenv(DBHostEnv),
			User:          os.Getenv(DBUserEnv),
			Password:      os.Getenv(DBPassEnv),
			Name:          os.Getenv(DBNameEnv),
			Port:          getEnv(DBPortEnv, "5432"),
			MigrationsURL: getEnv(MigrationsURLEnv, defaultMigrationsURL),
		},
		Mongo: Mongo{
			URI:      os.Getenv(MongoURIEnv),
			Database: getEnv(MongoDatabaseEnv, defaultMongoDatabase),
		},
		HTTPServer: Server{
			Port: os.Getenv(HTTPServerPortEnv),
		},
		MetricsServer: Server{
			Port: os.Getenv(MetricsServerPortEnv),
		},
		Auth: Auth{
			JWTSecret: os.Getenv(JWTSecretEnv),
		},
		AWS: AWSConfig{
			Region:       os.Getenv(AWSRegionEnv),
			Endpoint:     os.Getenv(AWSEndpointEnv),
			SQSQueueURL:  os.Getenv(SQSQueueURLEnv),
			S3Bucket:     os.Getenv(S3BucketEnv),
			S3PresignTTL: presignTTL,
		},
		Redis: Redis{
			Addr:     os.Getenv(RedisAddrEnv),
			Password: os.Getenv(RedisPasswordEnv),
			DB:       redisDB,
			TTL:      cacheTTL,
		},
		OutboxInterval: outboxInterval,
	}

	if err := conf.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return conf, nil
}

// LoadConsumerFromEnv loads the subset of configuration the notification service needs.
func LoadConsumerFromEnv() (*Config, error) {
	applyDefaultEnvFile()

	conf := &Config{
		DebugMode: getEnvAsBool(DebugModeEnv, false),
		AWS: AWSConfig{
			Region:      os.Getenv(AWSRegionEnv),
			Endpoint:    os.Getenv(AWSEndpointEnv),
			SQSQueueURL: os.Getenv(SQSQueueURLEnv),
		},
	}

	if err := allNonEmpty(map[string]string{
		AWSRegionEnv:   conf.AWS.Region,
		SQSQueueURLEnv: conf.AWS.SQSQueueURL,
	}); err != nil {
		return nil, fmt.Errorf("AWS configuration incomplete: %w", err)
	}
	return conf, nil
}
