package config

import (
	"fmt"
	"os"
	"strconv"
)

// Metadata store drivers.
const (
	DBDriverMemory   = "memory"
	DBDriverPostgres = "postgres"
)

// Blob store drivers.
const (
	StorageDriverFS    = "fs"
	StorageDriverMinIO = "minio"
)

// Default account seeded when CREATE_DEFAULT_ACCOUNT is set. The values match
// the upstream emulator so existing clients keep working against it.
const (
	DefaultAccountID   = "bfbdec2a2da54ab1bc801b051ebed06a"
	DefaultAccountHash = "573a5ca1603c440"
)

// DatabaseConfig holds PostgreSQL connection settings (DB_DRIVER=postgres).
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings (STORAGE_DRIVER=minio).
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ConvertConfig sizes the deferred store-and-convert worker pool.
type ConvertConfig struct {
	Workers   int
	QueueSize int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	// AppHost is the public base URL handed back to clients inside upload
	// URLs, e.g. "http://localhost:8080".
	AppHost string
	Port    string

	DBDriver      string
	StorageDriver string

	ImagesStoragePath string
	VideosStoragePath string

	CreateDefaultAccount bool

	Database DatabaseConfig
	MinIO    MinIOConfig
	Convert  ConvertConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// Real environment variables take precedence over the .env file.
//
// APP_HOST has no safe default (it ends up inside URLs returned to clients),
// so a missing value is a startup failure.
func Load() (*AppConfig, error) {
	appHost := os.Getenv("APP_HOST")
	if appHost == "" {
		return nil, fmt.Errorf("APP_HOST environment variable is required")
	}

	cfg := &AppConfig{
		AppHost: appHost,
		Port:    getEnv("PORT", "8080"),

		DBDriver:      getEnv("DB_DRIVER", DBDriverMemory),
		StorageDriver: getEnv("STORAGE_DRIVER", StorageDriverFS),

		ImagesStoragePath: getEnv("IMAGES_STORAGE_PATH", "./images"),
		VideosStoragePath: getEnv("VIDEOS_STORAGE_PATH", "./videos"),

		CreateDefaultAccount: getEnvBool("CREATE_DEFAULT_ACCOUNT", false),

		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Convert: ConvertConfig{
			Workers:   getEnvInt("CONVERT_WORKERS", 2),
			QueueSize: getEnvInt("CONVERT_QUEUE_SIZE", 64),
		},
	}

	switch cfg.DBDriver {
	case DBDriverMemory, DBDriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	switch cfg.StorageDriver {
	case StorageDriverFS, StorageDriverMinIO:
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
