package config

import (
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Upload   UploadConfig
	Catalog  CatalogConfig
	Database DatabaseConfig
	Cache    CacheConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// StorageConfig selects and configures the active storage backend.
// Backend is one of "local", "gcs" or "s3".
type StorageConfig struct {
	Backend string

	// Local filesystem backend
	LocalBaseDir string

	// Google Cloud Storage backend
	GCSBucket          string
	GCPProjectID       string
	GCSCredentialsFile string

	// S3-compatible backend (MinIO, AWS S3, ...)
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Region    string
	S3UseSSL    bool
}

type UploadConfig struct {
	MaxUploadMB      int64
	AllowedMimeTypes []string
}

// CatalogConfig selects the upload catalog implementation.
// Backend is "memory" (non-durable, lost on restart) or "postgres".
type CatalogConfig struct {
	Backend string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	RecordTTLSeconds int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 30)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("STORAGE_BACKEND", "local")
		viper.SetDefault("STORAGE_LOCAL_DIR", "data/uploads/raw")
		viper.SetDefault("GCS_BUCKET_NAME", "")
		viper.SetDefault("GCP_PROJECT_ID", "")
		viper.SetDefault("GCS_CREDENTIALS_FILE", "")
		viper.SetDefault("S3_ENDPOINT", "localhost:9000")
		viper.SetDefault("S3_ACCESS_KEY", "")
		viper.SetDefault("S3_SECRET_KEY", "")
		viper.SetDefault("S3_BUCKET_NAME", "")
		viper.SetDefault("S3_REGION", "us-east-1")
		viper.SetDefault("S3_USE_SSL", false)
		viper.SetDefault("MAX_UPLOAD_MB", 100)
		viper.SetDefault("ALLOWED_MIME_TYPES", "")
		viper.SetDefault("CATALOG_BACKEND", "memory")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "eduscale")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_RECORD_TTL_SECONDS", 60)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Storage: StorageConfig{
				Backend:            viper.GetString("STORAGE_BACKEND"),
				LocalBaseDir:       viper.GetString("STORAGE_LOCAL_DIR"),
				GCSBucket:          viper.GetString("GCS_BUCKET_NAME"),
				GCPProjectID:       viper.GetString("GCP_PROJECT_ID"),
				GCSCredentialsFile: viper.GetString("GCS_CREDENTIALS_FILE"),
				S3Endpoint:         viper.GetString("S3_ENDPOINT"),
				S3AccessKey:        viper.GetString("S3_ACCESS_KEY"),
				S3SecretKey:        viper.GetString("S3_SECRET_KEY"),
				S3Bucket:           viper.GetString("S3_BUCKET_NAME"),
				S3Region:           viper.GetString("S3_REGION"),
				S3UseSSL:           viper.GetBool("S3_USE_SSL"),
			},
			Upload: UploadConfig{
				MaxUploadMB:      viper.GetInt64("MAX_UPLOAD_MB"),
				AllowedMimeTypes: splitList(viper.GetString("ALLOWED_MIME_TYPES")),
			},
			Catalog: CatalogConfig{
				Backend: viper.GetString("CATALOG_BACKEND"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:          viper.GetBool("CACHE_ENABLED"),
				RedisURL:         viper.GetString("REDIS_URL"),
				RedisHost:        viper.GetString("REDIS_HOST"),
				RedisPort:        viper.GetString("REDIS_PORT"),
				RedisPassword:    viper.GetString("REDIS_PASSWORD"),
				RedisDB:          viper.GetInt("REDIS_DB"),
				RecordTTLSeconds: viper.GetInt("CACHE_RECORD_TTL_SECONDS"),
			},
		}
	})

	return instance
}

// MaxUploadBytes returns the upload size cap in bytes, 0 meaning unlimited.
func (c *UploadConfig) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 0
	}
	return c.MaxUploadMB * 1024 * 1024
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
