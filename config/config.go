package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Auth     AuthConfig
	RabbitMQ RabbitMQConfig
	LLM      LLMConfig
	LogLevel string
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type MongoConfig struct {
	URI         string
	Database    string
	ForceTLS    bool
	InsecureTLS bool
}

type PostgresConfig struct {
	URI string
}

type RedisConfig struct {
	Addr string
}

type StorageConfig struct {
	Backend   string // local|gcs|minio
	UploadDir string
	MaxBytes  int64

	GCSBucket string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

type AuthConfig struct {
	Required     bool
	JWTSecret    string
	TokenTTL     time.Duration
	PasswordMode string
}

type RabbitMQConfig struct {
	URI      string
	Exchange string
}

type LLMConfig struct {
	ProjectID string
	Location  string
	Model     string
}

// Load reads the process environment (after an optional .env file).
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvDuration("READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
			AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Mongo: MongoConfig{
			URI:         getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:    getEnv("MONGO_DB", "fdms"),
			ForceTLS:    getEnv("MONGO_FORCE_TLS_CONFIG", "") == "true",
			InsecureTLS: getEnv("MONGO_INSECURE_TLS", "") == "true",
		},
		Postgres: PostgresConfig{
			URI: getEnv("POSTGRES_URI", ""),
		},
		Redis: RedisConfig{
			Addr: firstEnv("REDIS_ADDR", "REDIS_URI", "REDIS_URL"),
		},
		Storage: StorageConfig{
			Backend:        strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
			UploadDir:      getEnv("UPLOAD_DIR", "certificates"),
			MaxBytes:       uploadLimit(getEnvInt("UPLOAD_MAX_BYTES", maxUploadBytes)),
			GCSBucket:      getEnv("GCS_BUCKET", ""),
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinioBucket:    getEnv("MINIO_BUCKET", "fdms-documents"),
			MinioUseSSL:    getEnv("MINIO_USE_SSL", "") == "true",
		},
		Auth: AuthConfig{
			Required:     getEnv("AUTH_REQUIRED", "") == "true",
			JWTSecret:    getEnv("JWT_SECRET", ""),
			TokenTTL:     getEnvDuration("JWT_TTL", 24*time.Hour),
			PasswordMode: getEnv("ACCOUNT_PASSWORD_MODE", "plain"),
		},
		RabbitMQ: RabbitMQConfig{
			URI:      getEnv("RABBITMQ_URI", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "profile.events"),
		},
		LLM: LLMConfig{
			ProjectID: getEnv("GCP_PROJECT_ID", ""),
			Location:  getEnv("GCP_LOCATION", "us-central1"),
			Model:     getEnv("LLM_MODEL", "gemini-1.5-flash"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// maxUploadBytes is the hard per-file ceiling; UPLOAD_MAX_BYTES may only lower it.
const maxUploadBytes = 5 << 20

func uploadLimit(n int) int64 {
	if n <= 0 || n > maxUploadBytes {
		return maxUploadBytes
	}
	return int64(n)
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := getEnv(k, ""); v != "" {
			return v
		}
	}
	return ""
}

func getEnvInt(key string, defaultValue int) int {
	if v := getEnv(key, ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := getEnv(key, ""); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
