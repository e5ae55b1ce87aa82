// backend-go/internal/config/config.go
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Firestore FirestoreConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Scan      ScanConfig
	Auth      AuthConfig
	Objects   ObjectStorageConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// StoreConfig selects the document store backend: firestore, postgres or memory.
type StoreConfig struct {
	Backend   string
	Suppliers []string
}

type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
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
	Enabled             bool
	RedisURL            string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	DecisionsTTLSeconds int
	WeeksTTLSeconds     int
	StatsTTLSeconds     int
	ReferenceTTLSeconds int
}

// ScanConfig bounds the availability and palmarès scans.
type ScanConfig struct {
	ProbeConcurrency int
	EpochYear        int
	EpochWeek        int
	SearchWeeks      int
}

type AuthConfig struct {
	JWTSecret     string
	TokenTTLHours int
}

// ObjectStorageConfig points at the bucket holding seed exports. Provider is
// minio or sevalla.
type ObjectStorageConfig struct {
	Provider  string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type LogConfig struct {
	Level string
	File  string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()
		viper.AutomaticEnv()

		instance = fromViper()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("STORE_BACKEND", "firestore")
	viper.SetDefault("SUPPLIERS", "anecoop,solagora")
	viper.SetDefault("FIRESTORE_PROJECT_ID", "")
	viper.SetDefault("GOOGLE_APPLICATION_CREDENTIALS", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "scamark")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_DECISIONS_TTL_SECONDS", 300)
	viper.SetDefault("CACHE_WEEKS_TTL_SECONDS", 300)
	viper.SetDefault("CACHE_STATS_TTL_SECONDS", 120)
	viper.SetDefault("CACHE_REFERENCE_TTL_SECONDS", 1800)
	viper.SetDefault("PROBE_CONCURRENCY", 16)
	viper.SetDefault("PALMARES_EPOCH_YEAR", 2024)
	viper.SetDefault("PALMARES_EPOCH_WEEK", 40)
	viper.SetDefault("SEARCH_WEEKS", 10)
	viper.SetDefault("AUTH_JWT_SECRET", "change-me")
	viper.SetDefault("AUTH_TOKEN_TTL_HOURS", 24*7)
	viper.SetDefault("OBJECT_STORAGE_PROVIDER", "minio")
	viper.SetDefault("OBJECT_STORAGE_ENDPOINT", "")
	viper.SetDefault("OBJECT_STORAGE_ACCESS_KEY", "")
	viper.SetDefault("OBJECT_STORAGE_SECRET_KEY", "")
	viper.SetDefault("OBJECT_STORAGE_BUCKET", "")
	viper.SetDefault("OBJECT_STORAGE_REGION", "us-east-1")
	viper.SetDefault("OBJECT_STORAGE_USE_SSL", true)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE", "")
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Store: StoreConfig{
			Backend:   strings.ToLower(viper.GetString("STORE_BACKEND")),
			Suppliers: splitList(viper.GetString("SUPPLIERS")),
		},
		Firestore: FirestoreConfig{
			ProjectID:       viper.GetString("FIRESTORE_PROJECT_ID"),
			CredentialsFile: viper.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
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
			Enabled:             viper.GetBool("CACHE_ENABLED"),
			RedisURL:            viper.GetString("REDIS_URL"),
			RedisHost:           viper.GetString("REDIS_HOST"),
			RedisPort:           viper.GetString("REDIS_PORT"),
			RedisPassword:       viper.GetString("REDIS_PASSWORD"),
			RedisDB:             viper.GetInt("REDIS_DB"),
			DecisionsTTLSeconds: viper.GetInt("CACHE_DECISIONS_TTL_SECONDS"),
			WeeksTTLSeconds:     viper.GetInt("CACHE_WEEKS_TTL_SECONDS"),
			StatsTTLSeconds:     viper.GetInt("CACHE_STATS_TTL_SECONDS"),
			ReferenceTTLSeconds: viper.GetInt("CACHE_REFERENCE_TTL_SECONDS"),
		},
		Scan: ScanConfig{
			ProbeConcurrency: viper.GetInt("PROBE_CONCURRENCY"),
			EpochYear:        viper.GetInt("PALMARES_EPOCH_YEAR"),
			EpochWeek:        viper.GetInt("PALMARES_EPOCH_WEEK"),
			SearchWeeks:      viper.GetInt("SEARCH_WEEKS"),
		},
		Auth: AuthConfig{
			JWTSecret:     viper.GetString("AUTH_JWT_SECRET"),
			TokenTTLHours: viper.GetInt("AUTH_TOKEN_TTL_HOURS"),
		},
		Objects: ObjectStorageConfig{
			Provider:  strings.ToLower(viper.GetString("OBJECT_STORAGE_PROVIDER")),
			Endpoint:  viper.GetString("OBJECT_STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("OBJECT_STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("OBJECT_STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("OBJECT_STORAGE_BUCKET"),
			Region:    viper.GetString("OBJECT_STORAGE_REGION"),
			UseSSL:    viper.GetBool("OBJECT_STORAGE_USE_SSL"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
			File:  viper.GetString("LOG_FILE"),
		},
	}
}

// TTL converts a seconds setting, falling back when unset or negative.
func TTL(seconds int, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
