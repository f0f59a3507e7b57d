package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DBUrl       string
	AutoMigrate bool
	LogLevel    string
	FrontendURL string
	// Auth0 Configuration
	Auth0Domain   string
	Auth0Audience string
	JWTSecret     string // HS256 secret, local development only
	// Object Storage Configuration
	StorageDriver     string // "s3" or "minio"
	S3Bucket          string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Endpoint        string // Empty for AWS; set for Wasabi, R2 or MinIO
	S3UsePathStyle    bool
	S3UseSSL          bool
	ResumeURLTTL      time.Duration
	// Redis/Upstash Configuration
	UpstashRedisURL      string
	UpstashRedisPassword string
	// Rate Limiting Configuration
	RateLimitWindowSeconds   int
	RateLimitUploadThreshold int
	RateLimitGlobalThreshold int
	// Antivirus Configuration
	ClamAVAddress string
	ClamAVTimeout time.Duration
	// Event Publishing Configuration
	RabbitMQURL          string
	ResumeEventsExchange string
	RabbitMQDialTimeout  time.Duration
}

func LoadConfig() (*Config, error) {
	// .env is optional; in production the variables come from the environment
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DBUrl:       getEnv("DATABASE_URL", ""),
		AutoMigrate: getEnvBool("AUTO_MIGRATE", true),
		LogLevel:    getEnv("LOG_LEVEL", "debug"),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		// Auth0 tenants are configured as bare domains, but tolerate quotes and a scheme
		Auth0Domain:   normalizeDomain(getEnv("AUTH0_DOMAIN", "")),
		Auth0Audience: getEnv("AUTH0_AUDIENCE", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		// Object Storage
		StorageDriver:     strings.ToLower(getEnv("STORAGE_DRIVER", "s3")),
		S3Bucket:          getEnv("S3_BUCKET", getEnv("AWS_STORAGE_BUCKET_NAME", "")),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		S3Endpoint:        strings.TrimRight(getEnv("S3_ENDPOINT", ""), "/"),
		S3UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
		S3UseSSL:          getEnvBool("S3_USE_SSL", true),
		ResumeURLTTL:      getEnvDuration("RESUME_URL_TTL", 15*time.Minute),
		// Redis/Upstash
		UpstashRedisURL:      getEnv("UPSTASH_REDIS_URL", ""),
		UpstashRedisPassword: getEnv("UPSTASH_REDIS_PASSWORD", ""),
		// Rate Limiting
		RateLimitWindowSeconds:   getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitUploadThreshold: getEnvInt("RATE_LIMIT_UPLOAD_THRESHOLD", 10),
		RateLimitGlobalThreshold: getEnvInt("RATE_LIMIT_GLOBAL_THRESHOLD", 100),
		// Antivirus
		ClamAVAddress: getEnv("CLAMAV_ADDRESS", ""),
		ClamAVTimeout: getEnvDuration("CLAMAV_TIMEOUT", 30*time.Second),
		// Events
		RabbitMQURL:          getEnv("RABBITMQ_URL", ""),
		ResumeEventsExchange: getEnv("RESUME_EVENTS_EXCHANGE", "resume_events"),
		RabbitMQDialTimeout:  getEnvDuration("RABBITMQ_DIAL_TIMEOUT", 5*time.Second),
	}

	if cfg.DBUrl == "" {
		log.Println("WARNING: DATABASE_URL is missing. Application may fail to connect.")
	}
	if cfg.Auth0Domain == "" && cfg.JWTSecret == "" {
		log.Println("WARNING: neither AUTH0_DOMAIN nor JWT_SECRET is configured. All protected routes will reject requests.")
	}
	if cfg.S3Bucket == "" {
		log.Println("WARNING: S3_BUCKET is missing. Resume uploads will fail.")
	}
	if cfg.UpstashRedisURL == "" {
		log.Println("WARNING: UPSTASH_REDIS_URL not configured. Rate limiting will use in-memory fallback.")
	}

	return cfg, nil
}

// JWKSURL returns the Auth0 tenant key set endpoint, or "" when Auth0 is not configured.
func (c *Config) JWKSURL() string {
	if c.Auth0Domain == "" {
		return ""
	}
	return "https://" + c.Auth0Domain + "/.well-known/jwks.json"
}

// Auth0Issuer returns the expected "iss" claim of Auth0 access tokens.
func (c *Config) Auth0Issuer() string {
	if c.Auth0Domain == "" {
		return ""
	}
	return "https://" + c.Auth0Domain + "/"
}

func normalizeDomain(domain string) string {
	domain = strings.Trim(strings.TrimSpace(domain), `'"`)
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimRight(domain, "/")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns an integer environment variable or fallback if not set/invalid
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool returns a boolean environment variable or fallback if not set/invalid
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("90s", "15m") and falls back when unset/invalid
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
