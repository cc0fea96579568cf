package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppMode     string
	APIPort     string
	SocketURL   string
	GraphQLURL  string
	AccessToken string
	JWTSecret   string

	SendTimeout     time.Duration
	SendMaxAttempts int
	SendRetryBase   time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ProfileTTL    time.Duration

	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string
	S3Endpoint   string
	S3PublicBase string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppMode:     getEnv("APP_MODE", "development"),
		APIPort:     getEnv("API_PORT", "18080"),
		SocketURL:   getEnv("SOCKET_URL", "ws://localhost:9090/im"),
		GraphQLURL:  getEnv("GRAPHQL_URL", "http://localhost:9090/graphql"),
		AccessToken: getEnv("ACCESS_TOKEN", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		SendTimeout:     getEnvAsDuration("SEND_TIMEOUT_MS", 5000),
		SendMaxAttempts: getEnvAsInt("SEND_MAX_ATTEMPTS", 3),
		SendRetryBase:   getEnvAsDuration("SEND_RETRY_BASE_MS", 5000),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		ProfileTTL:    getEnvAsDuration("PROFILE_TTL_MS", 5*60*1000),

		S3Region:     getEnv("S3_REGION", ""),
		S3Bucket:     getEnv("S3_BUCKET", ""),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3PublicBase: getEnv("S3_PUBLIC_BASE", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallbackMs)) * time.Millisecond
}
