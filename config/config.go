package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Socket    SocketConfig
	LogLevel  string
}

type ServerConfig struct {
	Port         string
	ClientURL    string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type StoreConfig struct {
	Driver        string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
	Timeout       time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	Enabled bool
	Max     int
	Window  time.Duration
}

type SocketConfig struct {
	EventRPS        float64
	EventBurst      int
	SendBuffer      int
	MaxMessageBytes int64
	PingInterval    time.Duration
	TitleFlush      time.Duration
}

// Load reads configuration from the environment, after applying an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "5000")
	v.SetDefault("CLIENT_URL", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DOCUMENT_STORE", StorePostgres)
	v.SetDefault("MONGO_DATABASE", "naskah")
	v.SetDefault("STORE_TIMEOUT_SECONDS", 5)
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_MAX", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 900)
	v.SetDefault("SOCKET_EVENT_RPS", 50)
	v.SetDefault("SOCKET_EVENT_BURST", 100)
	v.SetDefault("SOCKET_SEND_BUFFER", 256)
	v.SetDefault("SOCKET_MAX_MESSAGE_BYTES", 1<<20)
	v.SetDefault("SOCKET_PING_SECONDS", 30)
	v.SetDefault("TITLE_FLUSH_MS", 2000)

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("PORT"),
			ClientURL:    v.GetString("CLIENT_URL"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(strings.TrimSpace(v.GetString("DOCUMENT_STORE"))),
			DatabaseURL:   strings.TrimSpace(v.GetString("DATABASE_URL")),
			MongoURI:      strings.TrimSpace(v.GetString("MONGO_URI")),
			MongoDatabase: v.GetString("MONGO_DATABASE"),
			Timeout:       time.Duration(v.GetInt("STORE_TIMEOUT_SECONDS")) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(v.GetString("REDIS_ADDR")),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		RateLimit: RateLimitConfig{
			Enabled: v.GetBool("RATE_LIMIT_ENABLED"),
			Max:     v.GetInt("RATE_LIMIT_MAX"),
			Window:  time.Duration(v.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
		Socket: SocketConfig{
			EventRPS:        v.GetFloat64("SOCKET_EVENT_RPS"),
			EventBurst:      v.GetInt("SOCKET_EVENT_BURST"),
			SendBuffer:      v.GetInt("SOCKET_SEND_BUFFER"),
			MaxMessageBytes: v.GetInt64("SOCKET_MAX_MESSAGE_BYTES"),
			PingInterval:    time.Duration(v.GetInt("SOCKET_PING_SECONDS")) * time.Second,
			TitleFlush:      time.Duration(v.GetInt("TITLE_FLUSH_MS")) * time.Millisecond,
		},
		LogLevel: v.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
