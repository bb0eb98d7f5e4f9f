package config

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Rate limits (requests per minute per client)
	AuthRateLimit int
	AIRateLimit   int

	// Frontend
	FrontendURL string
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Printf("config: ignoring unreadable config file: %v", err)
		}
	}

	cfg := &Config{
		Port:                 getStringOrDefault(v, "port", "8080"),
		Env:                  getStringOrDefault(v, "env", "development"),
		DatabaseURL:          mustGetString(v, "database_url"),
		RedisURL:             mustGetString(v, "redis_url"),
		JWTSecret:            mustGetString(v, "jwt_secret"),
		AccessTokenTTL:       getDurationOrDefault(v, "access_token_ttl", time.Hour),
		RefreshTokenTTL:      getDurationOrDefault(v, "refresh_token_ttl", 30*24*time.Hour),
		GeminiAPIKey:         mustGetString(v, "gemini_api_key"),
		GeminiModel:          getStringOrDefault(v, "gemini_model", "gemini-1.5-flash"),
		GeminiConcurrentReqs: getIntOrDefault(v, "gemini_concurrent_requests", 5),
		AuthRateLimit:        getIntOrDefault(v, "auth_rate_limit", 10),
		AIRateLimit:          getIntOrDefault(v, "ai_rate_limit", 20),
		FrontendURL:          getStringOrDefault(v, "frontend_url", "http://localhost:3000"),
	}

	return cfg
}

// newViper reads ./config.yaml when present; environment variables always win.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func mustGetString(v *viper.Viper, key string) string {
	val := strings.TrimSpace(v.GetString(key))
	if val == "" {
		panic(fmt.Sprintf("required setting %s is not set", strings.ToUpper(key)))
	}
	return val
}

func getStringOrDefault(v *viper.Viper, key, defaultVal string) string {
	val := strings.TrimSpace(v.GetString(key))
	if val == "" {
		return defaultVal
	}
	return val
}

func getIntOrDefault(v *viper.Viper, key string, defaultVal int) int {
	val := strings.TrimSpace(v.GetString(key))
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func getDurationOrDefault(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	val := strings.TrimSpace(v.GetString(key))
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
