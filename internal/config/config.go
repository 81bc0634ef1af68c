package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	ServerAddr string
	CORSOrigin string

	// Store
	DatabaseURL string

	// Tokens
	JWTSecret string
	TokenTTL  time.Duration

	// Content limits
	MaxPostLength    int
	MaxCommentLength int

	// Write-endpoint rate limiting (per client IP)
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from the environment with sensible defaults.
// An optional config.yaml next to the binary (or under ./config) is merged
// in when present.
func Load() *Config {
	viper.SetDefault("SERVER_ADDR", ":8080")
	viper.SetDefault("CORS_ORIGIN", "*")

	viper.SetDefault("DATABASE_URL", "")

	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("TOKEN_TTL", "15m")

	viper.SetDefault("MAX_POST_LENGTH", 255)
	viper.SetDefault("MAX_COMMENT_LENGTH", 255)

	viper.SetDefault("RATE_LIMIT_RPS", 1.0/3.0)
	viper.SetDefault("RATE_LIMIT_BURST", 1)

	viper.AutomaticEnv()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	_ = viper.ReadInConfig() // ignore error if no file

	return &Config{
		ServerAddr:       viper.GetString("SERVER_ADDR"),
		CORSOrigin:       viper.GetString("CORS_ORIGIN"),
		DatabaseURL:      viper.GetString("DATABASE_URL"),
		JWTSecret:        viper.GetString("JWT_SECRET"),
		TokenTTL:         parseDuration(viper.GetString("TOKEN_TTL"), 15*time.Minute),
		MaxPostLength:    viper.GetInt("MAX_POST_LENGTH"),
		MaxCommentLength: viper.GetInt("MAX_COMMENT_LENGTH"),
		RateLimitRPS:     viper.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:   viper.GetInt("RATE_LIMIT_BURST"),
	}
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}
