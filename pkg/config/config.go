package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port               string
	FunctionsPort      string
	DatabaseURL        string
	AppEnv             string
	BaseURL            string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	JWTSecret          string
	FrontendURL        string
	AllowedEmails      []string

	// Service credential shared with the edge functions (log-click, check-broken-links).
	ServiceRoleKey string
	LinkCheckURL   string
	CheckTimeout   time.Duration
	VerifyTimeout  time.Duration

	CacheDriver string // none | memory | redis
	RedisURL    string
	CacheTTL    time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string
	SentryDSN string

	RateLimitRPS   float64
	RateLimitBurst int

	AnalyticsDefaultDays int
	AnalyticsMaxDays     int
}

func Load() *Config {
	_ = godotenv.Load() // Ignore error if .env not found (e.g. prod)

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return &Config{
		Port:                 v.GetString("PORT"),
		FunctionsPort:        v.GetString("FUNCTIONS_PORT"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		AppEnv:               v.GetString("APP_ENV"),
		BaseURL:              v.GetString("BASE_URL"),
		GoogleClientID:       v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:   v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:    v.GetString("GOOGLE_REDIRECT_URL"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		FrontendURL:          v.GetString("FRONTEND_URL"),
		AllowedEmails:        splitList(v.GetString("ALLOWED_EMAILS")),
		ServiceRoleKey:       v.GetString("SERVICE_ROLE_KEY"),
		LinkCheckURL:         v.GetString("LINK_CHECK_URL"),
		CheckTimeout:         v.GetDuration("CHECK_TIMEOUT"),
		VerifyTimeout:        v.GetDuration("VERIFY_TIMEOUT"),
		CacheDriver:          strings.ToLower(v.GetString("CACHE_DRIVER")),
		RedisURL:             v.GetString("REDIS_URL"),
		CacheTTL:             v.GetDuration("CACHE_TTL"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		LogFormat:            v.GetString("LOG_FORMAT"),
		LogFile:              v.GetString("LOG_FILE"),
		SentryDSN:            v.GetString("SENTRY_DSN"),
		RateLimitRPS:         v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:       v.GetInt("RATE_LIMIT_BURST"),
		AnalyticsDefaultDays: v.GetInt("ANALYTICS_DEFAULT_DAYS"),
		AnalyticsMaxDays:     v.GetInt("ANALYTICS_MAX_DAYS"),
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("FUNCTIONS_PORT", "8081")
	v.SetDefault("DATABASE_URL", "file:loopy.sqlite")
	v.SetDefault("APP_ENV", "local")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback")
	v.SetDefault("JWT_SECRET", "secret")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("LINK_CHECK_URL", "http://localhost:8081/check-broken-links")
	v.SetDefault("CHECK_TIMEOUT", "15s")
	v.SetDefault("VERIFY_TIMEOUT", "10s")
	v.SetDefault("CACHE_DRIVER", "memory")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("RATE_LIMIT_RPS", 20.0)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("ANALYTICS_DEFAULT_DAYS", 30)
	v.SetDefault("ANALYTICS_MAX_DAYS", 366)
}

// IsProduction reports whether cookies should be marked secure.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
