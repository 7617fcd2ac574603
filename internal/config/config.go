package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 取得元ニュースサイトのデフォルト設定
const (
	DefaultScrapeBaseURL   = "https://vnexpress.net"
	DefaultScrapeSearchURL = "https://timkiem.vnexpress.net/"
)

// キャッシュバックエンド
const (
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// OAuth
	GoogleClientID       string
	GoogleClientSecret   string
	GoogleRedirectURL    string
	FacebookClientID     string
	FacebookClientSecret string
	FacebookRedirectURL  string

	// Session
	SessionMaxAge int

	// Scrape
	ScrapeBaseURL       string
	ScrapeSearchURL     string
	ScrapeTimeout       time.Duration
	ScrapeMaxBodySize   int64
	ScrapeMaxConcurrent int

	// Cache
	CacheBackend string
	RedisURL     string

	// Worker
	RefreshSchedule string

	// Rate Limit (req/min)
	RateLimitGeneral int
	RateLimitSearch  int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// OAuthは未設定の場合そのプロバイダーを無効とする
	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")
	cfg.FacebookClientID = os.Getenv("FACEBOOK_CLIENT_ID")
	cfg.FacebookClientSecret = os.Getenv("FACEBOOK_CLIENT_SECRET")
	cfg.FacebookRedirectURL = os.Getenv("FACEBOOK_REDIRECT_URL")

	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 20)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400*30)
	cfg.ScrapeBaseURL = strings.TrimRight(getEnvString("SCRAPE_BASE_URL", DefaultScrapeBaseURL), "/")
	cfg.ScrapeSearchURL = getEnvString("SCRAPE_SEARCH_URL", DefaultScrapeSearchURL)
	cfg.ScrapeTimeout = getEnvDuration("SCRAPE_TIMEOUT", 15*time.Second)
	cfg.ScrapeMaxBodySize = getEnvInt64("SCRAPE_MAX_BODY_SIZE", 10485760)
	cfg.ScrapeMaxConcurrent = getEnvInt("SCRAPE_MAX_CONCURRENT", 4)
	cfg.CacheBackend = strings.ToLower(getEnvString("CACHE_BACKEND", CacheBackendPostgres))
	cfg.RedisURL = getEnvString("REDIS_URL", "redis://localhost:6379/0")
	cfg.RefreshSchedule = getEnvString("REFRESH_SCHEDULE", "@every 30m")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSearch = getEnvInt("RATE_LIMIT_SEARCH", 20)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.CacheBackend != CacheBackendPostgres && cfg.CacheBackend != CacheBackendRedis {
		return nil, fmt.Errorf("unsupported CACHE_BACKEND: %s", cfg.CacheBackend)
	}

	return cfg, nil
}

// GoogleEnabled はGoogleログインの設定が揃っているかを返す。
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// FacebookEnabled はFacebookログインの設定が揃っているかを返す。
func (c *Config) FacebookEnabled() bool {
	return c.FacebookClientID != "" && c.FacebookClientSecret != "" && c.FacebookRedirectURL != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
