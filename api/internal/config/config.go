package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultRequestTimeout = 180 * time.Second
	DefaultMaxUploadBytes = 10 << 20
)

type Config struct {
	Port string

	GeminiAPIKey   string
	GeminiModel    string
	GeminiEndpoint string
	PromptDir      string

	RequestTimeout time.Duration
	MaxUploadBytes int64

	DatabaseURL string

	TelegramBotToken string
	WebhookURL       string

	LogLevel    string
	DefaultLang string
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// LoadDotEnv reads .env files into the environment without overriding variables
// that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

// Load builds the configuration from the environment. A missing model key is
// not an error here: the advisor reports it per request.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", getEnv("API_KEY", "")),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiEndpoint:   getEnv("GEMINI_ENDPOINT", ""),
		PromptDir:        getEnv("PROMPT_DIR", ""),
		RequestTimeout:   DefaultRequestTimeout,
		MaxUploadBytes:   DefaultMaxUploadBytes,
		DatabaseURL:      ResolveDSN(),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DefaultLang:      getEnv("DEFAULT_LANG", "en"),
	}

	if v := getEnv("REQUEST_TIMEOUT", ""); v != "" {
		d, err := parseTimeout(v)
		if err != nil {
			return nil, fmt.Errorf("REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if v := getEnv("MAX_UPLOAD_BYTES", ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_UPLOAD_BYTES: want a positive integer, got %q", v)
		}
		cfg.MaxUploadBytes = n
	}
	return cfg, nil
}

// parseTimeout accepts a Go duration ("90s", "2m") or a plain number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("want a positive value, got %q", v)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("want a positive value, got %q", v)
	}
	return d, nil
}

// ResolveDSN prefers DATABASE_URL. Otherwise it builds a DSN from POSTGRES_* /
// PG* parts, but only when at least one of them is set; an empty result means
// history stays in memory.
func ResolveDSN() string {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v
	}
	set := false
	for _, k := range []string{"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "PGHOST", "PGPORT"} {
		if strings.TrimSpace(os.Getenv(k)) != "" {
			set = true
			break
		}
	}
	if !set {
		return ""
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "kisansight"), os.Getenv("POSTGRES_PASSWORD")),
		Host:     net.JoinHostPort(getEnv("PGHOST", "db"), getEnv("PGPORT", "5432")),
		Path:     "/" + getEnv("POSTGRES_DB", "kisansight"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SafeDSNSummary renders host, port, db and user without the password, for logs.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
