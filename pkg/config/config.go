package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	// ErrMissingConfig marks a required setting that is not set.
	ErrMissingConfig = errors.New("missing configuration")

	// ErrInvalidConfig marks a setting that is set but unusable.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	Database DatabaseConfig
	Source   SourceConfig
	Quality  QualityConfig
	Notify   NotifyConfig
	Redis    RedisConfig
	Schedule ScheduleConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Schema holds sales_staging, sales_cleaned and dq_monitor_log
	Schema string

	// StatementTimeout bounds each pipeline stage that touches the store
	StatementTimeout time.Duration

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// SourceConfig points at the workbook to ingest
type SourceConfig struct {
	ExcelPath string
	Sheets    []string // empty = every sheet in the workbook
}

// QualityConfig holds the daily quality gate thresholds
type QualityConfig struct {
	DailyRevenueMin         float64
	DailyRevenueMax         float64
	MissingCustomerMaxRatio float64
	RulesFile               string
}

// NotifyConfig holds alert channel credentials
type NotifyConfig struct {
	SlackWebhookURL string

	EmailFrom string
	EmailTo   string
	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string

	Timeout      time.Duration
	MaxPerMinute int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
	LockTTL  time.Duration
}

// ScheduleConfig holds cron expressions (with seconds) for scheduled jobs
type ScheduleConfig struct {
	Pipeline string
	Quality  string // empty = quality gate runs only as part of the pipeline

	MaxRetries int
	RetryDelay time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	return load(true)
}

// LoadOffline is Load for commands that never touch the database, such as
// a transform dry run. DATABASE_URL may be absent.
func LoadOffline() (*Config, error) {
	return load(false)
}

func load(requireDatabase bool) (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			Host:             getEnv("DB_HOST", ""),
			Port:             getEnv("DB_PORT", "5432"),
			Name:             getEnv("DB_NAME", "postgres"),
			User:             getEnv("DB_USER", "postgres"),
			Password:         getEnv("DB_PASSWORD", ""),
			URL:              getEnv("DATABASE_URL", ""),
			Schema:           getEnv("SCHEMA_NAME", "etl"),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", "5m"),
			MaxConns:         getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Source: SourceConfig{
			ExcelPath: getEnv("EXCEL_PATH", "data/online_retail_II.xlsx"),
			Sheets:    getEnvAsList("SHEETS", "Year 2009-2010,Year 2010-2011"),
		},

		Quality: QualityConfig{
			DailyRevenueMin:         getEnvAsFloat("DAILY_REVENUE_MIN", 1000),
			DailyRevenueMax:         getEnvAsFloat("DAILY_REVENUE_MAX", 5000000),
			MissingCustomerMaxRatio: getEnvAsFloat("MISSING_CUSTOMER_ID_MAX_RATIO", 0.1),
			RulesFile:               getEnv("DQ_RULES_FILE", ""),
		},

		Notify: NotifyConfig{
			SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
			EmailFrom:       getEnv("ALERT_EMAIL_FROM", ""),
			EmailTo:         getEnv("ALERT_EMAIL_TO", ""),
			SMTPHost:        getEnv("SMTP_HOST", ""),
			SMTPPort:        getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:        getEnv("SMTP_USER", ""),
			SMTPPass:        getEnv("SMTP_PASS", ""),
			Timeout:         getEnvAsDuration("NOTIFY_TIMEOUT", "10s"),
			MaxPerMinute:    getEnvAsInt("NOTIFY_MAX_PER_MINUTE", 6),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			LockTTL:  getEnvAsDuration("REDIS_LOCK_TTL", "2h"),
		},

		Schedule: ScheduleConfig{
			Pipeline:   getEnv("SCHEDULE_PIPELINE", "0 0 2 * * *"),
			Quality:    getEnv("SCHEDULE_QUALITY", ""),
			MaxRetries: getEnvAsInt("SCHEDULE_MAX_RETRIES", 3),
			RetryDelay: getEnvAsDuration("SCHEDULE_RETRY_DELAY", "1m"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = cfg.Database.buildURL()
	}

	if cfg.Quality.RulesFile != "" {
		rules, err := LoadRules(cfg.Quality.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("load rules file %s: %w", cfg.Quality.RulesFile, err)
		}
		rules.Apply(&cfg.Quality)
	}

	if err := cfg.validate(requireDatabase); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// buildURL assembles a connection string from the discrete DB_* settings
func (d DatabaseConfig) buildURL() string {
	if d.Host == "" {
		return ""
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   d.Host + ":" + d.Port,
		Path:   "/" + d.Name,
	}
	return u.String()
}

// validate checks if required configuration values are set
func (c *Config) validate(requireDatabase bool) error {
	if requireDatabase && c.Database.URL == "" {
		return fmt.Errorf("%w: DATABASE_URL (or DB_HOST) is required", ErrMissingConfig)
	}

	if c.Database.Schema == "" {
		return fmt.Errorf("%w: SCHEMA_NAME must not be empty", ErrInvalidConfig)
	}

	if c.Schedule.MaxRetries < 0 {
		return fmt.Errorf("%w: SCHEDULE_MAX_RETRIES must not be negative", ErrInvalidConfig)
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("%w: ENV must be one of: development, staging, production", ErrInvalidConfig)
	}

	return c.Quality.Validate()
}

// Validate checks the quality thresholds are coherent
func (q QualityConfig) Validate() error {
	thresholds := []struct {
		key string
		v   float64
	}{
		{"DAILY_REVENUE_MIN", q.DailyRevenueMin},
		{"DAILY_REVENUE_MAX", q.DailyRevenueMax},
		{"MISSING_CUSTOMER_ID_MAX_RATIO", q.MissingCustomerMaxRatio},
	}
	for _, th := range thresholds {
		if !isFinite(th.v) {
			return fmt.Errorf("%w: %s must be a finite number, got %v", ErrInvalidConfig, th.key, th.v)
		}
	}

	if q.DailyRevenueMin > q.DailyRevenueMax {
		return fmt.Errorf("%w: DAILY_REVENUE_MIN (%v) > DAILY_REVENUE_MAX (%v)",
			ErrInvalidConfig, q.DailyRevenueMin, q.DailyRevenueMax)
	}
	if q.MissingCustomerMaxRatio < 0 || q.MissingCustomerMaxRatio > 1 {
		return fmt.Errorf("%w: MISSING_CUSTOMER_ID_MAX_RATIO must be within [0,1], got %v",
			ErrInvalidConfig, q.MissingCustomerMaxRatio)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// EmailEnabled reports whether every SMTP setting the email channel needs is present
func (n NotifyConfig) EmailEnabled() bool {
	return n.EmailFrom != "" && n.EmailTo != "" && n.SMTPHost != "" && n.SMTPUser != "" && n.SMTPPass != ""
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Overload(path)
			break
		}
	}

	stripBOMKeys()
}

// stripBOMKeys renames variables whose key starts with a UTF-8 BOM.
// .env files saved by some Windows editors carry one on the first key.
func stripBOMKeys() {
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "\ufeff") {
			continue
		}
		key, value, _ := strings.Cut(kv, "=")
		_ = os.Unsetenv(key)
		_ = os.Setenv(strings.TrimPrefix(key, "\ufeff"), value)
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma-separated value. An explicitly empty variable
// yields an empty list rather than the default.
func getEnvAsList(key string, defaultValue string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		raw = defaultValue
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
