package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	OutputDir      string `mapstructure:"OUTPUT_DIR"`
	Store          string `mapstructure:"STORE"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB"`
	RedisKeyPrefix string `mapstructure:"REDIS_KEY_PREFIX"`

	OpenAIAPIKey      string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL     string `mapstructure:"OPENAI_BASE_URL"`
	VisionModel       string `mapstructure:"VISION_MODEL"`
	VisionMaxTokens   int    `mapstructure:"VISION_MAX_TOKENS"`
	ExtractionModel   string `mapstructure:"EXTRACTION_MODEL"`
	LLMTimeoutSeconds int    `mapstructure:"LLM_TIMEOUT_SECONDS"`

	PageLoadTimeoutSeconds int    `mapstructure:"PAGE_LOAD_TIMEOUT_SECONDS"`
	SettleDelaySeconds     int    `mapstructure:"SETTLE_DELAY_SECONDS"`
	BrowserUserAgent       string `mapstructure:"BROWSER_USER_AGENT"`
	BrowserProxy           string `mapstructure:"BROWSER_PROXY"`

	RecoveryConcurrency   int     `mapstructure:"RECOVERY_CONCURRENCY"`
	RecoveryRatePerSecond float64 `mapstructure:"RECOVERY_RATE_PER_SECOND"`

	Sinks             string `mapstructure:"SINKS"`
	FileSinkPath      string `mapstructure:"FILE_SINK_PATH"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DBTable           string `mapstructure:"DB_TABLE"`
	SQLitePath        string `mapstructure:"SQLITE_PATH"`
	SheetsID          string `mapstructure:"SHEETS_SPREADSHEET_ID"`
	SheetsTab         string `mapstructure:"SHEETS_TAB"`
	GoogleCredentials string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`

	PushgatewayURL string `mapstructure:"PUSHGATEWAY_URL"`
	ServerPort     string `mapstructure:"SERVER_PORT"`
	RunInterval    string `mapstructure:"RUN_INTERVAL"`

	RunHistoryLimit   int `mapstructure:"RUN_HISTORY_LIMIT"`
	RunLockTTLSeconds int `mapstructure:"RUN_LOCK_TTL_SECONDS"`
}

var defaults = map[string]any{
	"LOG_LEVEL":                      "info",
	"LOG_FORMAT":                     "json",
	"OUTPUT_DIR":                     "outputs",
	"STORE":                          "file",
	"REDIS_ADDR":                     "localhost:6379",
	"REDIS_PASSWORD":                 "",
	"REDIS_DB":                       0,
	"REDIS_KEY_PREFIX":               "goldwatch",
	"OPENAI_API_KEY":                 "",
	"OPENAI_BASE_URL":                "https://api.openai.com/v1",
	"VISION_MODEL":                   "gpt-4o-mini",
	"VISION_MAX_TOKENS":              1000,
	"EXTRACTION_MODEL":               "gpt-4o",
	"LLM_TIMEOUT_SECONDS":            120,
	"PAGE_LOAD_TIMEOUT_SECONDS":      60,
	"SETTLE_DELAY_SECONDS":           5,
	"BROWSER_USER_AGENT":             "",
	"BROWSER_PROXY":                  "",
	"RECOVERY_CONCURRENCY":           1,
	"RECOVERY_RATE_PER_SECOND":       0,
	"SINKS":                          "file",
	"FILE_SINK_PATH":                 "outputs/gold.csv",
	"DATABASE_URL":                   "",
	"DB_TABLE":                       "gold_prices",
	"SQLITE_PATH":                    "outputs/gold.db",
	"SHEETS_SPREADSHEET_ID":          "",
	"SHEETS_TAB":                     "Gold Prices",
	"GOOGLE_APPLICATION_CREDENTIALS": "",
	"PUSHGATEWAY_URL":                "",
	"SERVER_PORT":                    "8080",
	"RUN_INTERVAL":                   "1h",
	"RUN_HISTORY_LIMIT":              50,
	"RUN_LOCK_TTL_SECONDS":           1800,
}

// Load reads configuration from an optional env file and the process environment.
// A missing env file is not an error; environment variables always win.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config file %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// SinkNames returns the configured sink kinds, trimmed and lower-cased.
func (c *Config) SinkNames() []string {
	names := splitList(c.Sinks, ",")
	for i := range names {
		names[i] = strings.ToLower(names[i])
	}
	return names
}

// BrowserUserAgents returns the BROWSER_USER_AGENT values. They are
// separated by "|" since user agent strings contain commas.
func (c *Config) BrowserUserAgents() []string {
	return splitList(c.BrowserUserAgent, "|")
}

// BrowserProxies returns the comma-separated BROWSER_PROXY values.
func (c *Config) BrowserProxies() []string {
	return splitList(c.BrowserProxy, ",")
}

func splitList(s, sep string) []string {
	var items []string
	for _, item := range strings.Split(s, sep) {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (c *Config) PageLoadTimeout() time.Duration {
	return time.Duration(c.PageLoadTimeoutSeconds) * time.Second
}

func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelaySeconds) * time.Second
}

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

func (c *Config) RunLockTTL() time.Duration {
	return time.Duration(c.RunLockTTLSeconds) * time.Second
}

// Interval parses RUN_INTERVAL for serve mode.
func (c *Config) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(c.RunInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid RUN_INTERVAL %q: %w", c.RunInterval, err)
	}
	return d, nil
}

// RequireOpenAI fails when the model credentials are absent.
func (c *Config) RequireOpenAI() error {
	if c.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required")
	}
	return nil
}

// RequireSinks fails when a configured sink is missing its connection settings.
func (c *Config) RequireSinks() error {
	names := c.SinkNames()
	if len(names) == 0 {
		return errors.New("SINKS must name at least one sink")
	}
	for _, name := range names {
		switch name {
		case "file":
			if c.FileSinkPath == "" {
				return errors.New("FILE_SINK_PATH is required for the file sink")
			}
		case "postgres":
			if c.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required for the postgres sink")
			}
		case "sqlite":
			if c.SQLitePath == "" {
				return errors.New("SQLITE_PATH is required for the sqlite sink")
			}
		case "sheets":
			if c.SheetsID == "" {
				return errors.New("SHEETS_SPREADSHEET_ID is required for the sheets sink")
			}
			if c.GoogleCredentials == "" {
				return errors.New("GOOGLE_APPLICATION_CREDENTIALS is required for the sheets sink")
			}
		default:
			return fmt.Errorf("unknown sink %q (valid: file, postgres, sqlite, sheets)", name)
		}
	}
	return nil
}

// RequireStore fails when the artifact store is misconfigured.
func (c *Config) RequireStore() error {
	switch c.Store {
	case "file":
		if c.OutputDir == "" {
			return errors.New("OUTPUT_DIR is required for the file store")
		}
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown store %q (valid: file, redis)", c.Store)
	}
	return nil
}
