package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/siralexgrey/yasno-zrozumilo/internal/domain/models"
)

const defaultSources = "kyiv|Київ|https://app.yasno.ua/api/blackout-service/public/shutdowns/regions/3/dsos/301/planned-outages"

type Config struct {
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`

	UpdateInterval time.Duration `mapstructure:"UPDATE_INTERVAL"`
	FetchTimeout   time.Duration `mapstructure:"FETCH_TIMEOUT"`
	Sources        string        `mapstructure:"SOURCES"`

	ReportingTimezone string `mapstructure:"REPORTING_TIMEZONE"`

	PreferencesFile   string `mapstructure:"PREFERENCES_FILE"`
	ScheduleCacheFile string `mapstructure:"SCHEDULE_CACHE_FILE"`

	RemoteStoreBackend string `mapstructure:"REMOTE_STORE_BACKEND"`
	RemoteStoreURL     string `mapstructure:"REMOTE_STORE_URL"`
	RemoteStoreToken   string `mapstructure:"REMOTE_STORE_TOKEN"`

	RedisURL      string `mapstructure:"REDIS_URL"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	MetricsPort int `mapstructure:"METRICS_PORT"`

	SendRate  float64 `mapstructure:"SEND_RATE"`
	SendBurst int     `mapstructure:"SEND_BURST"`

	RetryCount           int           `mapstructure:"RETRY_COUNT"`
	RetryBackoff         time.Duration `mapstructure:"RETRY_BACKOFF"`
	RetryableStatusCodes []int         `mapstructure:"RETRYABLE_STATUS_CODES"`

	CBSlidingWindowSize        int           `mapstructure:"CB_SLIDING_WINDOW_SIZE"`
	CBMinimumRequiredCalls     int           `mapstructure:"CB_MINIMUM_REQUIRED_CALLS"`
	CBFailureRateThreshold     int           `mapstructure:"CB_FAILURE_RATE_THRESHOLD"`
	CBPermittedCallsInHalfOpen int           `mapstructure:"CB_PERMITTED_CALLS_IN_HALF_OPEN"`
	CBWaitDurationInOpenState  time.Duration `mapstructure:"CB_WAIT_DURATION_IN_OPEN_STATE"`
}

func LoadConfig() *Config {
	setDefaults()

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	_ = viper.ReadInConfig()

	config := &Config{}

	if err := viper.Unmarshal(config); err != nil {
		return getDefaultConfig()
	}

	return config
}

// ParseSources розбирає налаштовані джерела у форматі "id|назва|url;...".
// Записи з неповними полями пропускаються.
func (c *Config) ParseSources() []models.Source {
	var sources []models.Source

	for _, entry := range strings.Split(c.Sources, ";") {
		parts := strings.SplitN(strings.TrimSpace(entry), "|", 3)
		if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
			continue
		}

		sources = append(sources, models.Source{
			ID:          parts[0],
			DisplayName: parts[1],
			Endpoint:    parts[2],
		})
	}

	return sources
}

func setDefaults() {
	viper.SetDefault("UPDATE_INTERVAL", "600s")
	viper.SetDefault("FETCH_TIMEOUT", "10s")
	viper.SetDefault("SOURCES", defaultSources)

	viper.SetDefault("REPORTING_TIMEZONE", "Europe/Kyiv")

	viper.SetDefault("PREFERENCES_FILE", "data/preferences.json")
	viper.SetDefault("SCHEDULE_CACHE_FILE", "data/schedule_cache.json")

	viper.SetDefault("REMOTE_STORE_BACKEND", "")
	viper.SetDefault("REMOTE_STORE_URL", "")
	viper.SetDefault("REMOTE_STORE_TOKEN", "")

	viper.SetDefault("REDIS_URL", "redis:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("METRICS_PORT", 8080)

	viper.SetDefault("SEND_RATE", 25.0)
	viper.SetDefault("SEND_BURST", 5)

	viper.SetDefault("RETRY_COUNT", 3)
	viper.SetDefault("RETRY_BACKOFF", "1s")
	viper.SetDefault("RETRYABLE_STATUS_CODES", []int{429, 500, 502, 503, 504})

	viper.SetDefault("CB_SLIDING_WINDOW_SIZE", 10)
	viper.SetDefault("CB_MINIMUM_REQUIRED_CALLS", 5)
	viper.SetDefault("CB_FAILURE_RATE_THRESHOLD", 50)
	viper.SetDefault("CB_PERMITTED_CALLS_IN_HALF_OPEN", 2)
	viper.SetDefault("CB_WAIT_DURATION_IN_OPEN_STATE", "10s")
}

func getDefaultConfig() *Config {
	return &Config{
		UpdateInterval: 600 * time.Second,
		FetchTimeout:   10 * time.Second,
		Sources:        defaultSources,

		ReportingTimezone: "Europe/Kyiv",

		PreferencesFile:   "data/preferences.json",
		ScheduleCacheFile: "data/schedule_cache.json",

		RedisURL: "redis:6379",

		MetricsPort: 8080,

		SendRate:  25.0,
		SendBurst: 5,

		RetryCount:           3,
		RetryBackoff:         1 * time.Second,
		RetryableStatusCodes: []int{429, 500, 502, 503, 504},

		CBSlidingWindowSize:        10,
		CBMinimumRequiredCalls:     5,
		CBFailureRateThreshold:     50,
		CBPermittedCallsInHalfOpen: 2,
		CBWaitDurationInOpenState:  10 * time.Second,
	}
}
