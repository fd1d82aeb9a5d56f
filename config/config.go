package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Scheduling configuration. Working hours are minutes from midnight in
	// the configured timezone.
	Timezone               string  `mapstructure:"TIMEZONE"`
	WorkStart              int     `mapstructure:"WORK_START"`
	WorkEnd                int     `mapstructure:"WORK_END"`
	SlotGranularityMinutes int     `mapstructure:"SLOT_GRANULARITY_MINUTES"`
	DefaultDurationMinutes int     `mapstructure:"DEFAULT_DURATION_MINUTES"`
	MaxCandidateSlots      int     `mapstructure:"MAX_CANDIDATE_SLOTS"`
	LookaheadDays          int     `mapstructure:"LOOKAHEAD_DAYS"`
	ConfidenceThreshold    float64 `mapstructure:"CONFIDENCE_THRESHOLD"`
	AllowFallbackSlots     bool    `mapstructure:"ALLOW_FALLBACK_SLOTS"`

	// Orchestrator limits.
	CallTimeoutSeconds  int `mapstructure:"CALL_TIMEOUT_SECONDS"`
	IdempotencyCacheSz  int `mapstructure:"IDEMPOTENCY_CACHE_SIZE"`
	HistoryWindow       int `mapstructure:"HISTORY_WINDOW"`
	ConversationTTLMins int `mapstructure:"CONVERSATION_TTL_MINUTES"`

	// Gemini configuration.
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`

	// Google Calendar configuration.
	GoogleCredentialsPath string `mapstructure:"GOOGLE_CREDENTIALS_PATH"`
	GoogleCalendarID      string `mapstructure:"GOOGLE_CALENDAR_ID"`

	// Redis configuration (conversation context store).
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("WORK_START", 540) // 09:00
	viper.SetDefault("WORK_END", 1080)  // 18:00
	viper.SetDefault("SLOT_GRANULARITY_MINUTES", 30)
	viper.SetDefault("DEFAULT_DURATION_MINUTES", 60)
	viper.SetDefault("MAX_CANDIDATE_SLOTS", 3)
	viper.SetDefault("LOOKAHEAD_DAYS", 7)
	viper.SetDefault("CONFIDENCE_THRESHOLD", 0.5)
	viper.SetDefault("ALLOW_FALLBACK_SLOTS", true)
	viper.SetDefault("CALL_TIMEOUT_SECONDS", 10)
	viper.SetDefault("IDEMPOTENCY_CACHE_SIZE", 512)
	viper.SetDefault("HISTORY_WINDOW", 5)
	viper.SetDefault("CONVERSATION_TTL_MINUTES", 30)
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_MODEL", "models/gemini-1.5-pro")
	viper.SetDefault("GOOGLE_CREDENTIALS_PATH", "credentials.json")
	viper.SetDefault("GOOGLE_CALENDAR_ID", "primary")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// Location resolves the configured timezone, falling back to UTC when the
// name is unknown.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Unknown timezone %q, falling back to UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

// CallTimeout returns the per-call deadline for outbound LLM/calendar requests.
func (c Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
