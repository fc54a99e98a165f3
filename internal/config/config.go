package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	MongoURI          string
	MongoDB           string
	MongoTransactions bool

	JWTSecret string

	SweepInterval   time.Duration
	StaleSessionCap time.Duration
	DefaultLocale   string

	MattermostURL       string
	MattermostBotToken  string
	MattermostChannelID string
}

// NotificationsEnabled reports whether Mattermost delivery is configured.
func (c *Config) NotificationsEnabled() bool {
	return c.MattermostURL != "" && c.MattermostBotToken != "" && c.MattermostChannelID != ""
}

// Load reads the environment, after an optional .env file. All problems are reported
// in one error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var problems []string
	cfg := &Config{
		Port:     getEnv("PORT", "3001"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		MongoURI:          getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDB:           getEnv("MONGODB_DATABASE", "timeledger"),
		MongoTransactions: getEnvBool("MONGODB_TRANSACTIONS", true, &problems),

		JWTSecret: os.Getenv("JWT_SECRET"),

		SweepInterval:   getEnvDuration("SWEEP_INTERVAL", 30*time.Minute, &problems),
		StaleSessionCap: getEnvDuration("STALE_SESSION_CAP", 8*time.Hour, &problems),
		DefaultLocale:   getEnv("DEFAULT_LOCALE", "en"),

		MattermostURL:       strings.TrimRight(os.Getenv("MATTERMOST_URL"), "/"),
		MattermostBotToken:  os.Getenv("MATTERMOST_BOT_TOKEN"),
		MattermostChannelID: os.Getenv("MATTERMOST_CHANNEL_ID"),
	}

	if cfg.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if len(problems) > 0 {
		return nil, errors.New("config: " + strings.Join(problems, "; "))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool, problems *[]string) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*problems = append(*problems, key+" must be a boolean")
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration, problems *[]string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*problems = append(*problems, key+" must be a positive duration")
		return fallback
	}
	return d
}
