package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/airdatahub/airdata-fetch/internal/measurement"
)

var validate = validator.New()

type AppConfig struct {
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	WebhookURL string
	WebhookKey string

	SMTPAddr     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	// FetchInterval controls how often a full cycle runs.
	FetchInterval time.Duration

	// DryRun disables store writes and all outbound notifications.
	DryRun bool

	// NotificationsDisabled suppresses failure mail only.
	NotificationsDisabled bool

	// Sources to fetch each cycle.
	Sources []measurement.Source

	// Upstream endpoints the adapters talk to.
	EEABaseURL    string
	AirNowBaseURL string

	HTTPTimeout time.Duration
	Port        string
}

// Load reads configuration from environment with sensible defaults and
// loads the source definitions from the configured JSON file.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.MongoURI = getenvDefault("MONGO_URI", "mongodb://localhost:27017")
	cfg.MongoDatabase = getenvDefault("MONGO_DB", "airdata")
	cfg.MongoCollection = getenvDefault("MONGO_COLLECTION", "measurements")

	cfg.WebhookURL = os.Getenv("WEBHOOK_URL")
	cfg.WebhookKey = os.Getenv("WEBHOOK_KEY")

	cfg.SMTPAddr = getenvDefault("SMTP_ADDR", "localhost:25")
	cfg.SMTPFrom = getenvDefault("SMTP_FROM", "airdata-fetch@localhost")
	cfg.SMTPUsername = os.Getenv("SMTP_USERNAME")
	cfg.SMTPPassword = os.Getenv("SMTP_PASSWORD")

	// Cycle interval: default 10 minutes.
	intervalStr := getenvDefault("FETCH_INTERVAL", "10m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid FETCH_INTERVAL: %w", err)
	}
	cfg.FetchInterval = interval

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.EEABaseURL = getenvDefault("EEA_BASE_URL", "https://api.eea.example/v1/observations")
	cfg.AirNowBaseURL = getenvDefault("AIRNOW_BASE_URL", "https://files.airnow.example/hourly")

	cfg.DryRun = getenvBool("DRY_RUN", false)
	cfg.NotificationsDisabled = getenvBool("DISABLE_NOTIFICATIONS", false)
	cfg.Port = getenvDefault("PORT", "8080")

	sources, err := loadSources(getenvDefault("SOURCES_FILE", "sources.json"))
	if err != nil {
		return nil, err
	}
	cfg.Sources = sources

	return cfg, nil
}

// FilterSources restricts sources to the single named one. An unknown name
// is an error; the process is expected to exit non-zero on it.
func FilterSources(sources []measurement.Source, name string) ([]measurement.Source, error) {
	if name == "" {
		return sources, nil
	}
	for _, src := range sources {
		if src.Name == name {
			return []measurement.Source{src}, nil
		}
	}
	return nil, fmt.Errorf("unknown source %q", name)
}

func loadSources(path string) ([]measurement.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	var sources []measurement.Source
	if err := json.Unmarshal(data, &sources); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}

	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		if err := validate.Struct(src); err != nil {
			return nil, fmt.Errorf("invalid source %q: %w", src.Name, err)
		}
		if seen[src.Name] {
			return nil, fmt.Errorf("duplicate source name %q", src.Name)
		}
		seen[src.Name] = true
	}

	return sources, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}
