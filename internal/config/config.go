package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/phquake/quakewatch/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	USGSFeedURL string
	PHIVOLCSURL string

	Region         domain.Bounds
	AlertThreshold float64

	LedgerPath      string
	LedgerRetention time.Duration // 0 = never prune

	FetchTimeout    time.Duration
	RefreshInterval time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Telegram alert notification (enabled when both are set).
	TelegramBotToken string
	TelegramChatID   string
	TelegramEnabled  bool

	// Kafka alert egress (enabled when brokers are configured).
	KafkaBrokers    []string
	KafkaAlertTopic string
	KafkaEnabled    bool
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parseDuration("REFRESH_INTERVAL", "60s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	ledgerRetention, err := parseDuration("LEDGER_RETENTION", "0s")
	if err != nil {
		return nil, err
	}

	region, err := parseRegion()
	if err != nil {
		return nil, err
	}

	threshold, err := parseFloat("ALERT_THRESHOLD", 5.0)
	if err != nil {
		return nil, err
	}

	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatID := os.Getenv("TELEGRAM_CHAT_ID")

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))

	cfg := &Config{
		USGSFeedURL: envOrDefault("USGS_FEED_URL",
			"https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"),
		PHIVOLCSURL: envOrDefault("PHIVOLCS_URL",
			"https://earthquake.phivolcs.dost.gov.ph/"),

		Region:         region,
		AlertThreshold: threshold,

		LedgerPath:      envOrDefault("LEDGER_PATH", "data/alerted_quakes.txt"),
		LedgerRetention: ledgerRetention,

		FetchTimeout:    fetchTimeout,
		RefreshInterval: refreshInterval,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		TelegramBotToken: botToken,
		TelegramChatID:   chatID,
		TelegramEnabled:  botToken != "" && chatID != "",

		KafkaBrokers:    brokers,
		KafkaAlertTopic: envOrDefault("KAFKA_ALERT_TOPIC", "quake-alerts"),
		KafkaEnabled:    len(brokers) > 0,
	}

	if cfg.USGSFeedURL == "" {
		return nil, errors.New("USGS_FEED_URL is required")
	}
	if cfg.PHIVOLCSURL == "" {
		return nil, errors.New("PHIVOLCS_URL is required")
	}
	if cfg.LedgerPath == "" {
		return nil, errors.New("LEDGER_PATH is required")
	}
	if cfg.FetchTimeout <= 0 {
		return nil, errors.New("FETCH_TIMEOUT must be positive")
	}
	if cfg.RefreshInterval <= 0 {
		return nil, errors.New("REFRESH_INTERVAL must be positive")
	}
	if cfg.LedgerRetention < 0 {
		return nil, errors.New("LEDGER_RETENTION must not be negative")
	}
	if botToken != "" && chatID == "" || botToken == "" && chatID != "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	s := envOrDefault(key, fallback)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

// parseRegion reads the bounding box, defaulting to the Philippine
// Area of Responsibility.
func parseRegion() (domain.Bounds, error) {
	latMin, err := parseFloat("REGION_LAT_MIN", 4.5)
	if err != nil {
		return domain.Bounds{}, err
	}
	latMax, err := parseFloat("REGION_LAT_MAX", 21.5)
	if err != nil {
		return domain.Bounds{}, err
	}
	lonMin, err := parseFloat("REGION_LON_MIN", 116.0)
	if err != nil {
		return domain.Bounds{}, err
	}
	lonMax, err := parseFloat("REGION_LON_MAX", 127.0)
	if err != nil {
		return domain.Bounds{}, err
	}

	b := domain.Bounds{LatMin: latMin, LatMax: latMax, LonMin: lonMin, LonMax: lonMax}
	if b.LatMin > b.LatMax || b.LonMin > b.LonMax {
		return domain.Bounds{}, errors.New("region bounds inverted: min must not exceed max")
	}
	return b, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
