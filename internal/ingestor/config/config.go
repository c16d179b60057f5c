package config

import (
	"time"

	"finnews-notifier/pkg/config"
)

// Source holds the remote news source settings.
type Source struct {
	// Origins maps a language tag to the locale-specific site origin,
	// e.g. "fr" -> "https://fr.tradingview.com".
	Origins             map[string]string `mapstructure:"origins"`
	ListingPath         string            `mapstructure:"listing_path"`
	ScannerURL          string            `mapstructure:"scanner_url"`
	RequestTimeout      time.Duration     `mapstructure:"request_timeout"`
	MaxRequestPerMinute int               `mapstructure:"max_request_per_minute"`
}

// Ingestion holds the pipeline settings.
type Ingestion struct {
	CronSpec           string        `mapstructure:"cron_spec"`
	MaxConcurrentFetch int           `mapstructure:"max_concurrent_fetch"`
	LeaseTTL           time.Duration `mapstructure:"lease_ttl"`
	RunOnStartup       bool          `mapstructure:"run_on_startup"`
}

// Push holds Web Push (VAPID) credentials.
type Push struct {
	Subscriber      string `mapstructure:"subscriber"`
	VAPIDPublicKey  string `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string `mapstructure:"vapid_private_key"`
}

// Calendar holds the economic-calendar reminder settings.
type Calendar struct {
	Enabled      bool          `mapstructure:"enabled"`
	CronSpec     string        `mapstructure:"cron_spec"`
	ReminderLead time.Duration `mapstructure:"reminder_lead"`
}

// Config holds the full configuration for the ingestion service.
type Config struct {
	App       config.App      `mapstructure:"app"`
	Logger    config.Logger   `mapstructure:"logger"`
	Database  config.Database `mapstructure:"database"`
	Redis     config.Redis    `mapstructure:"redis"`
	HTTP      config.HTTP     `mapstructure:"http"`
	Source    Source          `mapstructure:"source"`
	Ingestion Ingestion       `mapstructure:"ingestion"`
	Push      Push            `mapstructure:"push"`
	Calendar  Calendar        `mapstructure:"calendar"`
}

// Load loads the ingestion service configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Source.ListingPath == "" {
		cfg.Source.ListingPath = "/news/"
	}
	if cfg.Source.RequestTimeout == 0 {
		cfg.Source.RequestTimeout = 15 * time.Second
	}
	if cfg.Source.MaxRequestPerMinute == 0 {
		cfg.Source.MaxRequestPerMinute = 60
	}
	if cfg.Ingestion.CronSpec == "" {
		cfg.Ingestion.CronSpec = "*/5 * * * *"
	}
	if cfg.Ingestion.MaxConcurrentFetch == 0 {
		cfg.Ingestion.MaxConcurrentFetch = 5
	}
	if cfg.Ingestion.LeaseTTL == 0 {
		cfg.Ingestion.LeaseTTL = 4 * time.Minute
	}
	if cfg.Calendar.CronSpec == "" {
		cfg.Calendar.CronSpec = "* * * * *"
	}
	if cfg.Calendar.ReminderLead == 0 {
		cfg.Calendar.ReminderLead = 15 * time.Minute
	}
	return &cfg, nil
}
