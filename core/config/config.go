package config

import (
	"time"

	"github.com/AzielCF/az-blast/pkg/utils"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App      AppConfig
	Paths    PathsConfig
	Database DatabaseConfig
	Whatsapp WhatsappConfig
	Campaign CampaignConfig
	Webhook  WebhookConfig
	Valkey   ValkeyConfig
}

type AppConfig struct {
	Version        string
	Port           string
	Debug          bool
	BasicAuth      []string
	BasePath       string
	TrustedProxies []string
	CorsOrigins    []string
	ServerID       string
}

type PathsConfig struct {
	Storages string
	QRCode   string
}

type DatabaseConfig struct {
	// Driver selects the campaign store backend: "sqlite" (default) or
	// "postgres".
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	// Name is the file path for SQLite, the database name for Postgres.
	Name string
	// WhatsappURI is the whatsmeow session store DSN; prefix decides the
	// driver (file: -> sqlite3, postgres: -> postgres).
	WhatsappURI string
}

type WhatsappConfig struct {
	LogLevel string
	OSName   string
	// UserSuffix is the JID server appended to bare phone numbers.
	UserSuffix string
}

// CampaignConfig tunes the dispatcher and the gateway retry policy.
type CampaignConfig struct {
	// DefaultInterval is used when a campaign is created without one.
	DefaultInterval int
	// MaxRetries is the per-segment retry budget beyond the first attempt.
	MaxRetries int
	// SettleDelay is the pause between disconnect and reconnect in a
	// gateway reset.
	SettleDelay time.Duration
	// ReconnectAttempts x ReconnectPollInterval bound the readiness poll
	// after a reconnect.
	ReconnectAttempts     int
	ReconnectPollInterval time.Duration
	// MinSendGap is the global floor between raw outbound sends, enforced
	// inside the gateway regardless of campaign pacing.
	MinSendGap time.Duration
	// TypingSpeed scales the simulated typing delay per character.
	TypingSpeed time.Duration
	// SchedulerSpec is the cron spec for the scheduled-campaign sweep.
	SchedulerSpec string
}

type WebhookConfig struct {
	URLs   []string
	Secret string
}

type ValkeyConfig struct {
	Enabled   bool
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// Global provides access to the loaded configuration.
var Global *Config

// LoadConfig builds the configuration from environment variables (already
// primed by utils.LoadConfig) falling back to defaults.
func LoadConfig() (*Config, error) {
	storages := getEnv("APP_STORAGES_PATH", "storages")

	cfg := &Config{
		App: AppConfig{
			Version:        "v1.2.0",
			Port:           getEnv("APP_PORT", "3000"),
			Debug:          getEnvBool("APP_DEBUG", false),
			BasicAuth:      getEnvList("APP_BASIC_AUTH"),
			BasePath:       getEnv("APP_BASE_PATH", ""),
			TrustedProxies: getEnvList("APP_TRUSTED_PROXIES"),
			CorsOrigins:    getEnvList("APP_CORS_ORIGINS"),
		},
		Paths: PathsConfig{
			Storages: storages,
			QRCode:   getEnv("APP_QRCODE_PATH", "statics/qrcode"),
		},
		Database: DatabaseConfig{
			Driver:      getEnv("DB_DRIVER", "sqlite"),
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvInt("DB_PORT", 5432),
			User:        getEnv("DB_USER", ""),
			Password:    getEnv("DB_PASSWORD", ""),
			Name:        getEnv("DB_NAME", storages+"/campaigns.db"),
			WhatsappURI: getEnv("WHATSAPP_DB_URI", "file:"+storages+"/whatsapp.db?_foreign_keys=on"),
		},
		Whatsapp: WhatsappConfig{
			LogLevel:   getEnv("WHATSAPP_LOG_LEVEL", "ERROR"),
			OSName:     getEnv("APP_OS", "AzielCf"),
			UserSuffix: "@s.whatsapp.net",
		},
		Campaign: CampaignConfig{
			DefaultInterval:       getEnvInt("CAMPAIGN_DEFAULT_INTERVAL", 5),
			MaxRetries:            getEnvInt("CAMPAIGN_MAX_RETRIES", 2),
			SettleDelay:           getEnvDuration("CAMPAIGN_SETTLE_DELAY", 2*time.Second),
			ReconnectAttempts:     getEnvInt("CAMPAIGN_RECONNECT_ATTEMPTS", 10),
			ReconnectPollInterval: getEnvDuration("CAMPAIGN_RECONNECT_POLL_INTERVAL", time.Second),
			MinSendGap:            getEnvDuration("CAMPAIGN_MIN_SEND_GAP", time.Second),
			TypingSpeed:           getEnvDuration("CAMPAIGN_TYPING_SPEED", 50*time.Millisecond),
			SchedulerSpec:         getEnv("CAMPAIGN_SCHEDULER_SPEC", "@every 1m"),
		},
		Webhook: WebhookConfig{
			URLs:   getEnvList("WEBHOOK_URLS"),
			Secret: getEnv("WEBHOOK_SECRET", "secret"),
		},
		Valkey: ValkeyConfig{
			Enabled:   getEnvBool("VALKEY_ENABLED", false),
			Address:   getEnv("VALKEY_ADDRESS", "localhost:6379"),
			Password:  getEnv("VALKEY_PASSWORD", ""),
			DB:        getEnvInt("VALKEY_DB", 0),
			KeyPrefix: getEnv("VALKEY_KEY_PREFIX", "azblast"),
		},
	}

	cfg.App.ServerID = utils.GetPersistentServerID(getEnv("APP_SERVER_ID", ""), storages)

	Global = cfg
	return cfg, nil
}
