package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"goeventcity/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	PaymentProviderSimulated = "simulated"
	PaymentProviderStripe    = "stripe"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Database   DatabaseConfig   `yaml:"database"`
	Backup     BackupConfig     `yaml:"backup"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Payment    PaymentConfig    `yaml:"payment"`
	Booking    BookingConfig    `yaml:"booking"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// ExportConfig turns the Excel bookings export endpoint on.
type ExportConfig struct {
	Enabled bool `yaml:"enabled"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type TelegramConfig struct {
	BotToken          string `yaml:"bot_token"`
	Debug             bool   `yaml:"debug"`
	RateLimitMessages int    `yaml:"rate_limit_messages"`
	RateLimitWindow   int    `yaml:"rate_limit_window"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type PaymentConfig struct {
	Provider string `yaml:"provider"`
	Currency string `yaml:"currency"`
	// SimulatedDelayMs задержка имитации авторизации, мс
	SimulatedDelayMs int          `yaml:"simulated_delay_ms"`
	Stripe           StripeConfig `yaml:"stripe"`
}

type StripeConfig struct {
	SecretKey          string `yaml:"secret_key"`
	SavedPaymentMethod string `yaml:"saved_payment_method"`
	// APIURL overrides the Stripe API endpoint (stripe-mock, tests).
	APIURL string `yaml:"api_url"`
}

type BookingConfig struct {
	HoldPercent       int    `yaml:"hold_percent"`
	SessionTTLSeconds int    `yaml:"session_ttl_seconds"`
	MaxBookingDays    int    `yaml:"max_booking_days"`
	VenuesFile        string `yaml:"venues_file"`
}

type KafkaConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic"`
	ClientID string   `yaml:"client_id"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	BookingSpreadSheetID  string `yaml:"bookings_spreadsheet_id"`
}

func (b BookingConfig) SessionTTL() time.Duration {
	return time.Duration(b.SessionTTLSeconds) * time.Second
}

func (p PaymentConfig) SimulatedDelay() time.Duration {
	return time.Duration(p.SimulatedDelayMs) * time.Millisecond
}

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	switch c.Payment.Provider {
	case PaymentProviderSimulated:
	case PaymentProviderStripe:
		if c.Payment.Stripe.SecretKey == "" {
			return errors.New("stripe secret key is required for the stripe payment provider")
		}
	default:
		return fmt.Errorf("unknown payment provider %q", c.Payment.Provider)
	}

	if c.Booking.HoldPercent < 1 || c.Booking.HoldPercent > 100 {
		return fmt.Errorf("hold percent must be within 1..100, got %d", c.Booking.HoldPercent)
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka brokers are required when kafka is enabled")
	}

	return nil
}

// ValidateBot проверяет настройки, без которых бот не запустится
func (c *Config) ValidateBot() error {
	if c.Telegram.BotToken == "" || c.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		return errors.New("telegram bot token is required")
	}
	return nil
}

func ValidateVenues(venues []*models.Venue) error {
	// Check for duplicate venue IDs
	venueIDs := make(map[int64]bool)
	for _, venue := range venues {
		if venue.ID == 0 {
			return fmt.Errorf("venue '%s' has invalid ID 0", venue.Name)
		}
		if venueIDs[venue.ID] {
			return fmt.Errorf("duplicate venue ID found: %d", venue.ID)
		}
		if venue.PricePerHour < 0 {
			return fmt.Errorf("venue %d has negative price per hour", venue.ID)
		}
		if venue.Capacity < 1 {
			return fmt.Errorf("venue %d must have capacity of at least 1", venue.ID)
		}
		for _, fee := range venue.Fees {
			if fee.Amount < 0 {
				return fmt.Errorf("venue %d has negative fee %q", venue.ID, fee.Name)
			}
		}
		venueIDs[venue.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "goeventcity"
	}
	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	// auth enabled by default when API is enabled
	if !c.API.Auth.Enabled {
		c.API.Auth.Enabled = true
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Payment.Provider == "" {
		c.Payment.Provider = PaymentProviderSimulated
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "usd"
	}
	if c.Payment.SimulatedDelayMs == 0 {
		c.Payment.SimulatedDelayMs = models.DefaultSimulatedPaymentDelay
	}
	if c.Payment.Stripe.SavedPaymentMethod == "" {
		c.Payment.Stripe.SavedPaymentMethod = "pm_card_visa"
	}

	if c.Booking.HoldPercent == 0 {
		c.Booking.HoldPercent = models.DefaultHoldPercent
	}
	if c.Booking.SessionTTLSeconds == 0 {
		c.Booking.SessionTTLSeconds = models.DefaultSessionTTL
	}
	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = 365
	}
	if c.Booking.VenuesFile == "" {
		c.Booking.VenuesFile = "configs/venues.yaml"
	}

	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "goeventcity.bookings"
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = c.App.Name
	}

	// Bot defaults
	if c.Telegram.RateLimitMessages == 0 {
		c.Telegram.RateLimitMessages = models.RateLimitMessages
	}
	if c.Telegram.RateLimitWindow == 0 {
		c.Telegram.RateLimitWindow = models.RateLimitWindow
	}
}
