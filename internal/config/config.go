// Package config loads process settings from defaults, an optional YAML file
// and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/simaogato/shiftescrow-backend/internal/usecase/dispute"
	"github.com/simaogato/shiftescrow-backend/internal/usecase/fees"
)

type Config struct {
	ServiceID string

	GRPCAddr string
	HTTPAddr string

	DatabaseURL    string // empty selects the in-memory store
	DatabaseDriver string

	JWTSecret string
	TokenTTL  time.Duration

	KafkaBrokers []string
	KafkaTopic   string // empty routes each event family to its own topic

	RedisURL string // empty selects the process-local lock

	PlatformFeePercent       decimal.Decimal
	ContingencyBufferPercent decimal.Decimal
	MinimumDisputeAmount     decimal.Decimal

	EvidenceWindow time.Duration
	StaleThreshold time.Duration
	MaxHold        time.Duration

	SweepInterval  time.Duration
	SweepLeaseTTL  time.Duration
	RelayInterval  time.Duration
	RelayBatchSize int
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		GRPCAddr string `yaml:"grpc_addr"`
		HTTPAddr string `yaml:"http_addr"`
	} `yaml:"service"`
	Database struct {
		URL    string `yaml:"url"`
		Driver string `yaml:"driver"`
	} `yaml:"database"`
	Auth struct {
		TokenTTL string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Dependencies struct {
		KafkaBrokers []string `yaml:"kafka_brokers"`
		KafkaTopic   string   `yaml:"kafka_topic"`
		RedisURL     string   `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Escrow struct {
		PlatformFeePercent       string `yaml:"platform_fee_percent"`
		ContingencyBufferPercent string `yaml:"contingency_buffer_percent"`
		MaxHold                  string `yaml:"max_hold"`
	} `yaml:"escrow"`
	Disputes struct {
		MinimumAmount  string `yaml:"minimum_amount"`
		EvidenceWindow string `yaml:"evidence_window"`
		StaleThreshold string `yaml:"stale_threshold"`
	} `yaml:"disputes"`
	Workers struct {
		SweepInterval  string `yaml:"sweep_interval"`
		SweepLeaseTTL  string `yaml:"sweep_lease_ttl"`
		RelayInterval  string `yaml:"relay_interval"`
		RelayBatchSize int    `yaml:"relay_batch_size"`
	} `yaml:"workers"`
}

// Load builds the configuration. A missing file at path is not an error.
func Load(path string) (Config, error) {
	policy := dispute.DefaultPolicy()
	cfg := Config{
		ServiceID:                "shiftescrow",
		GRPCAddr:                 ":8080",
		HTTPAddr:                 ":8081",
		DatabaseDriver:           "postgres",
		TokenTTL:                 time.Hour,
		PlatformFeePercent:       decimal.NewFromInt(10),
		ContingencyBufferPercent: decimal.NewFromInt(5),
		MinimumDisputeAmount:     policy.MinimumAmount,
		EvidenceWindow:           policy.EvidenceWindow,
		StaleThreshold:           policy.StaleThreshold,
		MaxHold:                  14 * 24 * time.Hour,
		SweepInterval:            15 * time.Minute,
		SweepLeaseTTL:            time.Hour,
		RelayInterval:            2 * time.Second,
		RelayBatchSize:           100,
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := cfg.applyFile(raw); err != nil {
				return Config{}, err
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(raw []byte) error {
	var f configFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if f.Service.ID != "" {
		c.ServiceID = f.Service.ID
	}
	if f.Service.GRPCAddr != "" {
		c.GRPCAddr = f.Service.GRPCAddr
	}
	if f.Service.HTTPAddr != "" {
		c.HTTPAddr = f.Service.HTTPAddr
	}
	if f.Database.URL != "" {
		c.DatabaseURL = f.Database.URL
	}
	if f.Database.Driver != "" {
		c.DatabaseDriver = f.Database.Driver
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		c.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
	}
	if f.Dependencies.KafkaTopic != "" {
		c.KafkaTopic = f.Dependencies.KafkaTopic
	}
	if f.Dependencies.RedisURL != "" {
		c.RedisURL = f.Dependencies.RedisURL
	}
	if f.Workers.RelayBatchSize > 0 {
		c.RelayBatchSize = f.Workers.RelayBatchSize
	}

	decimals := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"escrow.platform_fee_percent", f.Escrow.PlatformFeePercent, &c.PlatformFeePercent},
		{"escrow.contingency_buffer_percent", f.Escrow.ContingencyBufferPercent, &c.ContingencyBufferPercent},
		{"disputes.minimum_amount", f.Disputes.MinimumAmount, &c.MinimumDisputeAmount},
	}
	for _, d := range decimals {
		if d.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(d.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = v
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"auth.token_ttl", f.Auth.TokenTTL, &c.TokenTTL},
		{"escrow.max_hold", f.Escrow.MaxHold, &c.MaxHold},
		{"disputes.evidence_window", f.Disputes.EvidenceWindow, &c.EvidenceWindow},
		{"disputes.stale_threshold", f.Disputes.StaleThreshold, &c.StaleThreshold},
		{"workers.sweep_interval", f.Workers.SweepInterval, &c.SweepInterval},
		{"workers.sweep_lease_ttl", f.Workers.SweepLeaseTTL, &c.SweepLeaseTTL},
		{"workers.relay_interval", f.Workers.RelayInterval, &c.RelayInterval},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.ServiceID = envOrDefault("SERVICE_ID", c.ServiceID)
	c.GRPCAddr = envOrDefault("GRPC_ADDR", c.GRPCAddr)
	c.HTTPAddr = envOrDefault("HTTP_ADDR", c.HTTPAddr)
	c.DatabaseURL = databaseURL(c.DatabaseURL)
	c.DatabaseDriver = envOrDefault("DB_DRIVER", c.DatabaseDriver)
	c.JWTSecret = envOrDefault("JWT_SECRET", c.JWTSecret)
	c.TokenTTL = envDuration("TOKEN_TTL", c.TokenTTL)
	c.KafkaBrokers = envCSV("KAFKA_BROKERS", c.KafkaBrokers)
	c.KafkaTopic = envOrDefault("KAFKA_TOPIC", c.KafkaTopic)
	c.RedisURL = envOrDefault("REDIS_URL", c.RedisURL)
	c.EvidenceWindow = envDuration("DISPUTE_EVIDENCE_WINDOW", c.EvidenceWindow)
	c.StaleThreshold = envDuration("DISPUTE_STALE_THRESHOLD", c.StaleThreshold)
	c.MaxHold = envDuration("ESCROW_MAX_HOLD", c.MaxHold)
	c.SweepInterval = envDuration("SWEEP_INTERVAL", c.SweepInterval)
	c.SweepLeaseTTL = envDuration("SWEEP_LEASE_TTL", c.SweepLeaseTTL)
	c.RelayInterval = envDuration("RELAY_INTERVAL", c.RelayInterval)
	c.RelayBatchSize = envInt("RELAY_BATCH_SIZE", c.RelayBatchSize)

	var err error
	if c.PlatformFeePercent, err = envDecimal("PLATFORM_FEE_PERCENT", c.PlatformFeePercent); err != nil {
		return err
	}
	if c.ContingencyBufferPercent, err = envDecimal("CONTINGENCY_BUFFER_PERCENT", c.ContingencyBufferPercent); err != nil {
		return err
	}
	if c.MinimumDisputeAmount, err = envDecimal("DISPUTE_MINIMUM_AMOUNT", c.MinimumDisputeAmount); err != nil {
		return err
	}
	return nil
}

// Validate rejects settings the engine cannot run with
func (c Config) Validate() error {
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.DatabaseDriver != "postgres" && c.DatabaseDriver != "pgx" {
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	if err := c.Rates().Validate(); err != nil {
		return fmt.Errorf("invalid rates: %w", err)
	}
	if c.MinimumDisputeAmount.IsNegative() {
		return fmt.Errorf("minimum dispute amount must not be negative")
	}
	for name, d := range map[string]time.Duration{
		"token ttl":       c.TokenTTL,
		"evidence window": c.EvidenceWindow,
		"stale threshold": c.StaleThreshold,
		"max hold":        c.MaxHold,
		"sweep interval":  c.SweepInterval,
		"sweep lease ttl": c.SweepLeaseTTL,
		"relay interval":  c.RelayInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

// Rates returns the platform-wide fee configuration; agency commission is per assignment
func (c Config) Rates() fees.RateConfig {
	return fees.RateConfig{
		PlatformFeePercent:       c.PlatformFeePercent,
		ContingencyBufferPercent: c.ContingencyBufferPercent,
	}
}

func (c Config) DisputePolicy() dispute.Policy {
	return dispute.Policy{
		MinimumAmount:  c.MinimumDisputeAmount,
		EvidenceWindow: c.EvidenceWindow,
		StaleThreshold: c.StaleThreshold,
	}
}

// databaseURL prefers DB_CONN_STR, then a DSN assembled from DB_HOST and friends
func databaseURL(fallback string) string {
	if dsn := os.Getenv("DB_CONN_STR"); dsn != "" {
		return dsn
	}
	host := os.Getenv("DB_HOST")
	if host == "" {
		return fallback
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host,
		envOrDefault("DB_PORT", "5432"),
		envOrDefault("DB_USER", "postgres"),
		envOrDefault("DB_PASSWORD", "postgres"),
		envOrDefault("DB_NAME", "shiftescrow"),
		envOrDefault("DB_SSLMODE", "disable"),
	)
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDecimal(name string, fallback decimal.Decimal) (decimal.Decimal, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %s: %w", name, err)
	}
	return v, nil
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
