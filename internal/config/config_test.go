package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DB_CONN_STR", "")
	t.Setenv("DB_HOST", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.GRPCAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.True(t, decimal.NewFromInt(10).Equal(cfg.MinimumDisputeAmount))
	assert.Equal(t, 72*time.Hour, cfg.EvidenceWindow)
	assert.Equal(t, 30*24*time.Hour, cfg.StaleThreshold)
	assert.Equal(t, 14*24*time.Hour, cfg.MaxHold)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.Equal(t, time.Hour, cfg.SweepLeaseTTL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
service:
  grpc_addr: ":9000"
dependencies:
  kafka_brokers: [" kafka-1:9092 ", ""]
escrow:
  platform_fee_percent: "12.5"
  max_hold: 240h
disputes:
  evidence_window: 48h
workers:
  sweep_interval: 5m
  sweep_lease_ttl: 20m
`)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("DB_CONN_STR", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("GRPC_ADDR", ":9100")
	t.Setenv("DISPUTE_MINIMUM_AMOUNT", "25")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.GRPCAddr)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.KafkaBrokers)
	assert.True(t, decimal.RequireFromString("12.5").Equal(cfg.PlatformFeePercent))
	assert.True(t, decimal.NewFromInt(25).Equal(cfg.DisputePolicy().MinimumAmount))
	assert.Equal(t, 240*time.Hour, cfg.MaxHold)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
	assert.Equal(t, 20*time.Minute, cfg.SweepLeaseTTL)
	assert.Equal(t, 48*time.Hour, cfg.DisputePolicy().EvidenceWindow)
	assert.True(t, decimal.NewFromInt(5).Equal(cfg.Rates().ContingencyBufferPercent))
	assert.Nil(t, cfg.Rates().AgencyCommissionPercent)
}

func TestLoad_DatabaseURL(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	t.Run("Connection string wins", func(t *testing.T) {
		t.Setenv("DB_CONN_STR", "postgres://u:p@db:5432/escrow")
		t.Setenv("DB_HOST", "ignored")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "postgres://u:p@db:5432/escrow", cfg.DatabaseURL)
	})

	t.Run("Assembled from parts", func(t *testing.T) {
		t.Setenv("DB_CONN_STR", "")
		t.Setenv("DB_HOST", "db")
		t.Setenv("DB_NAME", "escrow")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Contains(t, cfg.DatabaseURL, "host=db")
		assert.Contains(t, cfg.DatabaseURL, "dbname=escrow")
	})
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{"Short secret", "", map[string]string{"JWT_SECRET": "short"}},
		{"Malformed yaml", "service: [", map[string]string{"JWT_SECRET": testSecret}},
		{"Bad duration", "disputes:\n  evidence_window: soon\n", map[string]string{"JWT_SECRET": testSecret}},
		{"Rate above 100", "", map[string]string{"JWT_SECRET": testSecret, "PLATFORM_FEE_PERCENT": "101"}},
		{"Unknown driver", "", map[string]string{"JWT_SECRET": testSecret, "DB_DRIVER": "mysql"}},
		{"Zero lease ttl", "workers:\n  sweep_lease_ttl: 0s\n", map[string]string{"JWT_SECRET": testSecret}},
		{"Bad decimal", "", map[string]string{"JWT_SECRET": testSecret, "CONTINGENCY_BUFFER_PERCENT": "five"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeFile(t, tt.file)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
