package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DanielPopoola/payment-orchestrator/internal/application/gatewayinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ORCHESTRATOR_DATABASE__DRIVER", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Primary.Env)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2*time.Hour, cfg.Worker.PendingTTL)
	assert.Equal(t, []string{gatewayinfo.ManualGateway}, cfg.Payments.AllowedGateways)
	require.Contains(t, cfg.Gateways, "Manual")
	assert.Equal(t, "manual", cfg.Gateways["Manual"].Driver)
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orchestrator.yaml")
	yaml := `
primary:
  env: production
database:
  driver: memory
payments:
  endpoint_base_url: https://pay.example.com
  allowed_gateways: [Manual, Acme]
gateways:
  Acme:
    driver: bank
    use_authorize: true
    can_capture: multiple
    max_excess_percent: "10"
    max_excess_amount:
      usd: "5"
    params:
      base_url: https://bank.example.com
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("ORCHESTRATOR_CONFIG_FILE", path)
	t.Setenv("ORCHESTRATOR_SERVER__PORT", "9090")
	t.Setenv("ORCHESTRATOR_PRIMARY__STRICT_EXTENSIONS", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Primary.Env)
	assert.True(t, cfg.Primary.StrictExtensions)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"Manual", "Acme"}, cfg.Payments.AllowedGateways)

	acme := cfg.Gateways["Acme"]
	assert.Equal(t, "bank", acme.Driver)
	assert.Equal(t, "https://bank.example.com", acme.Params["base_url"])

	reg := cfg.Registry()["Acme"]
	assert.True(t, reg.UseAuthorize)
	assert.Equal(t, gatewayinfo.ModeMultiple, reg.CanCapture)
	assert.Equal(t, "10", reg.MaxExcessPercent)
	assert.Equal(t, "5", reg.MaxExcessAmount["usd"])
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without host", map[string]string{"ORCHESTRATOR_DATABASE__DRIVER": "postgres"}},
		{"unknown driver", map[string]string{"ORCHESTRATOR_DATABASE__DRIVER": "sqlite"}},
		{"bad endpoint url", map[string]string{
			"ORCHESTRATOR_DATABASE__DRIVER":            "memory",
			"ORCHESTRATOR_PAYMENTS__ENDPOINT_BASE_URL": "not a url",
		}},
		{"bad capture mode", map[string]string{
			"ORCHESTRATOR_DATABASE__DRIVER":              "memory",
			"ORCHESTRATOR_GATEWAYS__MANUAL__DRIVER":      "manual",
			"ORCHESTRATOR_GATEWAYS__MANUAL__CAN_CAPTURE": "sometimes",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestPgxConfig(t *testing.T) {
	db := DatabaseConfig{
		Host:         "db.internal",
		Port:         5433,
		User:         "orchestrator",
		Password:     "p@ss word",
		Name:         "payments",
		SSLMode:      "disable",
		MaxOpenConns: 7,
	}

	cfg, err := db.PgxConfig(t.Context())
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.ConnConfig.Host)
	assert.Equal(t, uint16(5433), cfg.ConnConfig.Port)
	assert.Equal(t, "p@ss word", cfg.ConnConfig.Password)
	assert.Equal(t, int32(7), cfg.MaxConns)
	assert.Equal(t, 30*time.Second, cfg.HealthCheckPeriod)
}

func TestNewLogger(t *testing.T) {
	logger := LoggerConfig{Level: "warn", Format: "json"}.NewLogger()
	assert.False(t, logger.Enabled(t.Context(), -4))
	assert.True(t, logger.Enabled(t.Context(), 4))
}
