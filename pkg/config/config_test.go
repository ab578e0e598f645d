package config_test

import (
	"testing"
	"time"

	"github.com/jhoicas/fotara-api/pkg/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := config.FromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "https://backend.jofotara.gov.jo/core/invoices/", cfg.Fotara.APIURL)
	assert.Equal(t, 30*time.Second, cfg.Fotara.RequestTimeout)
	assert.Equal(t, "Asia/Amman", cfg.Fotara.Timezone)
	assert.Equal(t, "JO", cfg.Fotara.HomeCountry)
	assert.Equal(t, "10000", cfg.Fotara.CreditIDThreshold)
	assert.Equal(t, config.QueueMemory, cfg.Fotara.Queue)
	assert.Equal(t, 15*time.Minute, cfg.Fotara.StaleAfter)
	assert.Equal(t, 5*time.Minute, cfg.Fotara.SweepInterval)
	assert.Equal(t, "fotara:jobs", cfg.Redis.QueueKey)
}

func TestFromViper_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("FOTARA_QUEUE", "REDIS")
	v.Set("FOTARA_WORKERS", "8")
	v.Set("FOTARA_REQUEST_TIMEOUT_SECONDS", 5)
	v.Set("FOTARA_HOME_COUNTRY", "jo")
	v.Set("FOTARA_SWEEP_INTERVAL_MINUTES", "0")
	v.Set("FOTARA_CREDIT_ID_THRESHOLD", "0")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, config.QueueRedis, cfg.Fotara.Queue)
	assert.Equal(t, 8, cfg.Fotara.Workers)
	assert.Equal(t, 5*time.Second, cfg.Fotara.RequestTimeout)
	assert.Equal(t, "JO", cfg.Fotara.HomeCountry)
	assert.Zero(t, cfg.Fotara.SweepInterval)
	assert.Equal(t, "0", cfg.Fotara.CreditIDThreshold)
}

func TestFromViper_ColaInvalida(t *testing.T) {
	v := viper.New()
	v.Set("FOTARA_QUEUE", "kafka")
	_, err := config.FromViper(v)
	assert.Error(t, err)
}

func TestDBConfig_DSN(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", DBName: "fotara", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/fotara?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
