package app

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.08")))
	require.True(t, cfg.DepositPct.Equal(decimal.NewFromInt(50)))
	require.True(t, cfg.EmergencySurchargePct.Equal(decimal.NewFromInt(25)))
	require.Equal(t, "UTC", cfg.Location().String())
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsBadPricing(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("TAX_RATE", "1.5")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestConfigConnectionSettings(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PG_MAX_CONNS", "20")
	t.Setenv("REDIS_PASSWORD", "pw")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	pg := cfg.Postgres("pressroom-worker")
	require.Equal(t, cfg.PGDSN, pg.DSN)
	require.Equal(t, "pressroom-worker", pg.ApplicationName)
	require.EqualValues(t, 20, pg.MaxConns)
	require.Equal(t, 5*time.Minute, pg.MaxConnIdleTime)

	rc := cfg.Redis()
	require.Equal(t, "pw", rc.Password)
	require.Equal(t, 3, rc.DB)
	require.Equal(t, rc.Addr, cfg.AsynqRedis().Addr)
	require.Equal(t, 3, cfg.AsynqRedis().DB)
}

func TestLoadConfigRejectsBadPoolBounds(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PG_MAX_CONNS", "2")
	t.Setenv("PG_MIN_CONNS", "4")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestInTestModeReadsEnvironment(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	require.True(t, InTestMode())
}
