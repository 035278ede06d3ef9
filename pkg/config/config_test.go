package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENV", "STORE_DRIVER", "SCANNER_INTERVAL_SECONDS", "SCANNER_GRACE_MINUTES",
		"SCANNER_BATCH_LIMIT", "DEFAULT_INVESTOR_MULTIPLIER", "DEFAULT_REMINDER_OFFSETS", "REDIS_URL",
	} {
		t.Setenv(key, "")
	}

	cfg := New()

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.UsesMemoryStore())
	assert.Equal(t, 60*time.Second, cfg.ScannerInterval)
	assert.Equal(t, 15*time.Minute, cfg.ScannerGracePeriod)
	assert.Equal(t, 200, cfg.ScannerBatchLimit)
	assert.InDelta(t, 0.70, cfg.DefaultInvestorMultiplier, 1e-9)
	assert.Equal(t, []int{-60, -15}, cfg.DefaultReminderOffsets)
	assert.False(t, cfg.HasRedis())
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("SCANNER_INTERVAL_SECONDS", "30")
	t.Setenv("SCANNER_GRACE_MINUTES", "5")
	t.Setenv("DEFAULT_REMINDER_OFFSETS", "-1440, -60")
	t.Setenv("ALLOWED_ORIGINS", "https://app.dealflowos.com,https://admin.dealflowos.com")

	cfg := New()

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.UsesMemoryStore())
	assert.Equal(t, 30*time.Second, cfg.ScannerInterval)
	assert.Equal(t, 5*time.Minute, cfg.ScannerGracePeriod)
	assert.Equal(t, []int{-1440, -60}, cfg.DefaultReminderOffsets)
	assert.Len(t, cfg.GetAllowedOrigins(), 2)
}

func TestGetEnvAsIntList_MalformedFallsBack(t *testing.T) {
	t.Setenv("DEFAULT_REMINDER_OFFSETS", "-60,soon")

	assert.Equal(t, []int{-5}, getEnvAsIntList("DEFAULT_REMINDER_OFFSETS", []int{-5}))
}
