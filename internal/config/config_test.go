package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORAGE_DRIVER", "STORAGE_KEY", "AUDIT_TIMEOUT", "AUDIT_MAX_ATTEMPTS", "GEMINI_API_KEY", "API_KEY"} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverFile, cfg.StorageDriver)
	assert.Equal(t, "panel_reference_library_data", cfg.StorageKey)
	assert.Equal(t, 60*time.Second, cfg.AuditTimeout)
	assert.Equal(t, 2, cfg.AuditMaxAttempts)
	assert.Empty(t, cfg.GeminiAPIKey)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_DRIVER", DriverRedis)
	t.Setenv("AUDIT_TIMEOUT", "5s")
	t.Setenv("AUDIT_MAX_ATTEMPTS", "3")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "legacy-key")

	cfg := LoadConfig()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverRedis, cfg.StorageDriver)
	assert.Equal(t, 5*time.Second, cfg.AuditTimeout)
	assert.Equal(t, 3, cfg.AuditMaxAttempts)
	assert.Equal(t, "legacy-key", cfg.GeminiAPIKey)
}

func TestLoadConfig_BadValuesKeepDefaults(t *testing.T) {
	t.Setenv("AUDIT_TIMEOUT", "soon")
	t.Setenv("AUDIT_MAX_ATTEMPTS", "many")

	cfg := LoadConfig()

	assert.Equal(t, 60*time.Second, cfg.AuditTimeout)
	assert.Equal(t, 2, cfg.AuditMaxAttempts)
}
