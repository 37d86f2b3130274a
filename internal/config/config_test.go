package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "")
	t.Setenv("NOTIFY_MAX_ATTEMPTS", "")
	t.Setenv("APPOINTMENT_CANCEL_CUTOFF_MINUTES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "UTC", cfg.App.Timezone)
	assert.Equal(t, 2*time.Hour, cfg.Appointment.CancelCutoff())
	assert.Equal(t, 20, cfg.Appointment.PageSize)
	assert.Equal(t, 2, cfg.Notification.Attempts())
	assert.Equal(t, "pt_BR", cfg.Notification.Locale)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "America/Sao_Paulo")
	t.Setenv("APPOINTMENT_CANCEL_CUTOFF_MINUTES", "30")
	t.Setenv("NOTIFY_SEND_TIMEOUT_SECONDS", "3")
	t.Setenv("REDIS_LOCK_TTL_MS", "1500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "America/Sao_Paulo", cfg.App.Location().String())
	assert.Equal(t, 30*time.Minute, cfg.Appointment.CancelCutoff())
	assert.Equal(t, 3*time.Second, cfg.Notification.SendTimeout())
	assert.Equal(t, 1500*time.Millisecond, cfg.Redis.LockTTL())
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("APP_TIMEZONE", "Mars/Olympus_Mons")

	_, err := Load()
	assert.Error(t, err)
}

func TestAttemptsAllowsAtMostOneRetry(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: -1, want: 1},
		{in: 0, want: 1},
		{in: 1, want: 1},
		{in: 2, want: 2},
		{in: 10, want: 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NotificationConfig{MaxAttempts: tt.in}.Attempts(), "MaxAttempts=%d", tt.in)
	}
}
