package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadConfig reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"ENVIRONMENT", "PORT", "METRICS_ENABLED", "ALLOWED_ORIGINS", "JWT_SECRET", "DATABASE_URL",
		"REDIS_URL", "MEMBERSHIP_CACHE_TTL", "S3_BUCKET_NAME", "S3_ENDPOINT", "S3_REGION",
		"S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "KAFKA_BROKERS", "KAFKA_TOPIC",
		"PRESENCE_TTL", "PRESENCE_SWEEP_INTERVAL", "STORE_TIMEOUT", "HISTORY_DEFAULT_LIMIT",
		"HISTORY_MAX_LIMIT", "HISTORY_AUTO_ENROLL", "ROOM_JOIN_REQUIRES_MEMBERSHIP",
	} {
		t.Setenv(name, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Environment)
	assert.Equal(t, 8080, cfg.Port)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, []string{}, cfg.AllowedOrigins)
	assert.Equal(t, defaultDevJWTSecret, cfg.JWTSecret)
	assert.Equal(t, defaultDevDSN, cfg.DatabaseDSN)
	assert.Equal(t, 5*time.Minute, cfg.MembershipCacheTTL)
	assert.Equal(t, "chat.messages", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 60*time.Second, cfg.PresenceTTL)
	assert.Equal(t, 15*time.Second, cfg.PresenceSweepInterval)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 50, cfg.HistoryDefaultLimit)
	assert.Equal(t, 100, cfg.HistoryMaxLimit)
	assert.True(t, cfg.HistoryAutoEnroll)
	assert.False(t, cfg.RoomJoinRequiresMembership)
	assert.False(t, cfg.S3Enabled())
}

func TestLoadConfigOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cr3t")
	t.Setenv("DATABASE_URL", "postgres://chat@db/chat")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PRESENCE_TTL", "90s")
	t.Setenv("HISTORY_AUTO_ENROLL", "false")
	t.Setenv("ROOM_JOIN_REQUIRES_MEMBERSHIP", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.PresenceTTL)
	assert.False(t, cfg.HistoryAutoEnroll)
	assert.True(t, cfg.RoomJoinRequiresMembership)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "production without secret",
			env:     map[string]string{"ENVIRONMENT": "production", "DATABASE_URL": "postgres://x"},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "production without database",
			env:     map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": "x"},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "privileged port",
			env:     map[string]string{"PORT": "80"},
			wantErr: "port number 80",
		},
		{
			name:    "default limit above max",
			env:     map[string]string{"HISTORY_DEFAULT_LIMIT": "200"},
			wantErr: "HISTORY_DEFAULT_LIMIT",
		},
		{
			name:    "partial s3",
			env:     map[string]string{"S3_BUCKET_NAME": "avatars"},
			wantErr: "S3_ENDPOINT",
		},
		{
			name:    "zero presence ttl",
			env:     map[string]string{"PRESENCE_TTL": "0s"},
			wantErr: "PRESENCE_TTL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
