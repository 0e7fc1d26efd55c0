package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.Equal(t, 30*time.Second, cfg.Availability.CacheTTL)
	assert.Equal(t, 2, cfg.Notifications.Workers)
	assert.Equal(t, int64(2*1024*1024), cfg.Imports.MaxFileSizeBytes)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("DB_DRIVER", "PGX")
	v.Set("AVAILABILITY_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	v.Set("NOTIFY_RETRY_DELAY", "5s")

	cfg := fromViper(v)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 30*time.Second, cfg.Availability.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Second, cfg.Notifications.RetryDelay)
}
