package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaultsLeaveRemoteStoreUnconfigured(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.False(t, cfg.Database.Configured())
	assert.Equal(t, CacheDriverRedis, cfg.Cache.Driver)
	assert.Equal(t, "campus:", cfg.Cache.KeyPrefix)
	assert.Equal(t, 2, cfg.Gateway.RemoteRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Gateway.RetryBackoff)
	assert.True(t, cfg.Workflow.Enabled)
}

func TestDatabaseConfiguredRequiresCredentials(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("DB_HOST", "db.internal")
	v.Set("DB_USER", "campus")
	v.Set("DB_NAME", "records")
	v.Set("CACHE_DRIVER", "MEMORY")

	cfg := fromViper(v)

	assert.True(t, cfg.Database.Configured())
	assert.Equal(t, CacheDriverMemory, cfg.Cache.Driver)
}

func TestParseDurationFallsBack(t *testing.T) {
	assert.Equal(t, time.Second, parseDuration("", time.Second))
	assert.Equal(t, time.Second, parseDuration("soon", time.Second))
	assert.Equal(t, 3*time.Minute, parseDuration("3m", time.Second))
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"http://a", "http://b"}, splitAndTrim(" http://a, ,http://b "))
}
