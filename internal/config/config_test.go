package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/beetrack-client/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.NewDefaults()

	require.Equal(t, "http://localhost:8000", c.GetAPIURL())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, config.TokenStoreFile, c.GetTokenStore())
	require.Equal(t, 30*time.Second, c.GetHTTPTimeout())
	require.Equal(t, 15*time.Second, c.GetRefreshTimeout())
	require.NotEmpty(t, c.GetCredentialsFile())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("API_URL", "https://api.beetrack.test/")
	t.Setenv("TOKEN_STORE", "redis")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("ENV", "prod")

	c := config.New()

	require.Equal(t, "https://api.beetrack.test", c.GetAPIURL())
	require.Equal(t, config.TokenStoreRedis, c.GetTokenStore())
	require.Equal(t, 5*time.Second, c.GetHTTPTimeout())
	require.Equal(t, "PROD", c.GetEnv())
}

func TestUnknownTokenStoreFallsBackToFile(t *testing.T) {
	v := viper.New()
	v.Set("TOKEN_STORE", "floppy")

	c := config.FromViper(v)

	require.Equal(t, config.TokenStoreFile, c.GetTokenStore())
	require.Equal(t, "http://localhost:8000", c.GetAPIURL())
}

func TestBackendSettings(t *testing.T) {
	c := config.NewDefaults()
	require.Equal(t, ":8000", c.GetPort())
	require.Nil(t, c.GetSigningKey())
	require.Equal(t, config.RateLimitMemory, c.GetRateLimitStore())
	require.True(t, c.GetSeedDemoUsers())

	v := viper.New()
	v.Set("PORT", "9090")
	v.Set("JWT_SECRET", "shh")
	v.Set("RATE_LIMIT_STORE", "redis")
	v.Set("SEED_DEMO_USERS", false)
	c = config.FromViper(v)

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, []byte("shh"), c.GetSigningKey())
	require.Equal(t, config.RateLimitRedis, c.GetRateLimitStore())
	require.False(t, c.GetSeedDemoUsers())
}
