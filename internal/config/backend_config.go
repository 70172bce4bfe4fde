package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	portVar           = "PORT"
	signingKeyVar     = "JWT_SECRET"
	rateLimitStoreVar = "RATE_LIMIT_STORE"
	seedDemoUsersVar  = "SEED_DEMO_USERS"

	defaultPort = ":8000"
)

// Rate limiter backends for the development backend
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// BackendConfig configures the development backend in cmd/fakebackend
type BackendConfig interface {
	GetPort() string
	GetSigningKey() []byte
	GetRateLimitStore() string
	GetSeedDemoUsers() bool
}

type Backend struct {
	v *viper.Viper
}

var _ BackendConfig = Backend{}

// GetPort returns the listen address, accepting either "8000" or ":8000"
func (b Backend) GetPort() string {
	port := getString(b.v, portVar)
	if port == "" {
		return defaultPort
	}
	if !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}

// GetSigningKey returns nil when unset, leaving the backend to generate one
func (b Backend) GetSigningKey() []byte {
	if key := getString(b.v, signingKeyVar); key != "" {
		return []byte(key)
	}
	return nil
}

func (b Backend) GetRateLimitStore() string {
	if getString(b.v, rateLimitStoreVar) == RateLimitRedis {
		return RateLimitRedis
	}
	return RateLimitMemory
}

func (b Backend) GetSeedDemoUsers() bool {
	return b.v.GetBool(seedDemoUsersVar)
}
