package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	HTTPConfig
	StorageConfig
	BackendConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	HTTP
	Storage
	Backend
}

// New builds the configuration from the environment and, when present, a
// beetrack.yaml file in the working directory or $HOME/.config/beetrack.
func New() Config {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetConfigName("beetrack")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/beetrack")
	_ = v.ReadInConfig() // optional file

	return FromViper(v)
}

// FromViper wraps an already populated viper instance. Used by tests.
func FromViper(v *viper.Viper) Config {
	return mainConfig{
		EnvVars: EnvVars{v: v},
		HTTP:    HTTP{v: v},
		Storage: Storage{v: v},
		Backend: Backend{v: v},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(apiURLVar, defaultAPIURL)
	v.SetDefault(appNameVar, "BeeTrack")
	v.SetDefault(envVar, "DEV")
	v.SetDefault(logLevelVar, "info")
	v.SetDefault(httpTimeoutVar, defaultHTTPTimeout)
	v.SetDefault(refreshTimeoutVar, defaultRefreshTimeout)
	v.SetDefault(tokenStoreVar, TokenStoreFile)
	v.SetDefault(redisAddrVar, "localhost:6379")
	v.SetDefault(redisKeyVar, "beetrack:access_token")
	v.SetDefault(portVar, defaultPort)
	v.SetDefault(rateLimitStoreVar, RateLimitMemory)
	v.SetDefault(seedDemoUsersVar, true)
}

// NewDefaults returns a configuration holding only the built-in defaults.
func NewDefaults() Config {
	v := viper.New()
	setDefaults(v)
	return FromViper(v)
}

func getString(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}
