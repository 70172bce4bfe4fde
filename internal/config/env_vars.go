package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	appNameVar  = "APP_NAME"
	envVar      = "ENV"
	logLevelVar = "LOG_LEVEL"
)

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return getString(e.v, appNameVar)
}

// GetEnv returns the upper-cased environment name, "DEV" when unset.
func (e EnvVars) GetEnv() string {
	env := strings.ToUpper(getString(e.v, envVar))
	if env == "" {
		return "DEV"
	}
	return env
}

func (e EnvVars) GetLogLevel() string {
	return strings.ToLower(getString(e.v, logLevelVar))
}
