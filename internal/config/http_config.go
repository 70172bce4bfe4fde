package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	apiURLVar         = "API_URL"
	httpTimeoutVar    = "HTTP_TIMEOUT"
	refreshTimeoutVar = "REFRESH_TIMEOUT"

	defaultAPIURL         = "http://localhost:8000"
	defaultHTTPTimeout    = 30 * time.Second
	defaultRefreshTimeout = 15 * time.Second
)

type HTTPConfig interface {
	GetAPIURL() string
	GetHTTPTimeout() time.Duration
	GetRefreshTimeout() time.Duration
}

type HTTP struct {
	v *viper.Viper
}

var _ HTTPConfig = HTTP{}

// GetAPIURL returns the backend base URL without a trailing slash
func (h HTTP) GetAPIURL() string {
	url := strings.TrimRight(getString(h.v, apiURLVar), "/")
	if url == "" {
		return defaultAPIURL
	}
	return url
}

func (h HTTP) GetHTTPTimeout() time.Duration {
	if d := h.v.GetDuration(httpTimeoutVar); d > 0 {
		return d
	}
	return defaultHTTPTimeout
}

func (h HTTP) GetRefreshTimeout() time.Duration {
	if d := h.v.GetDuration(refreshTimeoutVar); d > 0 {
		return d
	}
	return defaultRefreshTimeout
}
