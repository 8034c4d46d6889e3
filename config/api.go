package config

import (
	"strings"
	"time"
)

const (
	defaultAPIBaseURL   = "http://localhost:5000/api"
	defaultAPITimeout   = 30 * time.Second
	defaultAPIUserAgent = "wifi-voucher-client/1.0"
)

// APIConfig contains settings for talking to the voucher backend.
type APIConfig struct {
	// BaseURL is the REST root; request paths such as /auth/login are appended to it.
	BaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:5000/api"`

	// Timeout bounds a single request including reading the body.
	Timeout time.Duration `env:"API_TIMEOUT" envDefault:"30s"`

	UserAgent string `env:"API_USER_AGENT" envDefault:"wifi-voucher-client/1.0"`

	// CookiesEnabled keeps a cookie jar across requests (captive portals behind
	// a sticky load balancer).
	CookiesEnabled bool `env:"API_COOKIES_ENABLED" envDefault:"false"`
}

// Sanitize trims the base URL and restores defaults for unusable values.
func (c *APIConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultAPIBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultAPITimeout
	}
	if c.UserAgent = strings.TrimSpace(c.UserAgent); c.UserAgent == "" {
		c.UserAgent = defaultAPIUserAgent
	}
}
