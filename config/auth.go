package config

import "time"

const maxRenewSkew = 5 * time.Minute

// AuthConfig groups session lifecycle settings.
type AuthConfig struct {
	// RenewSkew is how long before the access token's exp claim a renewal is started
	// proactively instead of waiting for a 401.
	RenewSkew time.Duration `env:"AUTH_RENEW_SKEW" envDefault:"30s"`
}

// Sanitize clamps RenewSkew to [0, 5m].
func (c *AuthConfig) Sanitize() {
	if c.RenewSkew < 0 {
		c.RenewSkew = 0
	}
	if c.RenewSkew > maxRenewSkew {
		c.RenewSkew = maxRenewSkew
	}
}
