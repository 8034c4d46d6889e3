package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Credential is the access/refresh token pair issued by the backend.
// It is persisted as a single record so both tokens are always written together.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// IsZero reports whether neither token is set.
func (c Credential) IsZero() bool {
	return c.AccessToken == "" && c.RefreshToken == ""
}

// Validate enforces that an access token never exists without its refresh token.
func (c Credential) Validate() error {
	if c.RefreshToken == "" {
		return errors.New("refresh token is required")
	}
	return nil
}

// WithAccessToken returns a copy carrying a renewed access token and the same refresh token.
func (c Credential) WithAccessToken(accessToken string) Credential {
	return Credential{
		AccessToken:  accessToken,
		RefreshToken: c.RefreshToken,
	}
}

// OAuth2Token exposes the pair as a bearer oauth2.Token so transports can use SetAuthHeader.
func (c Credential) OAuth2Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: c.RefreshToken,
	}
	if exp, ok := c.AccessExpiry(); ok {
		tok.Expiry = exp
	}
	return tok
}

// AccessExpiry reads the exp claim of the access token without verifying its signature.
// The signature is the backend's concern; the client only uses exp to renew early.
// ok is false when the token is not a JWT or carries no exp claim.
func (c Credential) AccessExpiry() (time.Time, bool) {
	if c.AccessToken == "" {
		return time.Time{}, false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(c.AccessToken, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// AccessExpired reports whether the access token's exp is at or before now+skew.
// Tokens without a readable exp are never considered expired.
func (c Credential) AccessExpired(now time.Time, skew time.Duration) bool {
	exp, ok := c.AccessExpiry()
	if !ok {
		return false
	}
	return !now.Add(skew).Before(exp)
}
