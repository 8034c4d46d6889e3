package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestCredential_Validate(t *testing.T) {
	assert.NoError(t, Credential{AccessToken: "a", RefreshToken: "r"}.Validate())
	assert.NoError(t, Credential{RefreshToken: "r"}.Validate(), "refresh without access is allowed mid-renewal")
	assert.Error(t, Credential{AccessToken: "a"}.Validate(), "access without refresh is never allowed")
}

func TestCredential_WithAccessToken(t *testing.T) {
	c := Credential{AccessToken: "old", RefreshToken: "r"}
	renewed := c.WithAccessToken("new")
	assert.Equal(t, Credential{AccessToken: "new", RefreshToken: "r"}, renewed)
	assert.Equal(t, "old", c.AccessToken)
}

func TestCredential_AccessExpiry(t *testing.T) {
	exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	c := Credential{AccessToken: signedToken(t, exp), RefreshToken: "r"}

	got, ok := c.AccessExpiry()
	require.True(t, ok)
	assert.True(t, got.Equal(exp), "got %v want %v", got, exp)

	_, ok = Credential{AccessToken: "opaque-token", RefreshToken: "r"}.AccessExpiry()
	assert.False(t, ok)

	_, ok = Credential{RefreshToken: "r"}.AccessExpiry()
	assert.False(t, ok)
}

func TestCredential_AccessExpired(t *testing.T) {
	now := time.Now()
	fresh := Credential{AccessToken: signedToken(t, now.Add(time.Hour)), RefreshToken: "r"}
	stale := Credential{AccessToken: signedToken(t, now.Add(-time.Minute)), RefreshToken: "r"}
	nearly := Credential{AccessToken: signedToken(t, now.Add(10*time.Second)), RefreshToken: "r"}
	opaque := Credential{AccessToken: "opaque", RefreshToken: "r"}

	assert.False(t, fresh.AccessExpired(now, 30*time.Second))
	assert.True(t, stale.AccessExpired(now, 0))
	assert.True(t, nearly.AccessExpired(now, 30*time.Second))
	assert.False(t, opaque.AccessExpired(now, time.Hour))
}

func TestCredential_OAuth2TokenSetsBearerHeader(t *testing.T) {
	c := Credential{AccessToken: "abc", RefreshToken: "r"}
	req, err := http.NewRequest(http.MethodGet, "http://example.test", nil)
	require.NoError(t, err)

	c.OAuth2Token().SetAuthHeader(req)
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
}
