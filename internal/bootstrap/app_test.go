package bootstrap

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alqudimi/wifi-network-manager/config"
	domainauth "github.com/Alqudimi/wifi-network-manager/internal/domain/auth"
	authmocks "github.com/Alqudimi/wifi-network-manager/internal/mocks/auth"
	"github.com/Alqudimi/wifi-network-manager/internal/testutil"
)

func testConfig(t *testing.T, baseURL string) config.AppConfig {
	t.Helper()
	return config.AppConfig{
		API: config.APIConfig{BaseURL: baseURL, Timeout: 5 * time.Second},
		Store: config.CredentialStoreConfig{
			Backend: config.StoreBackendFile,
			Path:    filepath.Join(t.TempDir(), "credentials.json"),
		},
	}
}

func TestNewApp_FreshStartIsAnonymous(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	app, err := NewApp(context.Background(), AppOptions{Config: testConfig(t, backend.URL())})
	require.NoError(t, err)
	t.Cleanup(app.Close)

	assert.False(t, app.Sessions.Snapshot().Authenticated)
	assert.Equal(t, domainauth.StateAnonymous, app.Auth.State())
	assert.Nil(t, app.Metrics)
	assert.Zero(t, backend.Calls("GET /auth/profile"))
}

func TestNewApp_RestoresStoredSession(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	access, refresh := backend.IssueTokens("admin")
	creds := authmocks.NewMemoryCredentialStore(domainauth.Credential{AccessToken: access, RefreshToken: refresh})

	app, err := NewApp(context.Background(), AppOptions{Config: testConfig(t, backend.URL()), Credentials: creds})
	require.NoError(t, err)
	t.Cleanup(app.Close)

	snap := app.Sessions.Snapshot()
	require.True(t, snap.Authenticated)
	assert.Equal(t, "admin", snap.Identity.Username)
	assert.Equal(t, domainauth.StateAuthenticated, app.Auth.State())
}

func TestNewApp_RejectedSessionIsCleared(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	creds := authmocks.NewMemoryCredentialStore(domainauth.Credential{AccessToken: "revoked", RefreshToken: "revoked"})

	app, err := NewApp(context.Background(), AppOptions{Config: testConfig(t, backend.URL()), Credentials: creds})
	require.NoError(t, err, "a rejected session is not a startup failure")
	t.Cleanup(app.Close)

	assert.False(t, app.Sessions.Snapshot().Authenticated)
	assert.True(t, creds.Stored().IsZero())
	assert.Equal(t, 1, backend.Calls("POST /auth/refresh"))
}

func TestNewApp_UnreachableBackendKeepsCredential(t *testing.T) {
	cred := domainauth.Credential{AccessToken: "a", RefreshToken: "r"}
	creds := authmocks.NewMemoryCredentialStore(cred)
	cfg := testConfig(t, "http://127.0.0.1:1/api")
	cfg.API.Timeout = time.Second

	app, err := NewApp(context.Background(), AppOptions{Config: cfg, Credentials: creds, HTTPClient: &http.Client{Timeout: time.Second}})
	require.NoError(t, err)
	t.Cleanup(app.Close)

	assert.False(t, app.Sessions.Snapshot().Authenticated)
	assert.Equal(t, cred, creds.Stored())
}

func TestNewApp_LoginPersistsToFile(t *testing.T) {
	backend := testutil.NewFakeBackend(t)
	cfg := testConfig(t, backend.URL())
	ctx := context.Background()

	first, err := NewApp(ctx, AppOptions{Config: cfg})
	require.NoError(t, err)
	_, err = first.Auth.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	first.Close()

	second, err := NewApp(ctx, AppOptions{Config: cfg})
	require.NoError(t, err)
	t.Cleanup(second.Close)
	assert.True(t, second.Sessions.Snapshot().Authenticated, "a restart restores the session from disk")

	require.NoError(t, second.Auth.Logout(ctx))
	third, err := NewApp(ctx, AppOptions{Config: cfg})
	require.NoError(t, err)
	t.Cleanup(third.Close)
	assert.False(t, third.Sessions.Snapshot().Authenticated)
}

func TestNewApp_UnsupportedBackend(t *testing.T) {
	cfg := testConfig(t, "http://localhost:5000/api")
	cfg.Store.Backend = "etcd"

	_, err := NewApp(context.Background(), AppOptions{Config: cfg})
	require.Error(t, err)
}

func TestApp_CloseIsIdempotent(t *testing.T) {
	calls := 0
	app := &App{closers: []func(){func() { calls++ }}}
	app.Close()
	app.Close()
	assert.Equal(t, 1, calls)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, false).Debug("hidden")
	NewLogger(&buf, false).Info("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	NewLogger(&buf, true).Debug("dev detail")
	assert.Contains(t, buf.String(), "msg=\"dev detail\"")
}
