package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/Alqudimi/wifi-network-manager/internal/domain/auth"
	"github.com/Alqudimi/wifi-network-manager/internal/transport"
)

func TestMemoryCredentialStore_RoundTrip(t *testing.T) {
	store := NewMemoryCredentialStore()
	ctx := context.Background()

	cred := domainauth.Credential{AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, store.Save(ctx, cred))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred, got)

	require.NoError(t, store.Clear(ctx))
	assert.True(t, store.Stored().IsZero())
	assert.Equal(t, 1, store.Saves())
	assert.Equal(t, 1, store.Clears())
}

func TestMemoryCredentialStore_SaveFailureKeepsPrevious(t *testing.T) {
	prev := domainauth.Credential{AccessToken: "old", RefreshToken: "old-r"}
	store := NewMemoryCredentialStore(prev)
	store.SaveFunc = func(context.Context, domainauth.Credential) error { return errors.New("disk full") }

	err := store.Save(context.Background(), domainauth.Credential{AccessToken: "new", RefreshToken: "new-r"})
	require.Error(t, err)
	assert.Equal(t, prev, store.Stored())
	assert.Equal(t, 1, store.Saves())
}

func TestStubTransport_RecordsRequests(t *testing.T) {
	stub := &StubTransport{
		DoFunc: func(_ context.Context, req transport.Request, _ any) error {
			if req.Path == "/auth/refresh" {
				return errors.New("refresh rejected")
			}
			return nil
		},
	}
	ctx := context.Background()

	require.NoError(t, stub.Do(ctx, transport.Request{Method: http.MethodGet, Path: "/auth/profile"}, nil))
	require.Error(t, stub.Do(ctx, transport.Request{Method: http.MethodPost, Path: "/auth/refresh"}, nil))

	assert.Len(t, stub.Requests(), 2)
	assert.Equal(t, 1, stub.Count("/auth/refresh"))
}
