package filestore

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/Alqudimi/wifi-network-manager/internal/domain/auth"
)

func newStore(t *testing.T) *CredentialStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "state", "credentials.json"))
	require.NoError(t, err)
	return store
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

func TestCredentialStore_LoadMissingFile(t *testing.T) {
	store := newStore(t)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestCredentialStore_SaveAndLoad(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	cred := domainauth.Credential{AccessToken: "access-1", RefreshToken: "refresh-1"}
	require.NoError(t, store.Save(ctx, cred))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred, got)

	// A fresh instance reads what the first one wrote.
	reopened, err := New(store.Path())
	require.NoError(t, err)
	got, err = reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred, got)
}

func TestCredentialStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}
	store := newStore(t)
	require.NoError(t, store.Save(context.Background(), domainauth.Credential{AccessToken: "a", RefreshToken: "r"}))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(fileMode), info.Mode().Perm())
}

func TestCredentialStore_SaveLeavesNoTempFiles(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for _, token := range []string{"a1", "a2", "a3"} {
		require.NoError(t, store.Save(ctx, domainauth.Credential{AccessToken: token, RefreshToken: "r"}))
	}

	entries, err := os.ReadDir(filepath.Dir(store.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "credentials.json", entries[0].Name())
}

func TestCredentialStore_InvalidSaveKeepsPrevious(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	prev := domainauth.Credential{AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, store.Save(ctx, prev))

	require.Error(t, store.Save(ctx, domainauth.Credential{AccessToken: "only-access"}))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, prev, got)
}

func TestCredentialStore_SaveHonorsCanceledContext(t *testing.T) {
	store := newStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, store.Save(ctx, domainauth.Credential{AccessToken: "a", RefreshToken: "r"}), context.Canceled)
	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestCredentialStore_Clear(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, domainauth.Credential{AccessToken: "a", RefreshToken: "r"}))

	require.NoError(t, store.Clear(ctx))
	_, err := os.Stat(store.Path())
	assert.True(t, os.IsNotExist(err))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	require.NoError(t, store.Clear(ctx), "clearing twice is fine")
}

func TestCredentialStore_CorruptFile(t *testing.T) {
	store := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o700))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not json"), 0o600))

	_, err := store.Load(context.Background())
	require.Error(t, err)

	// The next save replaces the damaged record.
	cred := domainauth.Credential{AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, store.Save(context.Background(), cred))
	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cred, got)
}
