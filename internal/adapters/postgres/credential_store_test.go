package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/Alqudimi/wifi-network-manager/internal/domain/auth"
	apperrors "github.com/Alqudimi/wifi-network-manager/internal/errors"
	"github.com/Alqudimi/wifi-network-manager/internal/testutil"
)

type stubRow struct {
	err    error
	values []string
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i := range dest {
		*(dest[i].(*string)) = r.values[i]
	}
	return nil
}

// stubDB answers from execErrs in order and records the statements it saw.
type stubDB struct {
	execErrs []error
	row      stubRow
	execs    []string
}

func (d *stubDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	d.execs = append(d.execs, sql)
	if len(d.execErrs) == 0 {
		return pgconn.CommandTag{}, nil
	}
	err := d.execErrs[0]
	d.execErrs = d.execErrs[1:]
	return pgconn.CommandTag{}, err
}

func (d *stubDB) QueryRow(context.Context, string, ...any) pgx.Row { return d.row }

var undefinedTable = &pgconn.PgError{Code: pgerrcode.UndefinedTable, Message: `relation "client_credentials" does not exist`}

func TestNewCredentialStore_RequiresDB(t *testing.T) {
	_, err := NewCredentialStore(CredentialStoreOptions{})
	require.Error(t, err)
}

func TestCredentialStore_LoadMissingTableIsEmpty(t *testing.T) {
	store, err := NewCredentialStore(CredentialStoreOptions{DB: &stubDB{row: stubRow{err: undefinedTable}}})
	require.NoError(t, err)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestCredentialStore_LoadNoRowsIsEmpty(t *testing.T) {
	store, err := NewCredentialStore(CredentialStoreOptions{DB: &stubDB{row: stubRow{err: pgx.ErrNoRows}}})
	require.NoError(t, err)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestCredentialStore_LoadMapsDatabaseErrors(t *testing.T) {
	db := &stubDB{row: stubRow{err: &pgconn.PgError{Code: pgerrcode.AdminShutdown}}}
	store, err := NewCredentialStore(CredentialStoreOptions{DB: db})
	require.NoError(t, err)

	_, err = store.Load(context.Background())
	assert.True(t, apperrors.IsNetworkUnavailable(err), "got %v", err)
}

func TestCredentialStore_SaveCreatesTableAndRetriesOnce(t *testing.T) {
	db := &stubDB{execErrs: []error{undefinedTable, nil, nil}}
	store, err := NewCredentialStore(CredentialStoreOptions{DB: db})
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), domainauth.Credential{AccessToken: "a", RefreshToken: "r"}))
	require.Len(t, db.execs, 3)
	assert.Contains(t, db.execs[0], "INSERT INTO client_credentials")
	assert.Contains(t, db.execs[1], "CREATE TABLE IF NOT EXISTS client_credentials")
	assert.Contains(t, db.execs[2], "INSERT INTO client_credentials")
}

func TestCredentialStore_SaveDoesNotLoopOnMissingTable(t *testing.T) {
	db := &stubDB{execErrs: []error{undefinedTable, nil, undefinedTable}}
	store, err := NewCredentialStore(CredentialStoreOptions{DB: db})
	require.NoError(t, err)

	err = store.Save(context.Background(), domainauth.Credential{AccessToken: "a", RefreshToken: "r"})
	require.Error(t, err)
	assert.Len(t, db.execs, 3)
}

func TestCredentialStore_SaveRejectsMissingRefreshToken(t *testing.T) {
	db := &stubDB{}
	store, err := NewCredentialStore(CredentialStoreOptions{DB: db})
	require.NoError(t, err)

	require.Error(t, store.Save(context.Background(), domainauth.Credential{AccessToken: "a"}))
	assert.Empty(t, db.execs)
}

func TestCredentialStore_ClearMissingTable(t *testing.T) {
	store, err := NewCredentialStore(CredentialStoreOptions{DB: &stubDB{execErrs: []error{undefinedTable}}})
	require.NoError(t, err)
	require.NoError(t, store.Clear(context.Background()))

	store, err = NewCredentialStore(CredentialStoreOptions{DB: &stubDB{execErrs: []error{context.DeadlineExceeded}}})
	require.NoError(t, err)
	assert.True(t, apperrors.IsTimeout(store.Clear(context.Background())))
}

func TestCredentialStore_Integration(t *testing.T) {
	pool := testutil.SetupTestPool(t)
	ctx := context.Background()
	fixed := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	store, err := NewCredentialStore(CredentialStoreOptions{DB: pool, Namespace: "lobby", Now: testutil.FixedTimeFunc(fixed)})
	require.NoError(t, err)

	got, err := store.Load(ctx)
	require.NoError(t, err, "fresh schema has no table yet")
	assert.True(t, got.IsZero())

	cred := domainauth.Credential{AccessToken: "access-1", RefreshToken: "refresh-1"}
	require.NoError(t, store.Save(ctx, cred))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cred, got)

	next := cred.WithAccessToken("access-2")
	require.NoError(t, store.Save(ctx, next))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	var updated time.Time
	require.NoError(t, pool.QueryRow(ctx, `SELECT updated_at FROM client_credentials WHERE namespace = 'lobby'`).Scan(&updated))
	assert.True(t, fixed.Equal(updated))

	other, err := NewCredentialStore(CredentialStoreOptions{DB: pool, Namespace: "cafe"})
	require.NoError(t, err)
	got, err = other.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.IsZero(), "namespaces are isolated")

	require.NoError(t, store.Clear(ctx))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestCredentialStore_IntegrationEnsureSchemaIsIdempotent(t *testing.T) {
	pool := testutil.SetupTestPool(t)
	store, err := NewCredentialStore(CredentialStoreOptions{DB: pool})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx))

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM client_credentials`).Scan(&n))
	assert.Zero(t, n)
}
