// Package postgres persists the credential pair in PostgreSQL, one row per namespace.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainauth "github.com/Alqudimi/wifi-network-manager/internal/domain/auth"
	apperrors "github.com/Alqudimi/wifi-network-manager/internal/errors"
	"github.com/Alqudimi/wifi-network-manager/internal/ports"
)

const defaultNamespace = "wifi_voucher"

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS client_credentials (
			namespace     TEXT PRIMARY KEY,
			access_token  TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	loadSQL = `SELECT access_token, refresh_token FROM client_credentials WHERE namespace = $1`

	upsertSQL = `
		INSERT INTO client_credentials (namespace, access_token, refresh_token, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (namespace) DO UPDATE
		SET access_token = EXCLUDED.access_token,
		    refresh_token = EXCLUDED.refresh_token,
		    updated_at = EXCLUDED.updated_at`

	deleteSQL = `DELETE FROM client_credentials WHERE namespace = $1`
)

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ DB                    = (*pgxpool.Pool)(nil)
	_ ports.CredentialStore = (*CredentialStore)(nil)
)

// CredentialStoreOptions groups dependencies for CredentialStore.
type CredentialStoreOptions struct {
	DB        DB     // Required
	Namespace string // Optional, defaults to wifi_voucher
	// Now overrides the updated_at clock. Tests only.
	Now func() time.Time
}

// CredentialStore keeps both tokens in a single row, so one statement replaces the
// pair. The table is created lazily on the first save.
type CredentialStore struct {
	db        DB
	namespace string
	now       func() time.Time
}

// NewCredentialStore constructs a new CredentialStore.
func NewCredentialStore(opts CredentialStoreOptions) (*CredentialStore, error) {
	if opts.DB == nil {
		return nil, errors.New("DB is required")
	}
	ns := opts.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &CredentialStore{db: opts.DB, namespace: ns, now: now}, nil
}

// EnsureSchema creates the credentials table when it is missing.
func (s *CredentialStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("create credentials table: %w", apperrors.MapDBError(err))
	}
	return nil
}

func (s *CredentialStore) Load(ctx context.Context) (domainauth.Credential, error) {
	var cred domainauth.Credential
	err := s.db.QueryRow(ctx, loadSQL, s.namespace).Scan(&cred.AccessToken, &cred.RefreshToken)
	switch {
	case err == nil:
		return cred, nil
	case errors.Is(err, pgx.ErrNoRows), apperrors.IsUndefinedTable(err):
		// Nothing saved yet, or nothing ever saved on this database.
		return domainauth.Credential{}, nil
	default:
		return domainauth.Credential{}, fmt.Errorf("load credentials: %w", apperrors.MapDBError(err))
	}
}

func (s *CredentialStore) Save(ctx context.Context, cred domainauth.Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	err := s.upsert(ctx, cred)
	if apperrors.IsUndefinedTable(err) {
		if schemaErr := s.EnsureSchema(ctx); schemaErr != nil {
			return schemaErr
		}
		err = s.upsert(ctx, cred)
	}
	if err != nil {
		return fmt.Errorf("save credentials: %w", apperrors.MapDBError(err))
	}
	return nil
}

func (s *CredentialStore) upsert(ctx context.Context, cred domainauth.Credential) error {
	_, err := s.db.Exec(ctx, upsertSQL, s.namespace, cred.AccessToken, cred.RefreshToken, s.now().UTC())
	return err
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	_, err := s.db.Exec(ctx, deleteSQL, s.namespace)
	if err != nil && !apperrors.IsUndefinedTable(err) {
		return fmt.Errorf("clear credentials: %w", apperrors.MapDBError(err))
	}
	return nil
}
