package redis

// Package redis provides Redis-based adapters for the voucher client.

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/Alqudimi/wifi-network-manager/internal/domain/auth"
	"github.com/Alqudimi/wifi-network-manager/internal/ports"
)

const defaultNamespace = "wifi_voucher"

var _ ports.CredentialStore = (*CredentialStore)(nil)

// CredentialStore keeps the token pair under {<namespace>}:access_token and
// {<namespace>}:refresh_token. Both keys are written and deleted in one MULTI/EXEC
// so readers never see half a pair. The hash tag keeps them in one cluster slot.
type CredentialStore struct {
	client    redis.UniversalClient
	namespace string
}

// NewCredentialStore creates a Redis credential store using the default namespace.
func NewCredentialStore(client redis.UniversalClient) *CredentialStore {
	return NewCredentialStoreWithNamespace(client, defaultNamespace)
}

// NewCredentialStoreWithNamespace creates a Redis credential store with a custom key namespace.
func NewCredentialStoreWithNamespace(client redis.UniversalClient, namespace string) *CredentialStore {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &CredentialStore{
		client:    client,
		namespace: namespace,
	}
}

func (s *CredentialStore) accessKey() string  { return "{" + s.namespace + "}:access_token" }
func (s *CredentialStore) refreshKey() string { return "{" + s.namespace + "}:refresh_token" }

func (s *CredentialStore) Load(ctx context.Context) (domainauth.Credential, error) {
	values, err := s.client.MGet(ctx, s.accessKey(), s.refreshKey()).Result()
	if err != nil {
		return domainauth.Credential{}, fmt.Errorf("redis mget: %w", err)
	}

	access, _ := values[0].(string)
	refresh, _ := values[1].(string)
	if refresh == "" {
		// Without a refresh token the pair cannot be renewed, so a lone access key
		// counts as nothing stored.
		return domainauth.Credential{}, nil
	}
	return domainauth.Credential{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *CredentialStore) Save(ctx context.Context, cred domainauth.Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.accessKey(), cred.AccessToken, 0)
	pipe.Set(ctx, s.refreshKey(), cred.RefreshToken, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis save credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) Clear(ctx context.Context) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.accessKey(), s.refreshKey())
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis clear credentials: %w", err)
	}
	return nil
}
