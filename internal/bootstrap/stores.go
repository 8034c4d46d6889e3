package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Alqudimi/wifi-network-manager/config"
	"github.com/Alqudimi/wifi-network-manager/internal/adapters/filestore"
	"github.com/Alqudimi/wifi-network-manager/internal/adapters/postgres"
	redisstore "github.com/Alqudimi/wifi-network-manager/internal/adapters/redis"
	"github.com/Alqudimi/wifi-network-manager/internal/ports"
)

// CredentialStoreDeps groups what BuildCredentialStore needs to pick a backend.
type CredentialStoreDeps struct {
	Store    config.CredentialStoreConfig
	Postgres config.DBConfig
	Redis    config.RedisConfig
	Logger   *slog.Logger
}

// BuildCredentialStore opens the configured durable credential backend. The returned
// close function releases its connections and is never nil.
func BuildCredentialStore(ctx context.Context, deps CredentialStoreDeps) (ports.CredentialStore, func(), error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() {}

	switch deps.Store.Backend {
	case config.StoreBackendRedis:
		client, err := ConnectRedis(ctx, DatabaseConfig{RedisConfig: deps.Redis, Logger: logger})
		if err != nil {
			return nil, noop, fmt.Errorf("connect credential redis: %w", err)
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("close redis client", "error", err)
			}
		}
		return redisstore.NewCredentialStoreWithNamespace(client, deps.Store.Namespace), closeFn, nil

	case config.StoreBackendPostgres:
		pool, err := ConnectPostgres(ctx, DatabaseConfig{DBConfig: deps.Postgres, Logger: logger})
		if err != nil {
			return nil, noop, fmt.Errorf("connect credential database: %w", err)
		}
		store, err := postgres.NewCredentialStore(postgres.CredentialStoreOptions{DB: pool, Namespace: deps.Store.Namespace})
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		return store, pool.Close, nil

	case config.StoreBackendFile, "":
		store, err := filestore.New(deps.Store.Path)
		if err != nil {
			return nil, noop, fmt.Errorf("open credential file: %w", err)
		}
		logger.DebugContext(ctx, "using file credential store", "path", store.Path())
		return store, noop, nil

	default:
		return nil, noop, fmt.Errorf("unsupported credential store backend %q", deps.Store.Backend)
	}
}
