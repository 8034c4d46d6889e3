package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Alqudimi/wifi-network-manager/config"
)

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// ConnectPostgres opens a pgx pool for the postgres credential backend and verifies it.
func ConnectPostgres(ctx context.Context, cfg DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DBConfig.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.DBConfig.MaxConns > 0 {
		poolCfg.MaxConns = cfg.DBConfig.MaxConns
	}
	if cfg.DBConfig.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.DBConfig.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if pingErr := pool.Ping(pingCtx); pingErr != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
		)
	}

	return pool, nil
}

// ConnectRedis picks a cluster, sentinel or single-node client from cfg and pings it.
//
//nolint:ireturn // returning redis.UniversalClient lets us pick single, sentinel, or cluster clients at runtime.
func ConnectRedis(ctx context.Context, cfg DatabaseConfig) (redis.UniversalClient, error) {
	build := newDirectClient
	switch {
	case cfg.RedisConfig.UseCluster:
		build = newClusterClient
	case cfg.RedisConfig.UseSentinel:
		build = newSentinelClient
	}
	client, desc, err := build(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if pingErr := client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.InfoContext(ctx, "redis connected", "addr", desc)
	}
	return client, nil
}

// redisEndpoint is one node address with the credentials a redis:// URL may carry.
type redisEndpoint struct {
	addr      string
	username  string
	password  string
	db        int
	tlsConfig *tls.Config
}

// parseRedisEndpoint accepts either a redis:// (rediss://) URL or a bare host:port.
// Credentials embedded in the URL override the configured password.
func parseRedisEndpoint(raw string, cfg config.RedisConfig) (redisEndpoint, error) {
	raw = strings.TrimSpace(raw)
	ep := redisEndpoint{addr: raw, password: cfg.Password, db: cfg.DB}
	if !isRedisURL(raw) {
		return ep, nil
	}

	opt, err := redis.ParseURL(raw)
	if err != nil {
		return redisEndpoint{}, fmt.Errorf("parse redis url: %w", err)
	}
	ep.addr = opt.Addr
	ep.username = opt.Username
	ep.db = opt.DB
	ep.tlsConfig = opt.TLSConfig
	if opt.Password != "" {
		ep.password = opt.Password
	}
	return ep, nil
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newDirectClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, "", errors.New("redis direct configuration requires a URI")
	}
	ep, err := parseRedisEndpoint(cfg.URI, cfg)
	if err != nil {
		return nil, "", err
	}

	client := redis.NewClient(&redis.Options{
		Addr:      ep.addr,
		Username:  ep.username,
		Password:  ep.password,
		DB:        ep.db,
		TLSConfig: ep.tlsConfig,
	})
	return client, ep.addr, nil
}

//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newSentinelClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	nodes := compactAddrs(cfg.SentinelNodes)
	if len(nodes) == 0 {
		return nil, "", errors.New("redis sentinel configuration requires at least one sentinel node")
	}

	client := redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:       cfg.SentinelMasterName,
		SentinelAddrs:    nodes,
		Password:         cfg.Password,
		SentinelPassword: cfg.SentinelPassword,
		DB:               cfg.DB,
	})
	return client, "sentinel:" + cfg.SentinelMasterName, nil
}

// newClusterClient seeds the cluster from REDIS_CLUSTER_NODES, falling back to the
// single address in REDIS_URI.
//
//nolint:ireturn // returning redis.UniversalClient keeps client selection flexible.
func newClusterClient(cfg config.RedisConfig) (redis.UniversalClient, string, error) {
	opts := &redis.ClusterOptions{Addrs: compactAddrs(cfg.ClusterNodes), Password: cfg.Password}
	if len(opts.Addrs) == 0 && strings.TrimSpace(cfg.URI) != "" {
		ep, err := parseRedisEndpoint(cfg.URI, cfg)
		if err != nil {
			return nil, "", err
		}
		opts.Addrs = []string{ep.addr}
		opts.Username = ep.username
		opts.Password = ep.password
		opts.TLSConfig = ep.tlsConfig
	}
	if len(opts.Addrs) == 0 {
		return nil, "", errors.New("redis cluster configuration requires at least one address")
	}

	return redis.NewClusterClient(opts), "cluster:" + strings.Join(opts.Addrs, ","), nil
}

func compactAddrs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, addr := range raw {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}
