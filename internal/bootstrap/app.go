package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/Alqudimi/wifi-network-manager/config"
	"github.com/Alqudimi/wifi-network-manager/internal/observability/statsd"
	"github.com/Alqudimi/wifi-network-manager/internal/ports"
	"github.com/Alqudimi/wifi-network-manager/internal/service"
	"github.com/Alqudimi/wifi-network-manager/internal/session"
	"github.com/Alqudimi/wifi-network-manager/internal/transport"
)

// App holds the composed voucher client. Host programs (portal UI, kiosk shell)
// read Sessions for identity changes and call Auth and Vouchers.
type App struct {
	Config   config.AppConfig
	Logger   *slog.Logger
	Sessions *session.Store
	Auth     *service.AuthService
	Vouchers *service.VoucherService

	// Metrics is nil when metrics are disabled.
	Metrics statsd.Sink

	closers []func()
}

// AppOptions groups inputs for NewApp.
type AppOptions struct {
	Config config.AppConfig
	Logger *slog.Logger // Optional

	// Credentials replaces the configured durable backend.
	Credentials ports.CredentialStore
	// HTTPClient replaces the transport's default client.
	HTTPClient *http.Client
}

// NewApp wires the client and restores the previous session. A stored credential is
// verified against the backend; a backend that cannot be reached leaves the app
// anonymous with the credential kept for a later VerifySession.
func NewApp(ctx context.Context, opts AppOptions) (*App, error) {
	cfg := opts.Config
	cfg.Sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{Config: cfg, Logger: logger}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	app.Metrics = app.buildMetrics(cfg.Observability.Metrics)

	creds := opts.Credentials
	if creds == nil {
		store, closeStore, err := BuildCredentialStore(ctx, CredentialStoreDeps{
			Store:    cfg.Store,
			Postgres: cfg.Postgres,
			Redis:    cfg.Redis,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, closeStore)
		creds = store
	}

	client, err := transport.New(transport.Options{
		Config:     cfg.API,
		HTTPClient: opts.HTTPClient,
		Metrics:    app.Metrics,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create transport: %w", err)
	}

	app.Sessions = session.New(session.Options{Credentials: creds, Logger: logger})
	app.Auth, err = service.NewAuthService(service.AuthServiceOptions{
		Transport: client,
		Sessions:  app.Sessions,
		Config:    cfg.Auth,
		Metrics:   app.Metrics,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create auth service: %w", err)
	}
	app.Vouchers, err = service.NewVoucherService(service.VoucherServiceOptions{
		Caller:  app.Auth,
		Metrics: app.Metrics,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create voucher service: %w", err)
	}

	app.restoreSession(ctx)
	ok = true
	return app, nil
}

func (a *App) buildMetrics(cfg config.ObservabilityMetricsConfig) statsd.Sink {
	if !cfg.IsEnabled() {
		return nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  a.Logger,
	})
	if err != nil {
		a.Logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	a.closers = append(a.closers, func() {
		if err := client.Close(); err != nil {
			a.Logger.Warn("close statsd client", "error", err)
		}
	})
	return client
}

func (a *App) restoreSession(ctx context.Context) {
	found, err := a.Sessions.Load(ctx)
	if err != nil {
		a.Logger.WarnContext(ctx, "credential store unavailable at start", "error", err)
		return
	}
	if !found {
		a.Logger.DebugContext(ctx, "no stored session")
		return
	}

	authenticated, err := a.Auth.VerifySession(ctx)
	switch {
	case authenticated:
		a.Logger.InfoContext(ctx, "session restored", "role", a.Sessions.Snapshot().Identity.Role)
	case err != nil && errors.Is(err, context.Canceled):
		a.Logger.DebugContext(ctx, "session restore canceled")
	case err != nil:
		a.Logger.InfoContext(ctx, "session not restored", "error", err)
	}
}

// Close releases connections opened by NewApp. It is safe to call more than once.
func (a *App) Close() {
	closers := a.closers
	a.closers = nil
	for _, fn := range slices.Backward(closers) {
		fn()
	}
}
