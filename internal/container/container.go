package container

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"duvidapp/adapters/redisstore"
	"duvidapp/adapters/sqlstore"
	"duvidapp/app"
	"duvidapp/internal"
	"duvidapp/internal/api"
	"duvidapp/internal/config"
	"duvidapp/internal/remote"
	"duvidapp/internal/session"
	"duvidapp/internal/validation"
	"duvidapp/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	Registry *prometheus.Registry
	Client   *remote.Client
	Tokens   ports.TokenStore
	Votes    ports.VoteStore

	// Per-browser state
	Workspaces *app.WorkspaceManager
	SSEHub     *api.SSEHub

	closers []func() error
}

// New wires the backend client, the token store and the workspace manager
// from cfg
func New(ctx context.Context, cfg *config.Config, logger *internal.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	c.initMetrics()
	c.Client = remote.NewClient(remote.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.RequestTimeout,
		Metrics: remote.NewMetrics(c.Registry),
		Logger:  logger,
	})

	store, closer, err := OpenTokenStore(ctx, cfg.TokenStore)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s token store: %w", cfg.TokenStore.Driver, err)
	}
	c.Tokens = store
	c.Votes = store
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	c.initWorkspaces()

	logger.Info("Container initialized: api=%s tokens=%s", cfg.API.BaseURL, cfg.TokenStore.Driver)
	return c, nil
}

func (c *Container) initMetrics() {
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// initWorkspaces creates the SSE hub and the workspace manager, and forwards
// every workspace's notifications to the hub
func (c *Container) initWorkspaces() {
	c.SSEHub = api.NewSSEHub(c.Logger)
	c.Workspaces = app.NewWorkspaceManager(c.Client, app.WorkspaceConfig{
		Tokens:            c.Tokens,
		Votes:             c.Votes,
		ToastTTL:          c.Config.UI.ToastTTL,
		AnswerConcurrency: c.Config.API.AnswerFetchConcurrency,
		Validator:         validation.Default(),
		Logger:            c.Logger,
	}, c.Config.Session.IdleTimeout)

	hub := c.SSEHub
	c.Workspaces.OnCreate(func(w *app.Workspace) {
		w.Notifications.Subscribe(hub.Forward(w.ID))
	})
}

// MetricsHandler exposes the container's registry, or nil when metrics are
// disabled
func (c *Container) MetricsHandler() http.Handler {
	if !c.Config.Server.MetricsEnabled {
		return nil
	}
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}

// expiredPurger is implemented by token stores that keep expired rows around
type expiredPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RunSweeper evicts idle workspaces, and purges expired persisted tokens,
// until ctx is done
func (c *Container) RunSweeper(ctx context.Context) {
	interval := c.Config.Session.IdleTimeout / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	if purger, ok := c.Tokens.(expiredPurger); ok {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					n, err := purger.PurgeExpired(ctx)
					if err != nil {
						c.Logger.Warn("[Tokens] Purge failed: %v", err)
					} else if n > 0 {
						c.Logger.Debug("[Tokens] Purged %d expired sessions", n)
					}
				}
			}
		}()
	}

	c.Workspaces.Run(ctx, interval)
}

// OpenTokenStore builds the store selected by cfg. It keeps both session tokens
// and question votes. The returned closer is nil for stores that hold no
// resources.
func OpenTokenStore(ctx context.Context, cfg config.TokenStoreConfig) (ports.ClientStore, func() error, error) {
	switch cfg.Driver {
	case config.TokenStoreSQLite:
		repo, err := sqlstore.Open(ctx, sqlstore.DriverSQLite, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case config.TokenStorePostgres:
		repo, err := sqlstore.Open(ctx, sqlstore.DriverPostgres, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	case config.TokenStoreRedis:
		store, err := redisstore.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return session.NewMemoryTokenStore(), nil, nil
	}
}

// Shutdown gracefully shuts down all components
func (c *Container) Shutdown(ctx context.Context) error {
	if c.Workspaces != nil {
		c.Workspaces.Close()
	}
	if c.SSEHub != nil {
		c.SSEHub.Close()
	}

	var firstErr error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
