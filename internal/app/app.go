// Package app wires the stores to their adapters and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/leadflow/leadctl/internal/core/ports"
	"github.com/leadflow/leadctl/internal/core/store"
	"github.com/leadflow/leadctl/internal/core/validation"
	"github.com/leadflow/leadctl/internal/infrastructure/api"
	"github.com/leadflow/leadctl/internal/infrastructure/config"
	"github.com/leadflow/leadctl/internal/infrastructure/db/mongo"
	"github.com/leadflow/leadctl/internal/infrastructure/db/redis"
	"github.com/leadflow/leadctl/internal/infrastructure/db/sqlite"
	"github.com/leadflow/leadctl/internal/infrastructure/notify"
	"github.com/leadflow/leadctl/internal/infrastructure/persist"
	"github.com/leadflow/leadctl/internal/metrics"
)

// Options overrides parts of the wiring.
type Options struct {
	// Notifications receives toast lines; nil disables them.
	Notifications io.Writer
	// KV replaces the storage backend selected by the config.
	KV ports.KeyValueStore
}

// App holds the running client.
type App struct {
	Config   *config.Config
	Sessions *store.SessionStore
	Leads    *store.LeadStore
	API      *api.Client

	kv         ports.KeyValueStore
	dispatcher *notify.Dispatcher
	cancel     context.CancelFunc
	log        zerolog.Logger
}

// New builds the App and restores any persisted session.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts Options) (*App, error) {
	kv := opts.KV
	if kv == nil {
		var err error
		if kv, err = OpenKV(ctx, cfg); err != nil {
			return nil, err
		}
	}

	subs := []notify.Subscriber{metrics.Subscriber{}}
	if opts.Notifications != nil {
		subs = append(subs, notify.NewToaster(opts.Notifications))
	}
	dispatcher := notify.NewDispatcher(log.With().Str("component", "notify").Logger(), subs...)
	dctx, cancel := context.WithCancel(context.Background())
	dispatcher.Start(dctx)

	var sessions *store.SessionStore
	client, err := api.NewClient(api.Config{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
		RateBurst: cfg.API.RateBurst,
	}, api.TokenSourceFunc(func(ctx context.Context) string {
		return sessions.Token(ctx)
	}), log.With().Str("component", "api").Logger())
	if err != nil {
		cancel()
		_ = kv.Close()
		return nil, err
	}

	v := validation.New()
	sessions = store.NewSessionStore(
		api.NewAuthGateway(client),
		persist.NewSessionRepository(kv),
		v,
		log.With().Str("component", "session").Logger(),
		store.WithPublisher(dispatcher),
	)
	leads := store.NewLeadStore(
		api.NewLeadGateway(client),
		v,
		log.With().Str("component", "leads").Logger(),
		store.WithPublisher(dispatcher),
	)
	if err := leads.SetLimit(cfg.PageLimit); err != nil {
		cancel()
		_ = kv.Close()
		return nil, fmt.Errorf("page limit: %w", err)
	}
	sessions.OnSignedOut(leads.Reset)
	sessions.Restore(ctx)

	return &App{
		Config:     cfg,
		Sessions:   sessions,
		Leads:      leads,
		API:        client,
		kv:         kv,
		dispatcher: dispatcher,
		cancel:     cancel,
		log:        log,
	}, nil
}

// Close flushes pending notifications and releases storage.
func (a *App) Close() error {
	a.dispatcher.Close()
	a.cancel()
	return a.kv.Close()
}

// PushMetrics sends metrics to the configured Pushgateway, if any.
func (a *App) PushMetrics(ctx context.Context) error {
	if a.Config.PushgatewayURL == "" {
		return nil
	}
	return metrics.Push(ctx, a.Config.PushgatewayURL, "leadctl")
}

// OpenKV connects the storage backend named by cfg.Storage.Backend.
func OpenKV(ctx context.Context, cfg *config.Config) (ports.KeyValueStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return persist.NewMemoryKV(), nil
	case config.BackendSQLite, "":
		db, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.Storage.StatePath})
		if err != nil {
			return nil, err
		}
		return sqlite.NewKV(db), nil
	case config.BackendRedis:
		client, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return nil, err
		}
		return redis.NewKV(client), nil
	case config.BackendMongo:
		client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		return mongo.NewKV(client, db), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
