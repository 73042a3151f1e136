package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/loopline/thriftscout/internal/discovery"
	"github.com/loopline/thriftscout/internal/store"
	"github.com/loopline/thriftscout/pkg/places"
)

// serviceEnv holds the store and the discovery service shared by the
// search/map/export/serve commands.
type serviceEnv struct {
	Store   store.Store
	Service *discovery.Service
}

// Close releases resources held by the environment.
func (se *serviceEnv) Close() {
	if se.Store != nil {
		_ = se.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DSN
		if dsn == "" {
			dsn = "thriftscout.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DSN)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initService sets up the store and the Places-backed discovery service.
// Callers should defer env.Close().
func initService(ctx context.Context) (*serviceEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	if cfg.Places.APIKey == "" {
		zap.L().Warn("THRIFTSCOUT_PLACES_API_KEY not set, searches serve cached data only")
	}

	opts := []places.Option{}
	if cfg.Places.BaseURL != "" {
		opts = append(opts, places.WithBaseURL(cfg.Places.BaseURL))
	}
	client := places.NewClient(cfg.Places.APIKey, opts...)

	svc := discovery.NewService(st, discovery.NewPlacesProvider(client), cfg.Discovery)

	return &serviceEnv{Store: st, Service: svc}, nil
}
