package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docuconvo/auth/pkg/auth"
	"github.com/docuconvo/auth/pkg/auth/store/memory"
	mongostore "github.com/docuconvo/auth/pkg/auth/store/mongo"
	"github.com/docuconvo/auth/pkg/auth/store/postgres"
	redisstore "github.com/docuconvo/auth/pkg/auth/store/redis"
	sqlitestore "github.com/docuconvo/auth/pkg/auth/store/sqlite"
	"github.com/docuconvo/auth/pkg/config"
	"github.com/docuconvo/auth/pkg/httpserver"
	"github.com/docuconvo/auth/pkg/logger"
	"github.com/docuconvo/auth/pkg/mongo"
	"github.com/docuconvo/auth/pkg/pg"
	"github.com/docuconvo/auth/pkg/redis"
	"github.com/docuconvo/auth/pkg/sqlite"
)

// backend is what the storage drivers hand to the rest of main.
type backend struct {
	adapter auth.Adapter
	states  auth.StateStore
	checks  []httpserver.Check
	closers []func(context.Context) error
}

func (b *backend) close(ctx context.Context, log *slog.Logger) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			log.ErrorContext(ctx, "close storage", logger.Error(err))
		}
	}
}

func openBackend(ctx context.Context, storage, stateStore string, log *slog.Logger) (*backend, error) {
	b := &backend{}
	if err := b.openAdapter(ctx, storage, log); err != nil {
		b.close(ctx, log)
		return nil, err
	}
	if err := b.openStateStore(ctx, stateStore); err != nil {
		b.close(ctx, log)
		return nil, err
	}
	return b, nil
}

func (b *backend) openAdapter(ctx context.Context, driver string, log *slog.Logger) error {
	switch driver {
	case StoragePostgres:
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func(context.Context) error { pool.Close(); return nil })
		store := postgres.New(pool)
		if err := store.Migrate(ctx, log); err != nil {
			return err
		}
		b.adapter = store
		b.checks = append(b.checks, httpserver.Check{Name: "postgres", Probe: pg.Healthcheck(pool)})

	case StorageSQLite:
		var cfg sqlite.Config
		if err := config.Load(&cfg); err != nil {
			return err
		}
		db, err := sqlite.Open(ctx, cfg)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func(context.Context) error { return db.Close() })
		store := sqlitestore.New(db)
		if err := store.Migrate(ctx, log); err != nil {
			return err
		}
		b.adapter = store
		b.checks = append(b.checks, httpserver.Check{Name: "sqlite", Probe: sqlite.Healthcheck(db)})

	case StorageMongo:
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return err
		}
		client, err := mongo.Connect(ctx, cfg)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, client.Disconnect)
		store := mongostore.New(client.Database(cfg.Database))
		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		b.adapter = store
		b.checks = append(b.checks, httpserver.Check{Name: "mongo", Probe: mongo.Healthcheck(client)})

	case StorageMemory:
		log.WarnContext(ctx, "using in-memory storage, data is lost on restart")
		b.adapter = memory.New()

	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorage, driver)
	}
	return nil
}

func (b *backend) openStateStore(ctx context.Context, driver string) error {
	switch driver {
	case StateRedis:
		var cfg redis.Config
		if err := config.Load(&cfg); err != nil {
			return err
		}
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func(context.Context) error { return client.Close() })
		b.states = redisstore.NewStateStore(client)
		b.checks = append(b.checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)})

	case StateMemory:
		// The memory adapter already implements StateStore.
		if s, ok := b.adapter.(auth.StateStore); ok {
			b.states = s
		} else {
			b.states = memory.New()
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownStateStore, driver)
	}
	return nil
}
