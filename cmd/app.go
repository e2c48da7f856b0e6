package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"reel/internal/config"
	"reel/internal/generator"
	"reel/internal/generator/remote"
	"reel/internal/generator/studio"
	"reel/internal/handler"
	"reel/internal/pkg/cache"
	"reel/internal/pkg/events"
	"reel/internal/pkg/mongodb"
	"reel/internal/pkg/storage"
	"reel/internal/pkg/storagefactory"
	repo "reel/internal/repository/generation"
	"reel/internal/service/pipeline"
)

// app 一次命令运行所需的全部依赖
type app struct {
	svc     *pipeline.Service
	storage storage.Storage
	health  *handler.HealthHandler

	closers []func(ctx context.Context) error
}

// newApp 按配置装配存储、生成器、事件与流水线服务
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{health: handler.NewHealthHandler()}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	assets, err := storagefactory.NewStorage(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a.storage = assets
	a.health.AddCheck("storage", func(ctx context.Context) error {
		_, err := assets.Exists(ctx, ".ready")
		return err
	})

	gen, err := openGenerator(ctx, cfg, assets)
	if err != nil {
		return nil, err
	}
	if c, ok := gen.(io.Closer); ok {
		a.closers = append(a.closers, func(context.Context) error { return c.Close() })
	}

	publisher, err := a.openEvents(cfg)
	if err != nil {
		return nil, err
	}

	var lease pipeline.Lease
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return rc.Close() })
		a.health.AddCheck("redis", rc.Ping)
		lease = cache.NewLease(rc, instanceID(), cfg.Pipeline.LeaseTTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis, film polling uses a lease")
	}

	a.svc = pipeline.NewService(pipeline.Config{
		Generator:      gen,
		Store:          store,
		Storage:        assets,
		Events:         publisher,
		Lease:          lease,
		RequestTimeout: cfg.Pipeline.RequestTimeout,
		PollInterval:   cfg.Pipeline.PollInterval,
		PollTimeout:    cfg.Pipeline.PollTimeout,
	})
	return a, nil
}

// openStore 选择草稿存储
func (a *app) openStore(ctx context.Context, cfg *config.Config) (repo.Store, error) {
	switch cfg.Store.Type {
	case "mongo":
		client, err := mongodb.New(ctx, &cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.health.AddCheck("mongo", client.Ping)
		if err := mongodb.EnsureIndexes(ctx, client.Database()); err != nil {
			log.Warn().Err(err).Msg("failed to ensure indexes")
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")
		return repo.NewMongoRepo(client.Database()), nil
	case "supabase":
		store, err := repo.NewSupabaseRepo(cfg.Supabase.URL, cfg.Supabase.Key, cfg.Supabase.Table)
		if err != nil {
			return nil, fmt.Errorf("init supabase: %w", err)
		}
		log.Info().Str("table", cfg.Supabase.Table).Msg("using Supabase store")
		return store, nil
	default:
		log.Warn().Msg("using in-memory store, drafts are lost on restart")
		return repo.NewMemoryRepo(), nil
	}
}

// openEvents 未配置 RabbitMQ 时不发布事件
func (a *app) openEvents(cfg *config.Config) (events.Publisher, error) {
	if cfg.RabbitMQ.URL == "" {
		return events.NopPublisher{}, nil
	}
	pub, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error { return pub.Close() })
	return pub, nil
}

// openGenerator 远端服务或进程内生成
func openGenerator(ctx context.Context, cfg *config.Config, assets storage.Storage) (generator.Generator, error) {
	switch cfg.Generator.Type {
	case "studio":
		gen, err := studio.NewFromConfig(ctx, cfg, assets)
		if err != nil {
			return nil, fmt.Errorf("init studio generator: %w", err)
		}
		log.Info().Str("image_provider", cfg.Generator.Studio.ImageProvider).Msg("using in-process studio generator")
		return gen, nil
	default:
		log.Info().Str("base_url", cfg.Generator.Remote.BaseURL).Msg("using remote generator")
		return remote.NewClient(&cfg.Generator.Remote), nil
	}
}

// close 逆序释放资源
func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Error().Err(err).Msg("failed to release resource")
		}
	}
	a.closers = nil
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "reel"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
