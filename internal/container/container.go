// Package container builds the long-lived components shared by the HTTP
// server and the command line tools.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/user-registry/config"
	"github.com/oksasatya/user-registry/internal/application"
	"github.com/oksasatya/user-registry/internal/domain/repository"
	"github.com/oksasatya/user-registry/internal/infrastructure/memory"
	"github.com/oksasatya/user-registry/internal/infrastructure/messaging"
	pginfra "github.com/oksasatya/user-registry/internal/infrastructure/postgres"
	"github.com/oksasatya/user-registry/pkg/helpers"
)

// EventsMetricName is the expvar key holding per-type publish counters.
const EventsMetricName = "user_events"

type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	Pool   *pgxpool.Pool            // nil for in-memory containers
	Redis  *redis.Client            // nil when REDIS_ADDR is empty
	Rabbit *helpers.RabbitPublisher // nil when events are disabled or the broker is down

	Repo   repository.UserRepository
	Events *messaging.CountingNotifier
	Users  *application.Service
}

// Options selects optional pieces of the wiring.
type Options struct {
	SkipMigrations bool
	SkipRedis      bool
}

// New connects to Postgres, applies migrations and wires the service. A
// broker that cannot be reached downgrades event delivery to logging.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger, opts Options) (*Container, error) {
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLife,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if !opts.SkipMigrations {
		if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	c := &Container{Config: cfg, Logger: logger, Pool: pool}
	if !opts.SkipRedis && cfg.RedisAddr != "" {
		c.Redis = helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}

	var next application.EventNotifier = messaging.NewLogNotifier(logger)
	if cfg.EventsEnabled {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQUserEventQueue, cfg.AppName)
		if err != nil {
			logger.WithError(err).Warn("rabbitmq unavailable, user events will only be logged")
		} else {
			c.Rabbit = pub
			next = messaging.NewRabbitNotifier(pub)
		}
	}

	c.wire(pginfra.NewUserRepository(pool, cfg.DBOpTimeout), next)
	return c, nil
}

// NewInMemory wires the service over the map-backed repository with
// logged events. Nothing needs closing.
func NewInMemory(cfg *config.Config, logger *logrus.Logger) *Container {
	c := &Container{Config: cfg, Logger: logger}
	c.wire(memory.NewUserRepository(), messaging.NewLogNotifier(logger))
	return c
}

func (c *Container) wire(repo repository.UserRepository, next application.EventNotifier) {
	c.Repo = repo
	c.Events = messaging.NewCountingNotifier(EventsMetricName, next)
	c.Users = application.NewService(repo, c.Events, c.Logger)
}

// Ping reports the health of every configured backend keyed by name.
func (c *Container) Ping(ctx context.Context) map[string]error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out := map[string]error{}
	if c.Pool != nil {
		out["postgres"] = c.Pool.Ping(ctx)
	}
	if c.Redis != nil {
		out["redis"] = c.Redis.Ping(ctx).Err()
	}
	return out
}

func (c *Container) Close() {
	if c.Rabbit != nil {
		c.Rabbit.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
