package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caretrack/licensure/internal/bootstrap"
)

// infra holds the shared connections a command needs. Redis is optional:
// commands that only read Postgres leave it nil.
type infra struct {
	DB    *sql.DB
	Redis redis.UniversalClient
}

type infraOptions struct {
	WithRedis bool
}

// withInfra runs f against connected infrastructure, handling signal
// cancellation, the command timeout, and teardown.
func withInfra(
	cmdCtx *commandContext,
	timeout time.Duration,
	opts infraOptions,
	f func(context.Context, *infra) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	inf, err := connectInfra(cmdCtx, opts)
	if err != nil {
		return err
	}
	defer closeInfra(cmdCtx, inf)

	return f(ctx, inf)
}

func connectInfra(cmdCtx *commandContext, opts infraOptions) (*infra, error) {
	dbCfg := bootstrap.DatabaseConfig{
		DBConfig:    cmdCtx.Config.Postgres,
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	}

	db, err := bootstrap.ConnectDB(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	inf := &infra{DB: db}
	if opts.WithRedis {
		// A lookup cache is an optimization, not a requirement; a failed
		// Redis connection downgrades the command instead of aborting it.
		client, redisErr := bootstrap.ConnectRedis(dbCfg)
		if redisErr != nil {
			cmdCtx.Logger.Warn("redis unavailable, continuing without lookup cache", "error", redisErr)
		} else {
			inf.Redis = client
		}
	}
	return inf, nil
}

func closeInfra(cmdCtx *commandContext, inf *infra) {
	if inf == nil {
		return
	}
	if inf.Redis != nil {
		if err := inf.Redis.Close(); err != nil {
			cmdCtx.Logger.Warn("redis close failed", "error", err)
		}
	}
	if inf.DB != nil {
		if err := inf.DB.Close(); err != nil {
			cmdCtx.Logger.Warn("db close failed", "error", err)
		}
	}
}
