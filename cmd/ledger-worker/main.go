package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finance/internal/amqp"
	"finance/internal/cache"
	"finance/internal/cli"
	"finance/internal/log"
	"finance/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	engine := cli.NewEngine(cfg, repo, logger)
	w := worker.NewMaintenanceWorker(engine.Ledger, logger)

	caches := cache.NewManager()
	caches.Register(engine.Cards.Cleaner())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	var client *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		client, err = amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPDialAttempts)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
	} else {
		logger.Info("AMQP disabled - running periodic sweeps only")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.RunSweeps(gctx, cfg.OverdueSweepInterval)
	})
	g.Go(func() error {
		return caches.Run(gctx, cfg.CacheCleanInterval)
	})
	if client != nil {
		g.Go(func() error {
			return client.Consume(gctx, w.HandleMessage)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("ledger-worker stopped")
}
