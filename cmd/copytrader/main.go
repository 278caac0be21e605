package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"copytrader/config"
	"copytrader/internal/copier"
	"copytrader/internal/ingest"
	"copytrader/logger"
	"copytrader/pkg/broker"
	"copytrader/pkg/storage/postgres"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg := config.Load()

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env := cfg.Log.Environment

	// Replication ledger and follower directory
	pg, err := postgres.InitializeAndMigrate(cfg.Postgres, env, env != "prod")
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer pg.Close()

	// Broker REST client with per-account credential resolution
	tokens := config.NewTokenResolver(env, cfg.Broker)
	retry := broker.PolicyFromConfig(cfg.Broker.Retry)
	restClient := broker.NewRESTClient(cfg.Broker.REST.BaseURL, cfg.Broker.REST.Timeout, tokens, retry)

	directory := postgres.NewDirectory(pg)

	if err := restClient.ValidateToken(ctx, cfg.Copy.MasterAccountID); err != nil {
		log.Warn("master token validation failed",
			zap.String("account_id", cfg.Copy.MasterAccountID),
			zap.Error(err))
	}
	if followers, err := directory.ListEligible(ctx, cfg.Copy.MasterAccountID); err != nil {
		log.Warn("could not list followers for token validation", zap.Error(err))
	} else {
		// A bad token is reported but not fatal; the affected follower
		// fails per attempt while the rest keep copying.
		for _, f := range followers {
			if err := restClient.ValidateToken(ctx, f.CredentialRef); err != nil {
				log.Warn("follower token validation failed",
					zap.String("follower_id", f.ID),
					zap.Error(err))
			}
		}
	}

	engine := copier.NewEngine(postgres.NewLedger(pg), directory, restClient, log)
	svc := ingest.NewService(cfg.Copy, restClient, engine, log)

	// Low-latency path: order-update stream feeding the same dispatch
	if cfg.Broker.WS.Enabled {
		wsClient := broker.NewWSClient(cfg.Broker.WS.URL, cfg.Copy.MasterAccountID, log)
		wsClient.SetMessageHandler(svc.MakeStreamHandler())
		if err := wsClient.Connect(); err != nil {
			log.Warn("order stream unavailable, polling only", zap.Error(err))
		} else {
			go wsClient.Listen()
		}
	}

	// Periodically print engine counters for visibility
	go func() {
		for {
			m := engine.Metrics()
			log.Info("copy metrics",
				zap.Int64("copied", m.TradesCopied),
				zap.Int64("failed", m.TradesFailed),
				zap.Int64("skipped", m.TradesSkipped),
				zap.Time("last_copy", m.LastCopyTime))

			time.Sleep(30 * time.Second)
		}
	}()

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("ingestion failed", zap.Error(err))
	}
}
