package main

import (
	"context"
	"flag"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/config"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/log"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/repo"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/sweep"
	"go.uber.org/zap"
)

// One-shot status reconciliation, meant for a cron job.
func main() {
	cfg := config.Load()

	var grace time.Duration
	flag.DurationVar(&grace, "grace", cfg.GracePeriod, "how long a poll stays active after its deadline")
	flag.Parse()

	logger, err := log.Init(cfg.LogProd)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())

	n, err := sweep.New(store, grace, 0).RunOnce(ctx)
	if err != nil {
		logger.Fatal("status sweep", zap.Error(err))
	}
	logger.Info("status sweep done", zap.Int64("changed", n))
}
