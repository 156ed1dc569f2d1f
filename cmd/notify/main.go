package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/config"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/log"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/mail"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/queue"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/repo"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.LogProd)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.RabbitURL == "" {
		logger.Fatal("RABBIT_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	store, err := repo.NewStore(initCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())

	cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.Exchange, cfg.Queue, cfg.BindKey)
	if err != nil {
		logger.Fatal("rabbit consumer init", zap.Error(err))
	}
	defer cons.Close()

	n := &mail.Notifier{Users: store, Sender: mail.LogSender{Log: logger.Named("mail")}}

	logger.Info("notify worker up",
		zap.String("exchange", cfg.Exchange),
		zap.String("queue", cfg.Queue),
		zap.String("key", cfg.BindKey),
		zap.Int("workers", cfg.Concurrency),
	)
	if err := cons.Consume(ctx, cfg.Concurrency, n.HandleVoteCast); err != nil {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
}
