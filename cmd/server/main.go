package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/docs"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/config"
	api "github.com/JM-Mushraf/TownSquare-sub000/internal/http"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/log"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/metrics"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/queue"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/repo"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/security"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/sweep"
	"github.com/JM-Mushraf/TownSquare-sub000/internal/voting"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// @title TownSquare Voting API
// @version 0.1.0
// @description Poll and survey voting with per-user idempotent submissions and aggregated results.
// @schemes http https
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.LogProd)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.LogProd {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.DDEnabled {
		tracer.Start(tracer.WithService(cfg.Service))
		defer tracer.Stop()
	}
	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := repo.NewStore(initCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer store.Close(context.Background())

	if err := store.EnsureIndexes(initCtx); err != nil {
		logger.Fatal("mongo indexes", zap.Error(err))
	}

	var (
		cache   voting.ResultsCache
		limiter api.Limiter = api.NewRateLimiter(cfg.RateLimitPerMin, time.Minute)
		checks              = map[string]api.Pinger{"mongo": store}
	)
	if cfg.RedisAddr != "" {
		rds := repo.NewRedis(cfg.RedisAddr)
		defer rds.Close()
		if err := rds.Ping(initCtx); err != nil {
			logger.Warn("redis unavailable, using in-process limiter", zap.Error(err))
		} else {
			cache = repo.NewResultsCache(rds, cfg.ResultsCacheTTL)
			limiter = api.NewRedisLimiter(rds, cfg.RateLimitPerMin, time.Minute)
			checks["redis"] = rds
		}
	}

	pub := queue.NewNoop()
	if cfg.RabbitURL != "" {
		if p, err := queue.NewRabbit(cfg.RabbitURL, cfg.Exchange); err != nil {
			logger.Warn("rabbit unavailable, events disabled", zap.Error(err))
		} else {
			pub = p
		}
	}
	defer pub.Close()

	svc := voting.NewService(store, store, cache, cfg.GracePeriod)

	go sweep.New(store, cfg.GracePeriod, cfg.SweepInterval).Run(ctx)

	docs.SwaggerInfo.BasePath = "/"

	h := api.NewHandler(svc, pub, cfg.Exchange)
	for name, p := range checks {
		h.Checks[name] = p
	}
	var verifier security.Verifier
	if cfg.JWKSURL != "" {
		verifier = security.NewJWKS(cfg.JWKSURL, 10*time.Minute)
	}
	r := api.NewRouter(h, api.RouterOptions{
		Service:     cfg.Service,
		Tracing:     cfg.DDEnabled,
		CORSOrigins: cfg.CORSOrigins,
		JWTSecret:   cfg.JWTSecret,
		Verifier:    verifier,
		Limiter:     limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()

	logger.Info("townsquare voting listening", zap.String("port", cfg.Port))

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
}
