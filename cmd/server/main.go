package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/carloswilll/dashboard-cartolaFC2025/internal/api"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/api/handlers"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/metrics"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/optimizer"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/providers"
	"github.com/carloswilll/dashboard-cartolaFC2025/internal/services"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/config"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/database"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/logger"
	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/solver"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	checks := map[string]handlers.Pinger{
		"database": handlers.PingFunc(func(context.Context) error { return db.HealthCheck() }),
	}

	var cache services.Cache
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient := redis.NewClient(opt)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		cache = services.NewCacheService(redisClient)
		checks["redis"] = cache
	} else {
		log.Info("REDIS_URL not set, using in-memory market cache")
		cache = services.NewMemoryCache()
	}

	recorder := metrics.NewRecorder()

	client := providers.NewCartolaClient(providers.ClientConfig{
		MarketURL:        cfg.CartolaMarketURL,
		StatusURL:        cfg.CartolaStatusURL,
		Timeout:          cfg.RequestTimeout,
		MaxRetries:       cfg.MaxRetries,
		RetryBackoff:     cfg.RetryBackoff,
		RequestsPerSec:   cfg.ProviderRateLimit,
		BreakerThreshold: cfg.CircuitBreakerThreshold,
		OnBreakerChange: func(to gobreaker.State) {
			recorder.SetUpstreamState(int(to))
		},
	}, log)

	capability := solver.Unavailable("disabled by SOLVER_ENABLED")
	if cfg.SolverEnabled {
		bnb := solver.NewBranchAndBound(
			solver.WithNodeLimit(cfg.SolverNodeLimit),
			solver.WithTimeLimit(cfg.SolverTimeLimit),
			solver.WithLogger(log.WithField("component", "solver")),
		)
		capability = solver.Probe(context.Background(), bnb)
	}
	log.WithFields(logrus.Fields{
		"status": capability.Status.String(),
		"reason": capability.Reason,
	}).Info("Solver capability probed")

	market := services.NewMarketService(client, cache, cfg.CacheTTL, log)
	store := services.NewLineupStore(db)
	if err := store.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	facade := optimizer.NewFacade(capability,
		optimizer.WithRecorder(recorder),
		optimizer.WithExactOptions(optimizer.WithTimeLimit(cfg.SolverTimeLimit)),
	)
	lineups := services.NewLineupService(market, facade, store, services.LineupDefaults{
		Budget:     cfg.DefaultBudget,
		MaxPerClub: cfg.MaxPerClubDefault,
		Formation:  cfg.DefaultFormation,
	}, log)

	if cfg.EnableBackgroundJobs {
		scheduler := services.NewScheduler(market, cache, cfg.MarketRefreshSchedule, log)
		if err := scheduler.Start(); err != nil {
			log.Errorf("Failed to start scheduler: %v", err)
		} else {
			defer scheduler.Stop()
		}
	}

	router := api.NewRouter(api.Dependencies{
		Market:      market,
		Lineups:     lineups,
		Store:       store,
		Checks:      checks,
		Capability:  capability,
		Metrics:     recorder.Handler(),
		CorsOrigins: cfg.CorsOrigins,
		Logger:      log,
	})

	for _, route := range router.Routes() {
		log.Debugf("%s %s", route.Method, route.Path)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SolverTimeLimit + 20*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
