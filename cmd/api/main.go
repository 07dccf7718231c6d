package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/listini-pricing/api/routes"
	"github.com/angelmondragon/listini-pricing/internal/catalog"
	"github.com/angelmondragon/listini-pricing/internal/composer"
	"github.com/angelmondragon/listini-pricing/internal/cron"
	"github.com/angelmondragon/listini-pricing/internal/pricecache"
	"github.com/angelmondragon/listini-pricing/internal/pricing"
	"github.com/angelmondragon/listini-pricing/pkg/config"
	"github.com/angelmondragon/listini-pricing/pkg/db"
	"github.com/angelmondragon/listini-pricing/pkg/logger"
	"github.com/angelmondragon/listini-pricing/pkg/metrics"
	"github.com/angelmondragon/listini-pricing/pkg/migrate"
	"github.com/angelmondragon/listini-pricing/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pricingMetrics := metrics.NewPricingMetrics(reg)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogSvc, err := catalog.NewService(catalog.ServiceParams{
		Repo:   catalogRepo,
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		return err
	}

	cacheParams := pricecache.Params{
		Lookup:        catalogSvc,
		Logger:        logg,
		Metrics:       pricingMetrics,
		LocalSize:     cfg.Pricing.LocalCacheSize,
		CalculatedTTL: cfg.Pricing.CalculatedTTL,
		TiersTTL:      cfg.Pricing.TiersTTL,
	}
	deps := routes.Dependencies{
		DB:       dbClient,
		Metrics:  metrics.NewHTTPMetrics(reg),
		Gatherer: reg,
	}
	if cfg.Redis.Enabled() {
		redisClient, rerr := redis.New(ctx, cfg.Redis, logg)
		if rerr != nil {
			return rerr
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		cacheParams.Store = redisClient
		deps.Redis = redisClient
	} else {
		logg.Warn(ctx, "redis not configured, shared price cache disabled")
	}

	cache, err := pricecache.New(cacheParams)
	if err != nil {
		return err
	}
	catalogSvc.SetInvalidator(cache)

	if cfg.Pricing.WindowSweepInterval > 0 {
		sweep, err := newWindowSweep(cfg, logg, reg, catalogRepo, cache)
		if err != nil {
			return err
		}
		go func() {
			if err := sweep.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(ctx, "tier window sweep stopped", err)
			}
		}()
	}

	resolver, err := pricing.NewResolver(pricing.ResolverParams{
		Lookup:        cache,
		Logger:        logg,
		Metrics:       pricingMetrics,
		LookupTimeout: cfg.Pricing.LookupTimeout,
	})
	if err != nil {
		return err
	}
	lists, err := composer.New(composer.Params{
		Resolver: resolver,
		Logger:   logg,
		Metrics:  pricingMetrics,
	})
	if err != nil {
		return err
	}

	deps.Resolver = resolver
	deps.Editor = catalogSvc
	deps.Lists = lists

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, deps),
	}

	lctx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(lctx, "starting api server")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(lctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newWindowSweep(cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer, repo *catalog.Repository, cache *pricecache.Cache) (*cron.Service, error) {
	job, err := cron.NewTierWindowJob(repo, cache, logg, nil)
	if err != nil {
		return nil, err
	}
	return cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Jobs:     []cron.Job{job},
		Metrics:  metrics.NewJobMetrics(reg),
		Interval: cfg.Pricing.WindowSweepInterval,
	})
}
