package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/anagram/solver"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/service/cache"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/service/handler"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/service/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/internal/service/router"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting anagram service",
		"port", cfg.Server.Port,
		"dictionary_source", cfg.Dictionary.Source,
		"parallelism", cfg.Solver.Parallelism,
	)

	if err := run(cfg); err != nil {
		slog.Error("anagram service failed", "error", err)
		os.Exit(1)
	}
	slog.Info("anagram service stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	checker := health.NewChecker()
	var background sync.WaitGroup

	var db *postgres.Client
	if cfg.Postgres.Enabled || cfg.Dictionary.Source == config.DictionarySourcePostgres {
		client, err := postgres.New(cfg.Postgres)
		switch {
		case err == nil:
			db = client
			defer db.Close()
			checker.Register("postgres", cfg.Dictionary.Source == config.DictionarySourcePostgres, db.Ping)
		case cfg.Dictionary.Source == config.DictionarySourcePostgres:
			return fmt.Errorf("connecting to dictionary database: %w", err)
		default:
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		}
	}

	src, err := dictionary.NewSource(cfg.Dictionary, db)
	if err != nil {
		return err
	}
	idx, err := dictionary.Build(ctx, src)
	if err != nil {
		return fmt.Errorf("building dictionary: %w", err)
	}
	m.DictionaryWords.Set(float64(idx.Len()))
	m.DictionarySignatures.Set(float64(idx.Signatures()))
	checker.Register("dictionary", true, func(context.Context) error {
		if idx.Len() == 0 {
			return errors.New("dictionary is empty")
		}
		return nil
	})

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, anagram caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			checker.Register("redis", false, redisClient.Ping)
			slog.Info("anagram cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	agg := analytics.NewAggregator()
	var tracker analytics.Tracker = agg
	if cfg.Kafka.Enabled {
		topic := cfg.Kafka.Topics.AnagramEvents
		producer := kafka.NewProducer(cfg.Kafka, topic)
		defer producer.Close()
		collector := analytics.NewCollector(producer, cfg.Analytics.BufferSize, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector
		checker.Register("kafka", false, func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka.Brokers)
		})

		consumer := kafka.NewConsumer(cfg.Kafka, topic, agg.HandleEvent())
		background.Add(1)
		go func() {
			defer background.Done()
			if err := consumer.Run(ctx); err != nil {
				slog.Error("analytics consumer error", "error", err)
			}
		}()
		slog.Info("analytics pipeline started", "topic", topic)
	}
	var snapshots *aggregator.Handler
	if db != nil {
		store := aggregator.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Warn("analytics snapshots disabled", "error", err)
		} else {
			snapshots = aggregator.NewHandler(store)
			background.Add(1)
			go func() {
				defer background.Done()
				store.RunPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
			}()
		}
	}

	s := solver.New(idx, cfg.Solver.Parallelism)
	h := handler.New(idx, s, queryCache, tracker, m, cfg.Solver)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		defer limiter.Stop()
	}
	chain := router.New(router.Deps{
		Handler:   h,
		Analytics: analytics.NewHandler(agg),
		Snapshots: snapshots,
		Health:    checker,
		Metrics:   m,
		Limiter:   limiter,
		Timeout:   cfg.Server.WriteTimeout,
	})

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("anagram service listening", "addr", server.Addr)
	serveErr := server.ListenAndServe()
	stop()
	<-shutdownDone
	background.Wait()
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", serveErr)
	}
	return nil
}
