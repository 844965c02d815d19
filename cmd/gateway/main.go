package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VietQuocHoang/export-user-info/internal/config"
	"github.com/VietQuocHoang/export-user-info/internal/logger"
	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/domain"
	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/infra"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var upstream *url.URL
	if cfg.UpstreamURL != "" {
		u, err := url.Parse(cfg.UpstreamURL)
		if err != nil {
			return fmt.Errorf("invalid UPSTREAM_URL: %w", err)
		}
		upstream = u
	}

	store := infra.NewSlidingWindowStore(
		cfg.Rate.Limit,
		cfg.Rate.Window,
		infra.WithSweepInterval(cfg.Rate.SweepInterval),
	)
	var (
		memStats *infra.MemoryStatsStore
		sinks    []domain.StatsStore
	)
	if cfg.Stats.Memory {
		memStats = infra.NewMemoryStatsStore(
			infra.WithTrackKeys(cfg.Stats.TrackKeys),
			infra.WithMaxEntries(cfg.Stats.MaxEntries),
		)
		sinks = append(sinks, memStats)
	}

	var metrics http.Handler
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		promStats, err := infra.NewPrometheusStatsStore(reg)
		if err != nil {
			return fmt.Errorf("register decision metrics: %w", err)
		}
		if err := infra.RegisterWindowStoreCollectors(reg, store); err != nil {
			return fmt.Errorf("register store metrics: %w", err)
		}
		sinks = append(sinks, promStats)
		metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	if cfg.Stats.RedisEnabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Stats.RedisAddr,
			Password: cfg.Stats.RedisPassword,
			DB:       cfg.Stats.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			return fmt.Errorf("redis stats ping: %w", err)
		}

		sinks = append(sinks, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.Stats.Prefix),
			infra.WithStatsTTL(cfg.Stats.TTL),
			infra.WithStatsBucket(cfg.Stats.Bucket),
			infra.WithStatsTrackKeys(cfg.Stats.TrackKeys),
		))
	}

	h := newRouter(routerDeps{
		cfg:      cfg,
		log:      log,
		store:    store,
		clock:    infra.SystemClock{},
		stats:    infra.NewMultiStatsStore(sinks...),
		memStats: memStats,
		metrics:  metrics,
		upstream: upstream,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelWarn),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("graceful shutdown failed", "error", err)
		}
	}()

	target := "built-in routes"
	if upstream != nil {
		target = upstream.String()
	}
	log.Info("gateway listening", "addr", cfg.ListenAddr, "target", target)
	log.Info("rate",
		"enabled", cfg.Rate.Enabled,
		"limit", cfg.Rate.Limit,
		"window", cfg.Rate.Window,
		"sweep_interval", cfg.Rate.SweepInterval,
		"key_header", cfg.Rate.KeyHeader,
	)
	log.Info("stats",
		"memory", cfg.Stats.Memory,
		"metrics", cfg.MetricsEnabled,
		"redis", cfg.Stats.RedisEnabled(),
		"bucket", cfg.Stats.Bucket,
		"track_keys", cfg.Stats.TrackKeys,
	)
	log.Info("concurrency", "max", cfg.Concurrency.Max, "acquire_timeout", cfg.Concurrency.Timeout)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
