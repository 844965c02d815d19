package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/VietQuocHoang/export-user-info/internal/config"
	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit"
	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/domain"
	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/infra"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const metricsPath = "/metrics"

type routerDeps struct {
	cfg      config.Config
	log      *slog.Logger
	store    domain.WindowStore
	clock    domain.Clock
	stats    domain.StatsStore
	// nil desliga /stats
	memStats *infra.MemoryStatsStore
	// nil desliga /metrics
	metrics http.Handler
	// nil serve as rotas locais em vez do proxy
	upstream *url.URL
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()

	// ordem: request id -> recover -> log -> rate limit -> concorrência
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.log))
	if d.cfg.Rate.Enabled {
		r.Use(ratelimit.Middleware(ratelimit.Options{
			Store:         d.store,
			Clock:         d.clock,
			Stats:         d.stats,
			StatsTimeout:  d.cfg.Stats.Timeout,
			KeyHeader:     d.cfg.Rate.KeyHeader,
			ExcludedPaths: []string{metricsPath},
			Logger:        d.log,
		}))
	}
	r.Use(ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
		Max:            d.cfg.Concurrency.Max,
		AcquireTimeout: d.cfg.Concurrency.Timeout,
		Logger:         d.log,
	}))

	r.Get("/health", statusOK)
	if d.memStats != nil {
		r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, d.memStats.Snapshot())
		})
	}
	if d.metrics != nil {
		r.Handle(metricsPath, d.metrics)
	}

	if d.upstream != nil {
		r.Handle("/*", newProxy(d.upstream, d.log))
	} else {
		r.Get("/ping", statusOK)
	}
	return r
}

func newProxy(target *url.URL, log *slog.Logger) http.Handler {
	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error("proxy error", "path", r.URL.Path, "error", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}
	return proxy
}

func statusOK(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}
