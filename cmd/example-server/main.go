package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit"
	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/infra"
)

// Exemplo: middleware embutido direto no webserver, sem proxy e sem config.
func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// 5 requisições a cada 10s por cliente+rota
	store := infra.NewSlidingWindowStore(5, 10*time.Second)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	h := http.Handler(mux)
	h = ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{Max: 50, Logger: log})(h)
	h = ratelimit.Middleware(ratelimit.Options{
		Store:     store,
		KeyHeader: os.Getenv("RATE_KEY_HEADER"), // vazio usa IP+rota
		Logger:    log,
	})(h)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("example server listening", "addr", addr, "limit", store.Limit(), "window", store.Window())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
