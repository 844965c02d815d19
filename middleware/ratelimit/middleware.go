package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/application"
	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/domain"
	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/infra"

	"golang.org/x/time/rate"
)

type Options struct {
	Store domain.WindowStore
	// Clock padrão: infra.SystemClock.
	Clock domain.Clock
	Stats domain.StatsStore
	// StatsTimeout limita cada Record; 0 usa só o contexto da requisição.
	StatsTimeout time.Duration
	KeyFn        KeyFunc
	// KeyHeader, quando definido e KeyFn for nil, usa HeaderKeyFunc.
	KeyHeader     string
	RejectStatus  int
	ExcludedPaths []string
	Logger        *slog.Logger
}

func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.Clock == nil {
		opts.Clock = infra.SystemClock{}
	}
	if opts.KeyFn == nil {
		opts.KeyFn = DefaultKeyFunc
		if opts.KeyHeader != "" {
			opts.KeyFn = HeaderKeyFunc(opts.KeyHeader, DefaultKeyFunc)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ratelimit")

	excluded := make(map[string]struct{}, len(opts.ExcludedPaths))
	for _, p := range opts.ExcludedPaths {
		excluded[p] = struct{}{}
	}

	svc := application.Service{
		Store: opts.Store,
		Clock: opts.Clock,
	}
	// falha de stats é best-effort: loga no máximo uma vez a cada 10s
	statsErrLog := &rate.Sometimes{First: 1, Interval: 10 * time.Second}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := excluded[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			key := domain.Key(opts.KeyFn(r))
			dec := svc.Decide(key)

			if opts.Stats != nil {
				err := recordStats(r.Context(), opts.Stats, opts.StatsTimeout, domain.StatsEvent{
					Key:       key,
					Allowed:   dec.Allowed,
					Remaining: dec.Remaining,
					Method:    r.Method,
					Path:      r.URL.Path,
					At:        opts.Clock.Now(),
				})
				if err != nil {
					statsErrLog.Do(func() {
						logger.Warn("stats record failed", "error", err)
					})
				}
			}

			quota := quotaHeaders(dec)
			h := w.Header()
			for k, v := range quota {
				h[k] = v
			}

			if !dec.Allowed {
				logger.Debug("request rejected",
					"key", string(key),
					"retry_after", dec.RetryAfter,
				)
				h.Set(HeaderRetryAfter, formatInt(retryAfterSeconds(dec.RetryAfter)))
				retry := fractionalSeconds(dec.RetryAfter)
				writeRejection(w, opts.RejectStatus, rejection{
					Detail:            http.StatusText(http.StatusTooManyRequests),
					RetryAfterSeconds: &retry,
				})
				return
			}

			// a tentativa já foi contabilizada; erros do handler seguem inalterados
			next.ServeHTTP(&quotaWriter{ResponseWriter: w, headers: quota}, r)
		})
	}
}

// recordStats não herda o cancelamento da requisição, só o prazo próprio.
func recordStats(ctx context.Context, stats domain.StatsStore, timeout time.Duration, ev domain.StatsEvent) error {
	if timeout <= 0 {
		return stats.Record(ctx, ev)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return stats.Record(ctx, ev)
}

func quotaHeaders(dec domain.Decision) http.Header {
	h := make(http.Header, 3)
	h.Set(HeaderLimit, formatInt(dec.Limit))
	h.Set(HeaderRemaining, formatInt(max(0, dec.Remaining)))
	h.Set(HeaderReset, formatInt(resetSeconds(dec.RetryAfter)))
	return h
}
