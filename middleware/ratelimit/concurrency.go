package ratelimit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/application"
	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/infra"
)

type ConcurrencyOptions struct {
	// Max <= 0 desliga o limite.
	Max            int
	RejectStatus   int
	AcquireTimeout time.Duration
	Logger         *slog.Logger
}

func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Max <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	svc := application.ConcurrencyService{
		Pool:           infra.NewChanPool(opts.Max),
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := svc.Acquire(r.Context())
			if err != nil {
				logger.Debug("concurrency slot unavailable", "path", r.URL.Path, "error", err)
				writeRejection(w, opts.RejectStatus, rejection{
					Detail: http.StatusText(opts.RejectStatus),
				})
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
