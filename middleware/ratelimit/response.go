package ratelimit

import (
	"encoding/json"
	"net/http"
)

const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// rejection é o corpo JSON das respostas 429/503.
type rejection struct {
	Detail            string   `json:"detail"`
	RetryAfterSeconds *float64 `json:"retry_after_seconds,omitempty"`
}

func writeRejection(w http.ResponseWriter, status int, body rejection) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// quotaWriter reaplica os headers de cota quando o handler escreve o status,
// para que prevaleçam sobre headers homônimos definidos pelo handler.
type quotaWriter struct {
	http.ResponseWriter
	headers     http.Header
	wroteHeader bool
}

func (w *quotaWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		dst := w.ResponseWriter.Header()
		for k, v := range w.headers {
			dst[k] = v
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *quotaWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap permite http.ResponseController (Flush, deadlines) atravessar o wrapper.
func (w *quotaWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
