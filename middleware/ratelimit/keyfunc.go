package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// KeyFunc deriva a chave de cota de uma requisição. Deve ser determinística.
type KeyFunc func(r *http.Request) string

// DefaultKeyFunc gera "<cliente>:<path>".
//
// O cliente é o primeiro IP do X-Forwarded-For, senão o host do RemoteAddr,
// senão "unknown". X-Forwarded-For pode ser forjado: use atrás de um proxy confiável.
func DefaultKeyFunc(r *http.Request) string {
	return ClientAddr(r) + ":" + r.URL.Path
}

// HeaderKeyFunc usa o valor do header (ex: X-Api-Key) como chave e cai para
// fallback quando ausente. fallback nil usa DefaultKeyFunc.
func HeaderKeyFunc(header string, fallback KeyFunc) KeyFunc {
	if fallback == nil {
		fallback = DefaultKeyFunc
	}
	return func(r *http.Request) string {
		if v := strings.TrimSpace(r.Header.Get(header)); v != "" {
			return v
		}
		return fallback(r)
	}
}

func ClientAddr(r *http.Request) string {
	// primeiro IP do X-Forwarded-For; valor vazio cai para o RemoteAddr
	// em vez de juntar todos numa chave sem cliente
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	if addr != "" {
		return addr
	}
	return "unknown"
}
