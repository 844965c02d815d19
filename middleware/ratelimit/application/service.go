package application

import (
	"time"

	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Lê o relógio e consulta o WindowStore; não sabe nada sobre HTTP.
type Service struct {
	Store domain.WindowStore
	Clock domain.Clock
}

// Decide retorna a decisão para key no instante atual do Clock.
// Sem Store tudo é admitido; sem Clock usa time.Now.
func (s Service) Decide(key domain.Key) domain.Decision {
	if s.Store == nil {
		return domain.Decision{Allowed: true}
	}
	return s.Store.Allow(key, s.now())
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}
