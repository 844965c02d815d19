package application

import (
	"context"
	"fmt"
	"time"

	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/domain"
)

// ConcurrencyService concentra a regra de aquisição/liberação de vagas com timeout,
// sem saber nada sobre HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire tenta adquirir uma vaga.
//   - AcquireTimeout <= 0: espera até o ctx encerrar.
//   - AcquireTimeout > 0: espera no máximo AcquireTimeout.
//
// Sem vaga, retorna domain.ErrNoSlot junto com a causa do ctx.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(ctx)
	if !ok {
		if cause := context.Cause(ctx); cause != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrNoSlot, cause)
		}
		return nil, domain.ErrNoSlot
	}
	return release, nil
}
