package infra

import (
	"context"

	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/domain"
)

// chanPool é um semáforo de capacidade fixa baseado em channel.
type chanPool struct {
	sem chan struct{}
}

// NewChanPool cria um pool com `max` vagas. max <= 0 não é aceito aqui:
// o middleware desliga o limite antes de chegar nesse ponto.
func NewChanPool(max int) domain.SlotPool {
	return &chanPool{sem: make(chan struct{}, max)}
}

func (p *chanPool) Acquire(ctx context.Context) (func(), bool) {
	// vaga livre tem prioridade sobre ctx já encerrado
	select {
	case p.sem <- struct{}{}:
		return p.release, true
	default:
	}

	select {
	case p.sem <- struct{}{}:
		return p.release, true
	case <-ctx.Done():
		return nil, false
	}
}

func (p *chanPool) release() { <-p.sem }

// InFlight retorna quantas vagas estão ocupadas agora.
func (p *chanPool) InFlight() int { return len(p.sem) }
