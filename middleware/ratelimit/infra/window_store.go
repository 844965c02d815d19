package infra

import (
	"sync"
	"time"

	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/domain"
)

// DefaultSweepInterval é o intervalo mínimo entre duas varreduras completas.
const DefaultSweepInterval = 60 * time.Second

// SlidingWindowStore é o limiter de janela deslizante em memória.
//
// Para cada chave guarda os timestamps das requisições admitidas (ordem crescente).
// Um único mutex protege o mapa e lastSweep; nada de I/O dentro da seção crítica.
type SlidingWindowStore struct {
	mu        sync.Mutex
	records   map[domain.Key][]time.Time
	lastSweep time.Time

	limit         int
	window        time.Duration
	sweepInterval time.Duration
}

type WindowStoreOption func(*SlidingWindowStore)

// WithSweepInterval troca o intervalo da varredura oportunista.
// Valores <= 0 são ignorados.
func WithSweepInterval(d time.Duration) WindowStoreOption {
	return func(s *SlidingWindowStore) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// NewSlidingWindowStore não valida limit/window: limit 0 rejeita tudo e
// window 0 descarta o histórico a cada chamada.
func NewSlidingWindowStore(limit int, window time.Duration, opts ...WindowStoreOption) *SlidingWindowStore {
	s := &SlidingWindowStore{
		records:       make(map[domain.Key][]time.Time),
		limit:         limit,
		window:        window,
		sweepInterval: DefaultSweepInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SlidingWindowStore) Limit() int                   { return s.limit }
func (s *SlidingWindowStore) Window() time.Duration        { return s.window }
func (s *SlidingWindowStore) SweepInterval() time.Duration { return s.sweepInterval }

// Len retorna quantas chaves estão sendo rastreadas.
func (s *SlidingWindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Allow implementa domain.WindowStore.
func (s *SlidingWindowStore) Allow(key domain.Key, now time.Time) domain.Decision {
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := evict(s.records[key], cutoff)

	var dec domain.Decision
	if len(ts) < s.limit {
		ts = append(ts, now)
		dec = domain.Decision{
			Allowed:   true,
			Limit:     s.limit,
			Remaining: s.limit - len(ts),
		}
	} else {
		dec = domain.Decision{Limit: s.limit}
		// registro vazio só acontece com limit <= 0
		if len(ts) > 0 {
			if wait := ts[0].Add(s.window).Sub(now); wait > 0 {
				dec.RetryAfter = wait
			}
		}
	}
	s.records[key] = ts

	s.maybeSweep(now)
	return dec
}

// maybeSweep deve ser chamado com s.mu travado.
func (s *SlidingWindowStore) maybeSweep(now time.Time) {
	if s.lastSweep.IsZero() {
		s.lastSweep = now
		return
	}
	if now.Sub(s.lastSweep) < s.sweepInterval {
		return
	}
	s.lastSweep = now

	cutoff := now.Add(-s.window)
	for k, ts := range s.records {
		ts = evict(ts, cutoff)
		if len(ts) == 0 {
			delete(s.records, k)
			continue
		}
		s.records[k] = ts
	}
}

// evict remove o prefixo de timestamps <= cutoff, compactando no mesmo array
// para que a capacidade não cresça além do limit.
func evict(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	n := copy(ts, ts[i:])
	clear(ts[n:])
	return ts[:n]
}
