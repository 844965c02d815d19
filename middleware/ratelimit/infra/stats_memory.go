package infra

import (
	"context"
	"maps"
	"sync"

	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/domain"
)

type Counters struct {
	Admitted int64 `json:"admitted"`
	Rejected int64 `json:"rejected"`
}

func (c *Counters) add(allowed bool) {
	if allowed {
		c.Admitted++
		return
	}
	c.Rejected++
}

// StatsSnapshot é a fotografia servida em GET /stats.
type StatsSnapshot struct {
	Total   Counters            `json:"total"`
	ByRoute map[string]Counters `json:"by_route"`
	ByKey   map[string]Counters `json:"by_key,omitempty"`
}

// DefaultMaxStatsEntries limita rotas e chaves distintas por mapa.
const DefaultMaxStatsEntries = 1000

// OverflowBucket agrega rotas/chaves que chegam depois do limite.
const OverflowBucket = "other"

// MemoryStatsStore mantém contadores em memória, sem expiração.
// Cada mapa guarda no máximo maxEntries entradas distintas (mais o bucket
// OverflowBucket), então paths arbitrários não crescem a memória sem limite.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
	byKey   map[string]Counters

	trackKeys  bool
	maxEntries int
}

type MemoryStatsOption func(*MemoryStatsStore)

func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

// WithMaxEntries ignora n <= 0.
func WithMaxEntries(n int) MemoryStatsOption {
	return func(s *MemoryStatsStore) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byRoute:    make(map[string]Counters),
		byKey:      make(map[string]Counters),
		maxEntries: DefaultMaxStatsEntries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	route := routeOf(ev)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Allowed)
	s.bump(s.byRoute, route, ev.Allowed)
	if s.trackKeys {
		s.bump(s.byKey, string(ev.Key), ev.Allowed)
	}
	return nil
}

// chamado com s.mu travado
func (s *MemoryStatsStore) bump(m map[string]Counters, name string, allowed bool) {
	c, ok := m[name]
	if !ok && len(m) >= s.maxEntries {
		name = OverflowBucket
		c = m[name]
	}
	c.add(allowed)
	m[name] = c
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := StatsSnapshot{
		Total:   s.total,
		ByRoute: maps.Clone(s.byRoute),
	}
	if s.trackKeys {
		snap.ByKey = maps.Clone(s.byKey)
	}
	return snap
}

func routeOf(ev domain.StatsEvent) string {
	if ev.Method == "" {
		return ev.Path
	}
	return ev.Method + " " + ev.Path
}
