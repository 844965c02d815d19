package domain

import (
	"context"
	"time"
)

// StatsEvent representa uma decisão de admissão já tomada.
//
// Method/Path são strings genéricas, sem depender de net/http.
// Cuidado com cardinalidade ao persistir Key/Path (Redis, Prometheus).
type StatsEvent struct {
	Key       Key
	Allowed   bool
	Remaining int

	Method string
	Path   string

	At time.Time
}

// StatsStore persiste estatísticas das decisões.
//
// O middleware trata erro como best-effort: a requisição nunca falha por causa dele.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
