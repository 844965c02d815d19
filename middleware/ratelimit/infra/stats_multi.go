package infra

import (
	"context"
	"errors"

	"github.com/VietQuocHoang/export-user-info/middleware/ratelimit/domain"
)

// MultiStatsStore repassa cada evento para todos os stores; um erro não
// impede os demais.
type MultiStatsStore []domain.StatsStore

// NewMultiStatsStore ignora entradas nil. Com um único store retorna ele mesmo.
func NewMultiStatsStore(stores ...domain.StatsStore) domain.StatsStore {
	out := make(MultiStatsStore, 0, len(stores))
	for _, s := range stores {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

func (m MultiStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
