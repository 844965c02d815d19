// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - SlidingWindowStore: janela deslizante por chave, com varredura oportunista
//   - SystemClock / ManualClock: relógio de produção e relógio controlável
//   - ChanPool: semáforo simples para limite de concorrência
//   - MemoryStatsStore / RedisStatsStore / PrometheusStatsStore: destinos de estatística
package infra
