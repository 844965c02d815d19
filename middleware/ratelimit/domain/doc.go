// Package domain define contratos e tipos de domínio para admissão por janela
// deslizante e limite de concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas: Key, Clock,
// Decision e WindowStore descrevem a decisão; StatsStore e SlotPool descrevem os
// colaboradores de infraestrutura.
package domain
