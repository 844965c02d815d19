package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import "time"

// Key identifica o sujeito da cota (ex: "ip:path", API key, usuário).
// Não é validada nem normalizada: strings iguais são o mesmo sujeito.
type Key string

// Clock fornece o instante atual.
//
// Em produção deve ser monotônico (time.Now carrega leitura monotônica);
// em testes pode ser substituído por um relógio controlável.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapta uma função simples para Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// WindowStore decide a admissão de uma requisição dentro de uma janela deslizante.
//
// Allow registra a tentativa quando admitida e nunca retorna erro: é uma função
// de decisão pura sobre o estado em memória.
type WindowStore interface {
	Allow(key Key, now time.Time) Decision
}

type Decision struct {
	Allowed bool
	// Limit é a cota total configurada na janela.
	Limit int
	// Remaining é quantas requisições ainda cabem na janela (nunca negativo).
	Remaining int
	// RetryAfter é o tempo até o timestamp mais antigo sair da janela.
	// Zero quando admitida.
	RetryAfter time.Duration
}
