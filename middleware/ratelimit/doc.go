// Package ratelimit fornece adapters HTTP (net/http) para admissão por janela
// deslizante e limite de concorrência.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela deslizante, relógios, semáforo, stats)
//   - ratelimit (este pacote): middlewares HTTP + extração de chave + tradução para status/headers
//
// Fluxo no gateway:
//
//  1. Extrai a chave do cliente ("ip:path" por padrão, ou um header)
//  2. Chama a camada application para obter a decisão
//  3. Sempre escreve X-RateLimit-Limit, X-RateLimit-Remaining e X-RateLimit-Reset
//  4. Se bloqueado, responde 429 com Retry-After e corpo JSON (ou 503 na concorrência)
//  5. Se permitido, chama o próximo handler (ex: reverse proxy)
//
// A tentativa é contabilizada antes do próximo handler rodar: a cota conta
// tentativas, não sucessos.
package ratelimit
