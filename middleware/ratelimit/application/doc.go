// Package application contém os casos de uso de admissão: decisão da janela
// deslizante e aquisição de vagas de concorrência.
//
// Depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Decide(key) lê o Clock e retorna a Decision do WindowStore.
package application
