// Conversões pequenas e consistentes de durações para headers e corpo JSON.

package ratelimit

import (
	"math"
	"strconv"
	"time"
)

func formatInt(v int) string { return strconv.Itoa(v) }

// resetSeconds trunca para segundos inteiros.
func resetSeconds(d time.Duration) int { return int(d.Seconds()) }

// retryAfterSeconds arredonda para cima, com mínimo de 1.
func retryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

// fractionalSeconds mantém 3 casas decimais.
func fractionalSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
