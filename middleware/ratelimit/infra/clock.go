package infra

import (
	"sync"
	"time"
)

// SystemClock usa time.Now. A leitura monotônica embutida em time.Time faz com que
// Sub/Add ignorem ajustes do relógio de parede.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock é um relógio controlado manualmente, útil em testes.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance move o relógio para frente (ou para trás, com d negativo).
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
