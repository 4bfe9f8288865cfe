package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrBreakerOpen is returned when a provider call is rejected because its
// breaker is open. Callers treat it like a provider failure and fall back.
var ErrBreakerOpen = eris.New("resilience: provider breaker is open")

// Breaker is a minimal circuit breaker for one model provider. It opens
// after a run of consecutive failures so the fallback chain can skip a dead
// provider without burning full retry cycles, and allows a probe call after
// a cool-down.
type Breaker struct {
	mu sync.Mutex

	threshold int
	cooldown  time.Duration

	failures int
	openedAt time.Time
	open     bool
	nowFunc  func() time.Time
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and allows a probe after cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 4
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{threshold: threshold, cooldown: cooldown, nowFunc: time.Now}
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return nil
	}
	if b.nowFunc().Sub(b.openedAt) >= b.cooldown {
		// Probe: stay open, but let one call through. Success closes.
		return nil
	}
	return ErrBreakerOpen
}

// Record feeds a call outcome into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.failures = 0
		b.open = false
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.open = true
		b.openedAt = b.nowFunc()
	}
}

// Open reports whether the breaker is currently rejecting calls.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && b.nowFunc().Sub(b.openedAt) < b.cooldown
}

// BreakerSet holds one breaker per provider name.
type BreakerSet struct {
	mu        sync.Mutex
	breakers  map[string]*Breaker
	threshold int
	cooldown  time.Duration
}

// NewBreakerSet creates a registry of per-provider breakers sharing one
// configuration.
func NewBreakerSet(threshold int, cooldown time.Duration) *BreakerSet {
	return &BreakerSet{
		breakers:  make(map[string]*Breaker),
		threshold: threshold,
		cooldown:  cooldown,
	}
}

// Get returns the breaker for a provider, creating it on first use.
func (s *BreakerSet) Get(provider string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[provider]
	if !ok {
		b = NewBreaker(s.threshold, s.cooldown)
		s.breakers[provider] = b
	}
	return b
}
