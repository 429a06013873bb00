// Package ratelimit provides the token bucket used to bound inbound
// signaling message rates per connection.
package ratelimit

import (
	"sync"
	"time"
)

// One token is 1e9 nano-tokens. Fixed-point arithmetic avoids float
// rounding when refilling at sub-token granularity.
const nanoPerToken int64 = int64(time.Second)

// TokenBucket refills at an integer rate (tokens/sec) against an injected
// Clock, up to a fixed capacity.
type TokenBucket struct {
	mu sync.Mutex

	clock Clock

	capacity int64 // tokens
	rate     int64 // tokens/sec

	availableNano int64
	last          time.Time
}

func NewTokenBucket(clock Clock, capacity, rate int64) *TokenBucket {
	if clock == nil {
		clock = RealClock{}
	}
	if capacity < 0 {
		capacity = 0
	}
	if rate < 0 {
		rate = 0
	}

	return &TokenBucket{
		clock:         clock,
		capacity:      capacity,
		rate:          rate,
		availableNano: capacity * nanoPerToken,
		last:          clock.Now(),
	}
}

// Allow consumes the given number of tokens if available. tokens <= 0
// always succeeds.
func (b *TokenBucket) Allow(tokens int64) bool {
	if tokens <= 0 {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.refillLocked()

	cost := tokens * nanoPerToken
	if b.availableNano < cost {
		return false
	}
	b.availableNano -= cost
	return true
}

func (b *TokenBucket) refillLocked() {
	now := b.clock.Now()
	if now.Before(b.last) {
		// Time went backwards; move the reference point without refilling.
		b.last = now
		return
	}

	elapsed := now.Sub(b.last)
	b.last = now
	if elapsed <= 0 || b.rate <= 0 || b.capacity <= 0 {
		return
	}

	capacityNano := b.capacity * nanoPerToken
	need := capacityNano - b.availableNano
	if need <= 0 {
		b.availableNano = capacityNano
		return
	}

	// rate tokens/sec equals rate nano-tokens per nanosecond, so elapsed
	// nanoseconds * rate is the refill. Clamp to capacity before the multiply
	// can overflow on a long idle gap.
	elapsedNanos := elapsed.Nanoseconds()
	if elapsedNanos >= need/b.rate {
		b.availableNano = capacityNano
		return
	}
	b.availableNano += elapsedNanos * b.rate
}
