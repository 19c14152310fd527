package http

import (
	"sync"
	"time"
)

const (
	rateLimitWindow   = time.Minute
	rateLimitRequests = 60
)

// rateLimiter tracks request timestamps per client IP over a sliding
// window. Only mutating methods count against the limit.
type rateLimiter struct {
	mu          sync.Mutex
	clients     map[string][]time.Time
	stopCleanup chan struct{}
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string][]time.Time),
		stopCleanup: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rateLimitWindow)

	recent := rl.clients[clientIP][:0]
	for _, t := range rl.clients[clientIP] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rateLimitRequests {
		rl.clients[clientIP] = recent
		return false
	}

	rl.clients[clientIP] = append(recent, now)
	return true
}

// cleanupLoop drops idle clients so the map does not grow unbounded.
func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-rateLimitWindow)
			for ip, times := range rl.clients {
				active := false
				for _, t := range times {
					if t.After(cutoff) {
						active = true
						break
					}
				}
				if !active {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *rateLimiter) stop() {
	close(rl.stopCleanup)
}
