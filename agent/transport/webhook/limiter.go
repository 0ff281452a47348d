package webhook

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

// phoneLimiter is a token bucket per sender phone.
type phoneLimiter struct {
	perMinute int
	burst     int

	mu      sync.Mutex
	clients map[string]*limitedClient
}

type limitedClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newPhoneLimiter(perMinute, burst int) *phoneLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &phoneLimiter{
		perMinute: perMinute,
		burst:     burst,
		clients:   make(map[string]*limitedClient),
	}
}

// Allow reports whether phone may send now. A non-positive rate disables
// limiting.
func (l *phoneLimiter) Allow(phone string, now time.Time) bool {
	if l.perMinute <= 0 {
		return true
	}

	l.mu.Lock()
	c, ok := l.clients[phone]
	if !ok {
		c = &limitedClient{limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.burst)}
		l.clients[phone] = c
	}
	c.lastSeen = now
	limiter := c.limiter
	l.mu.Unlock()

	return limiter.AllowN(now, 1)
}

func (l *phoneLimiter) sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for phone, c := range l.clients {
		if now.Sub(c.lastSeen) > limiterIdleTTL {
			delete(l.clients, phone)
		}
	}
}

// run drops idle buckets until ctx is done.
func (l *phoneLimiter) run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			l.sweep(now)
		case <-ctx.Done():
			return
		}
	}
}
