// Package middleware contains Gin middleware functions.
// Middleware in Gin is a handler that runs before (or after) your route handler.
// It calls c.Next() to proceed or c.Abort() to stop the chain.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// limiterTTL is how long a client's bucket survives without traffic before
// the sweep reclaims it. Anything past the refill horizon is equivalent to a
// fresh bucket anyway.
const limiterTTL = 3 * time.Minute

// client pairs a token bucket with the last time its IP was seen.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// sweepIdle deletes clients idle longer than ttl. Callers hold the map's lock.
func sweepIdle(clients map[string]*client, now time.Time, ttl time.Duration) {
	for addr, cl := range clients {
		if now.Sub(cl.lastSeen) > ttl {
			delete(clients, addr)
		}
	}
}

// RateLimit returns per-client-IP rate limiting middleware using token buckets.
//
// Token bucket algorithm: each client gets a bucket that fills at `rps` tokens/sec
// up to `burst` tokens. Each request consumes one token. If the bucket is empty,
// the request is rejected with 429.
//
// The map is keyed by client IP, which the client controls — so unlike a map
// keyed by a configured credential set, it must not grow without bound.
// Buckets idle past limiterTTL are swept out on the next request after the
// sweep interval elapses.
//
// sync.Mutex protects the map of limiters from concurrent goroutine access.
// This is one of the few cases where Go uses traditional locks instead of channels —
// a shared map with simple read/write is cleaner with a mutex than a channel.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	clients := make(map[string]*client)
	lastSweep := time.Now()

	return func(c *gin.Context) {
		// ClientIP respects X-Forwarded-For when gin trusts the proxy.
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		if now.Sub(lastSweep) > limiterTTL {
			sweepIdle(clients, now, limiterTTL)
			lastSweep = now
		}
		cl, exists := clients[ip]
		if !exists {
			cl = &client{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			clients[ip] = cl
		}
		cl.lastSeen = now
		mu.Unlock()

		if !cl.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
