package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/obsilock/obsilock/internal/pkg/response"
)

type rateWindow struct {
	start time.Time
	count int
}

// RateLimit caps requests per client IP over a sliding window. The LRU
// bounds memory against IP churn; evicting an idle entry just resets
// that client's window early, which only errs in their favor.
func RateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	cache, _ := lru.New[string, *rateWindow](4096)
	var mu sync.Mutex
	return func(c *gin.Context) {
		ip := c.ClientIP()
		mu.Lock()
		entry, ok := cache.Get(ip)
		now := time.Now()
		if !ok || now.Sub(entry.start) > window {
			entry = &rateWindow{start: now}
			cache.Add(ip, entry)
		}
		entry.count++
		over := entry.count > maxRequests
		mu.Unlock()
		if over {
			response.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
