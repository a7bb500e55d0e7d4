package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/greencore-api/internal/http/response"
)

// IPRateLimiter — token bucket на каждый IP клиента.
// Давно не встречавшиеся адреса вытесняются из памяти.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

// NewIPRateLimiter разрешает один запрос в every с запасом burst.
func NewIPRateLimiter(every time.Duration, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](10_000, nil, time.Hour),
		limit:    rate.Every(every),
		burst:    burst,
	}
}

// Allow сообщает, можно ли пропустить запрос с адреса ip.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	lim, ok := l.limiters.Get(ip)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(ip, lim)
	}
	l.mu.Unlock()
	return lim.Allow()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware отвечает 429, если адрес клиента превысил лимит.
// Адрес берётся из RemoteAddr, поэтому перед ним должен стоять middleware.RealIP.
func RateLimitMiddleware(limiter *IPRateLimiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiter.Allow(ip) {
				log.Warn("too many requests",
					slog.String("ip", ip),
					slog.String("request_id", middleware.GetReqID(r.Context())))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
