package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"naskahcollab/pkg/logger"
	"naskahcollab/pkg/metrics"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// rateKey prefers the authenticated subject, falling back to the client IP.
func rateKey(r *http.Request) string {
	if id, ok := IdentityFrom(r.Context()); ok {
		return "sub:" + id.UserID
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || ip == "" {
		ip = r.RemoteAddr
	}
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}

func tooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
	http.Error(w, "Too many requests, please try again later", http.StatusTooManyRequests)
}

// RateLimit is an in-memory token bucket per key allowing max requests per window.
func RateLimit(max int, window time.Duration) func(http.Handler) http.Handler {
	if max <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	var limiters sync.Map // map[string]*rate.Limiter
	every := rate.Every(window / time.Duration(max))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, _ := limiters.LoadOrStore(rateKey(r), rate.NewLimiter(every, max))
			if !v.(*rate.Limiter).Allow() {
				metrics.RateLimitRejected.WithLabelValues("memory").Inc()
				tooManyRequests(w, time.Second)
				return
			}
			metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
			next.ServeHTTP(w, r)
		})
	}
}

// RedisRateLimit is a fixed-window limiter shared by every instance pointed at the same Redis.
// Falls back to the in-memory limiter when client is nil.
func RedisRateLimit(client *redis.Client, max int, window time.Duration) func(http.Handler) http.Handler {
	if client == nil {
		return RateLimit(max, window)
	}
	windowSeconds := int64(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			bucket := time.Now().Unix() / windowSeconds
			key := fmt.Sprintf("rl:%s:%d", rateKey(r), bucket)

			cnt, err := client.Incr(ctx, key).Result()
			if err != nil {
				logger.Sugar.Errorf("Rate limit check failed: %v", err)
				http.Error(w, "Rate limit check failed", http.StatusInternalServerError)
				return
			}
			if cnt == 1 {
				_ = client.Expire(ctx, key, time.Duration(windowSeconds+1)*time.Second).Err()
			}
			if cnt > int64(max) {
				metrics.RateLimitRejected.WithLabelValues("redis").Inc()
				tooManyRequests(w, time.Duration(windowSeconds)*time.Second)
				return
			}
			metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
			next.ServeHTTP(w, r)
		})
	}
}
