// Package ratelimit 基于令牌桶的按IP限流
package ratelimit

import (
	"sync"
	"time"

	"user-center/pkg/errcode"
	"user-center/pkg/logger"
	"user-center/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultExpiresIn 限流器闲置多久后被清理
const DefaultExpiresIn = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter 每个标识（客户端IP）一个令牌桶
type Limiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rate      rate.Limit
	burst     int
	expiresIn time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// New 创建限流器，rps 为每秒补充的令牌数，burst 为桶容量
func New(rps float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		visitors:  make(map[string]*visitor),
		rate:      rate.Limit(rps),
		burst:     burst,
		expiresIn: DefaultExpiresIn,
		now:       time.Now,
	}
}

// Allow 判断该标识本次请求是否放行
func (l *Limiter) Allow(identifier string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.expiresIn {
		l.sweep(now)
	}

	v, ok := l.visitors[identifier]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[identifier] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep 清理长时间未访问的标识，调用方需持有锁
func (l *Limiter) sweep(now time.Time) {
	for id, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.expiresIn {
			delete(l.visitors, id)
		}
	}
	l.lastSweep = now
}

// Middleware 按客户端IP限流，超限返回 TOO_MANY_REQUESTS
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.Allow(ip) {
			logger.Warn("请求被限流", zap.String("ip", ip), zap.String("path", c.Request.URL.Path))
			response.Abort(c, errcode.TooManyRequests, "请稍后再试")
			return
		}
		c.Next()
	}
}
