package fakebackend

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether another request for key is allowed
type Limiter interface {
	Allow(key string) bool
}

type unlimited struct{}

func (unlimited) Allow(string) bool { return true }

// Unlimited never rejects
func Unlimited() Limiter {
	return unlimited{}
}

// WindowLimiter allows limit requests per key per fixed window
type WindowLimiter struct {
	limit   int
	window  time.Duration
	nowFunc func() time.Time

	lock    sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	start time.Time
	count int
}

func NewWindowLimiter(limit int, window time.Duration, now func() time.Time) *WindowLimiter {
	if now == nil {
		now = time.Now
	}
	return &WindowLimiter{
		limit:   limit,
		window:  window,
		nowFunc: now,
		buckets: make(map[string]*bucket),
	}
}

func (l *WindowLimiter) Allow(key string) bool {
	if l.limit <= 0 || l.window <= 0 {
		return true
	}

	l.lock.Lock()
	defer l.lock.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok || now.Sub(b.start) >= l.window {
		b = &bucket{start: now}
		l.buckets[key] = b
	}
	b.count++
	return b.count <= l.limit
}

const rateLimitScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// RedisLimiter shares the window across several fake backend processes
type RedisLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	prefix string
	script *redis.Script
}

func NewRedisLimiter(client redis.Scripter, limit int, window time.Duration, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		prefix: prefix,
		script: redis.NewScript(rateLimitScript),
	}
}

// Allow fails open when Redis is unreachable
func (l *RedisLimiter) Allow(key string) bool {
	if l == nil || l.client == nil || l.limit <= 0 || l.window <= 0 || key == "" {
		return true
	}
	redisKey := key
	if l.prefix != "" {
		redisKey = l.prefix + ":" + key
	}
	ttl := l.window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	res, err := l.script.Run(ctx, l.client, []string{redisKey}, ttl, l.limit).Int()
	if err != nil {
		return true
	}
	return res == 1
}
