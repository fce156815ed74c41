package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const redisBreakerDuration = 30 * time.Second

// Options configures the manager. Redis is used when Addr is set; the
// in-memory limiter covers the rest, including Redis outages.
type Options struct {
	Limit         int
	Window        time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Manager enforces a fixed-window limit, preferring the shared Redis backend
// and falling back to process memory behind a circuit breaker.
type Manager struct {
	opts          Options
	nowFn         func() time.Time
	memoryLimiter Limiter

	mu           sync.Mutex
	redisLimiter *RedisLimiter
	breakerUntil time.Time
}

// NewManager constructs a Manager. A nil nowFn defaults to time.Now.
func NewManager(opts Options, nowFn func() time.Time) *Manager {
	if nowFn == nil {
		nowFn = time.Now
	}
	if opts.Window <= 0 {
		opts.Window = time.Minute
	}
	manager := &Manager{
		opts:          opts,
		nowFn:         nowFn,
		memoryLimiter: NewMemoryLimiter(),
	}
	if addr := strings.TrimSpace(opts.RedisAddr); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: strings.TrimSpace(opts.RedisPassword),
			DB:       opts.RedisDB,
		})
		manager.redisLimiter = NewRedisLimiter(client, opts.RedisPrefix)
	}
	return manager
}

// Allow checks whether the keyed request should proceed.
func (m *Manager) Allow(ctx context.Context, key string) (Result, error) {
	if m == nil || m.opts.Limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	now := m.nowFn()

	if m.redisLimiter != nil && !m.isBreakerActive(now) {
		result, errRedis := m.redisLimiter.Allow(ctx, key, m.opts.Limit, m.opts.Window, now)
		if errRedis == nil {
			return result, nil
		}
		m.tripBreaker(errRedis, now)
	}
	return m.memoryLimiter.Allow(ctx, key, m.opts.Limit, m.opts.Window, now)
}

func (m *Manager) isBreakerActive(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.breakerUntil.IsZero() {
		return false
	}
	if now.Before(m.breakerUntil) {
		return true
	}
	m.breakerUntil = time.Time{}
	return false
}

func (m *Manager) tripBreaker(err error, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.breakerUntil.IsZero() && now.Before(m.breakerUntil) {
		return
	}
	m.breakerUntil = now.Add(redisBreakerDuration)
	log.WithError(err).Warn("rate limit: redis unavailable, falling back to memory")
}
