// Package ratelimit throttles callers by key using token buckets.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultRule     Rule
	CleanupInterval time.Duration
	// IdleTTL is how long an unused bucket is kept before cleanup drops it.
	IdleTTL   time.Duration
	Whitelist map[string]bool
	Blacklist map[string]bool
	Rules     []Rule
}

type bucket struct {
	limiter    *rate.Limiter
	rule       Rule
	lastAccess time.Time
}

// Limiter manages one token bucket per key.
type Limiter struct {
	config *Config
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	cleanupTicker *time.Ticker
	cleanupStop   chan struct{}
	stopOnce      sync.Once
}

// NewLimiter creates a new rate limiter with the given configuration. A nil
// config selects DefaultConfig.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}

	limiter := &Limiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}

	if config.Enabled && config.CleanupInterval > 0 {
		limiter.cleanupTicker = time.NewTicker(config.CleanupInterval)
		limiter.cleanupStop = make(chan struct{})
		go limiter.cleanup()
	}

	return limiter
}

// Allow consumes one token from key's bucket under the default rule.
func (l *Limiter) Allow(key string) (bool, Info) {
	return l.allow(key, key, &l.config.DefaultRule)
}

// AllowRequest consumes one token for an HTTP request, using the first rule
// matching path and method and falling back to the default rule.
func (l *Limiter) AllowRequest(clientID, path, method string) (bool, Info) {
	rule := MatchRule(path, method, l.config.Rules)
	if rule == nil {
		rule = &l.config.DefaultRule
	}
	return l.allow(clientID, clientID+":"+rule.key(path, method), rule)
}

func (l *Limiter) allow(clientID, bucketKey string, rule *Rule) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{Allowed: false}
	}
	if rule.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	now := l.now()
	b := l.getBucket(bucketKey, *rule, now)

	res := b.limiter.ReserveN(now, 1)
	delay := res.DelayFrom(now)
	allowed := res.OK() && delay == 0
	if !allowed {
		res.CancelAt(now)
	}

	tokens := b.limiter.TokensAt(now)
	remaining := max(int(tokens), 0)
	info := Info{
		Allowed:   allowed,
		Limit:     rule.Limit,
		Remaining: remaining,
		ResetTime: now.Add(rule.refillTime(tokens)),
	}
	if !allowed {
		info.RetryAfter = delay
	}
	return allowed, info
}

// getBucket gets or creates the bucket for key and marks it used.
func (l *Limiter) getBucket(key string, rule Rule, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || b.rule != rule {
		b = &bucket{
			limiter: rate.NewLimiter(rule.rate(), rule.burst()),
			rule:    rule,
		}
		l.buckets[key] = b
	}
	b.lastAccess = now
	return b
}

// Len returns the number of live buckets.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) cleanup() {
	for {
		select {
		case <-l.cleanupTicker.C:
			l.cleanupBuckets()
		case <-l.cleanupStop:
			return
		}
	}
}

// cleanupBuckets removes buckets that have been idle longer than IdleTTL.
func (l *Limiter) cleanupBuckets() {
	ttl := l.config.IdleTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	cutoff := l.now().Add(-ttl)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		if l.cleanupTicker != nil {
			l.cleanupTicker.Stop()
			close(l.cleanupStop)
		}
	})
}
