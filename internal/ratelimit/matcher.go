package ratelimit

import (
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Rule is a token bucket shape: Limit events per Window with Burst capacity.
// Path and Method scope the rule to HTTP requests; both are empty for
// key-only rules.
type Rule struct {
	Path   string // supports prefix matching when it ends with "/"
	Method string
	Limit  int
	Window time.Duration
	Burst  int // defaults to Limit if 0
}

func (r Rule) rate() rate.Limit {
	if r.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(r.Limit) / r.Window.Seconds())
}

func (r Rule) burst() int {
	if r.Burst > 0 {
		return r.Burst
	}
	return r.Limit
}

// refillTime is how long a bucket holding tokens takes to fill up.
func (r Rule) refillTime(tokens float64) time.Duration {
	missing := float64(r.burst()) - tokens
	perSecond := float64(r.rate())
	if missing <= 0 || r.Window <= 0 || perSecond <= 0 {
		return 0
	}
	return time.Duration(missing / perSecond * float64(time.Second))
}

func (r Rule) key(path, method string) string {
	if r.Path == "" {
		return "*:" + method
	}
	if strings.HasSuffix(r.Path, "/") {
		return r.Path + ":" + method
	}
	return path + ":" + method
}

// MatchRule matches a request path and method to a rule.
// Returns the matching Rule or nil if no match is found.
// Path matching supports prefix matching (e.g., "/monitor/" matches "/monitor/start").
func MatchRule(path string, method string, rules []Rule) *Rule {
	// Health checks are never limited.
	if path == "/health" && method == "GET" {
		return &Rule{}
	}

	for i := range rules {
		rule := &rules[i]
		if rule.Path == path && rule.Method == method {
			return rule
		}
	}

	for i := range rules {
		rule := &rules[i]
		if rule.Method == method && strings.HasSuffix(rule.Path, "/") && strings.HasPrefix(path, rule.Path) {
			return rule
		}
	}

	return nil
}
