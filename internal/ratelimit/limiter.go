// Package ratelimit throttles HTTP fetches per registrable domain.
package ratelimit

import (
	"context"
	"net"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// RateLimiter gates requests by URL
type RateLimiter interface {
	// Wait blocks until a request to urlStr may proceed or ctx is done
	Wait(ctx context.Context, urlStr string) error
	// Allow reports whether a request may proceed right now
	Allow(urlStr string) bool
}

// DomainLimiter keeps one token bucket per registrable domain, so every
// scontent-*.fbcdn.net edge shares the fbcdn.net budget.
type DomainLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	perHost  rate.Limit
	burst    int
}

// NewDomainLimiter allows requestsPerSecond with burst per domain
func NewDomainLimiter(requestsPerSecond float64, burst int) *DomainLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5.0
	}
	if burst <= 0 {
		burst = 10
	}

	return &DomainLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Wait blocks until the domain of urlStr has a token
func (dl *DomainLimiter) Wait(ctx context.Context, urlStr string) error {
	domain := Domain(urlStr)
	if domain == "" {
		// unparsable URLs fail in the fetch itself
		return nil
	}
	return dl.limiter(domain).Wait(ctx)
}

// Allow takes a token if one is available
func (dl *DomainLimiter) Allow(urlStr string) bool {
	domain := Domain(urlStr)
	if domain == "" {
		return true
	}
	return dl.limiter(domain).Allow()
}

func (dl *DomainLimiter) limiter(domain string) *rate.Limiter {
	dl.mu.RLock()
	limiter, ok := dl.limiters[domain]
	dl.mu.RUnlock()
	if ok {
		return limiter
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if limiter, ok := dl.limiters[domain]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(dl.perHost, dl.burst)
	dl.limiters[domain] = limiter
	return limiter
}

// SetLimit overrides the rate of one domain
func (dl *DomainLimiter) SetLimit(domain string, requestsPerSecond float64, burst int) {
	dl.mu.Lock()
	defer dl.mu.Unlock()

	if limiter, ok := dl.limiters[domain]; ok {
		limiter.SetLimit(rate.Limit(requestsPerSecond))
		limiter.SetBurst(burst)
		return
	}
	dl.limiters[domain] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// Domain returns the registrable domain of urlStr, falling back to the bare
// host for IPs and single-label hosts
func Domain(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}
