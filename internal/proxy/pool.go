// Package proxy rotates the proxies Chrome and the HTTP fetchers go through.
package proxy

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultCooldown is how long a failed proxy sits out of the rotation
const DefaultCooldown = 5 * time.Minute

// Pool hands out proxies round-robin, skipping ones that failed recently
type Pool struct {
	proxies  []string
	index    int
	cooldown time.Duration
	failed   map[string]time.Time
	now      func() time.Time
	mu       sync.Mutex
}

// NewPool builds a pool from proxy addresses. Blank entries are dropped.
func NewPool(proxies []string) *Pool {
	var kept []string
	for _, p := range proxies {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return &Pool{
		proxies:  kept,
		cooldown: DefaultCooldown,
		failed:   make(map[string]time.Time),
		now:      time.Now,
	}
}

// Len returns the number of proxies
func (p *Pool) Len() int {
	return len(p.proxies)
}

// Next returns the next healthy proxy, or "" for an empty pool. When every
// proxy is cooling down the one that failed longest ago is returned.
func (p *Pool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return ""
	}

	var (
		oldest     string
		oldestTime time.Time
	)
	for range p.proxies {
		proxy := p.proxies[p.index]
		p.index = (p.index + 1) % len(p.proxies)

		failedAt, ok := p.failed[proxy]
		if !ok {
			return proxy
		}
		if p.now().Sub(failedAt) >= p.cooldown {
			delete(p.failed, proxy)
			return proxy
		}
		if oldest == "" || failedAt.Before(oldestTime) {
			oldest, oldestTime = proxy, failedAt
		}
	}

	log.Warn().Str("proxy", oldest).Msg("All proxies are cooling down")
	return oldest
}

// MarkFailed takes a proxy out of rotation for the cooldown
func (p *Pool) MarkFailed(proxy string) {
	if proxy == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed[proxy] = p.now()
	log.Debug().Str("proxy", proxy).Msg("Proxy marked failed")
}

// MarkHealthy clears a failure
func (p *Pool) MarkHealthy(proxy string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failed, proxy)
}

// ProxyFunc returns an http.Transport Proxy function that rotates through
// the pool per request. An empty pool falls back to the environment.
func (p *Pool) ProxyFunc() func(*http.Request) (*url.URL, error) {
	return func(req *http.Request) (*url.URL, error) {
		next := p.Next()
		if next == "" {
			return http.ProxyFromEnvironment(req)
		}
		if !strings.Contains(next, "://") {
			next = "http://" + next
		}
		return url.Parse(next)
	}
}
