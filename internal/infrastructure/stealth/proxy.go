package stealth

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

type proxyEntry struct {
	url           *url.URL
	failures      int
	disabledUntil time.Time
}

// ProxyPool rotates upstream proxies and benches the ones that keep failing
type ProxyPool struct {
	mu          sync.Mutex
	entries     []*proxyEntry
	next        int
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// NewProxyPool creates an empty pool. Zero values default to 3 failures and a 5 minute cool-down.
func NewProxyPool(maxFailures int, cooldown time.Duration) *ProxyPool {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	if cooldown <= 0 {
		cooldown = 5 * time.Minute
	}
	return &ProxyPool{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// Add parses proxy URLs; a missing scheme defaults to http
func (p *ProxyPool) Add(rawURLs ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, raw := range rawURLs {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid proxy %q: %w", raw, err)
		}
		p.entries = append(p.entries, &proxyEntry{url: u})
	}
	return nil
}

// LoadFile adds one proxy per line, ignoring blank lines and # comments
func (p *ProxyPool) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open proxy file: %w", err)
	}
	defer file.Close()

	var urls []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read proxy file: %w", err)
	}
	return p.Add(urls...)
}

// Next returns the next healthy proxy, or "" when the pool is empty or fully benched
func (p *ProxyPool) Next() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.entries {
		e := p.entries[p.next]
		p.next = (p.next + 1) % len(p.entries)

		if e.disabledUntil.IsZero() || now.After(e.disabledUntil) {
			if !e.disabledUntil.IsZero() {
				e.disabledUntil = time.Time{}
				e.failures = 0
			}
			return e.url.String()
		}
	}
	return ""
}

// Report records the outcome of a session that went through proxy
func (p *ProxyPool) Report(proxy string, ok bool) {
	if proxy == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, e := range p.entries {
		if e.url.String() != proxy {
			continue
		}
		if ok {
			if e.failures > 0 {
				e.failures--
			}
			return
		}
		e.failures++
		if e.failures >= p.maxFailures {
			e.disabledUntil = p.now().Add(p.cooldown)
		}
		return
	}
}

// Len returns the number of configured proxies
func (p *ProxyPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}
